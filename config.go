// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/pillarproject/btcwallet/chain"
	"github.com/pillarproject/btcwallet/internal/cfgutil"
	"github.com/pillarproject/btcwallet/netparams"
	"github.com/pillarproject/btcwallet/wallet"
	"github.com/pillarproject/btcwallet/wallet/txrules"
)

const (
	defaultConfigFilename = "btcwallet.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "btcwallet.log"
	defaultMaxLogFileSize = 10 * 1024
	defaultMaxLogRolls    = 3
	defaultDBTimeout      = 60 * time.Second

	walletDbName = "wallet.db"
)

var (
	btcwalletHomeDir  = btcutil.AppDataDir("btcwallet", false)
	defaultConfigFile = filepath.Join(btcwalletHomeDir, defaultConfigFilename)
	defaultDataDir    = btcwalletHomeDir
	defaultLogDir     = filepath.Join(btcwalletHomeDir, defaultLogDirname)
)

type config struct {
	// General application behavior
	ConfigFile     *cfgutil.ExplicitString `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion    bool                    `short:"V" long:"version" description:"Display version information and exit"`
	AppDataDir     string                  `short:"A" long:"appdata" description:"Application data directory for wallet config, databases and logs"`
	TestNet3       bool                    `long:"testnet" description:"Use the test Bitcoin network (version 3)"`
	TestNet4       bool                    `long:"testnet4" description:"Use the test Bitcoin network (version 4)"`
	RegTest        bool                    `long:"regtest" description:"Use the regression test network"`
	SimNet         bool                    `long:"simnet" description:"Use the simulation test network"`
	DBTimeout      time.Duration           `long:"dbtimeout" description:"The timeout value to use when opening the wallet database"`
	LogDir         string                  `long:"logdir" description:"Directory to log output"`
	DebugLevel     string                  `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	MaxLogFileSize int64                   `long:"logmaxsize" description:"Maximum size in KB of a log file before it is rotated"`
	MaxLogRolls    int                     `long:"logmaxrolls" description:"Number of rotated log files to keep"`

	// Indexer options
	IndexerURL     *cfgutil.ExplicitString `long:"indexer" description:"Base URL of the bitcore-style indexer API (default depends on the network)"`
	IndexerTimeout time.Duration           `long:"indexertimeout" description:"Timeout of a single indexer request"`

	// Wallet options
	Account          uint32               `long:"account" description:"BIP-44 account addresses are derived under"`
	CoinType         int32                `long:"cointype" description:"BIP-44 coin type of derived addresses (-1 uses the network's)"`
	RefreshThreshold time.Duration        `long:"refreshthreshold" description:"Minimum time between two refreshes of an address"`
	PollInterval     time.Duration        `long:"pollinterval" description:"Interval between balance refreshes of the poll command"`
	Force            bool                 `long:"force" description:"Refresh addresses even when they were refreshed recently"`
	SlowFeeRate      *cfgutil.FeeRateFlag `long:"slowfee" description:"Fee rate in sat/B of slow transactions"`
	NormalFeeRate    *cfgutil.FeeRateFlag `long:"normalfee" description:"Fee rate in sat/B of normal transactions"`
	FastFeeRate      *cfgutil.FeeRateFlag `long:"fastfee" description:"Fee rate in sat/B of fast transactions"`

	activeNet *netparams.Params
}

// coinType returns the configured BIP-44 coin type, or nil when addresses
// use the coin type of the active network.
func (c *config) coinType() *uint32 {
	if c.CoinType < 0 {
		return nil
	}
	coinType := uint32(c.CoinType)
	return &coinType
}

// feeTiers returns the configured fee rate of each speed tier.
func (c *config) feeTiers() txrules.FeeTiers {
	return txrules.FeeTiers{
		txrules.Slow:   c.SlowFeeRate.FeeRate,
		txrules.Normal: c.NormalFeeRate.FeeRate,
		txrules.Fast:   c.FastFeeRate.FeeRate,
	}
}

// dbPath returns the path of the wallet database of the active network.
func (c *config) dbPath() string {
	return filepath.Join(networkDir(c.AppDataDir, c.activeNet), walletDbName)
}

// networkDir returns the directory name of a network directory to hold wallet
// files.
func networkDir(dataDir string, net *netparams.Params) string {
	return filepath.Join(dataDir, net.Name)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(btcwalletHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but they variables can still be expanded via POSIX-style
	// $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsytems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		setLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// errShowVersion is returned by loadConfig when only the version was asked
// for.
var errShowVersion = errors.New("version requested")

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in btcwallet functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.  The remaining positional arguments are returned.
func loadConfig(args []string) (*config, []string, error) {
	cfg := config{
		ConfigFile:       cfgutil.NewExplicitString(defaultConfigFile),
		AppDataDir:       defaultDataDir,
		DBTimeout:        defaultDBTimeout,
		LogDir:           defaultLogDir,
		DebugLevel:       defaultLogLevel,
		MaxLogFileSize:   defaultMaxLogFileSize,
		MaxLogRolls:      defaultMaxLogRolls,
		IndexerURL:       cfgutil.NewExplicitString(""),
		IndexerTimeout:   chain.DefaultRequestTimeout,
		CoinType:         -1,
		RefreshThreshold: wallet.DefaultRefreshThreshold,
		PollInterval:     wallet.DefaultPollInterval,
		SlowFeeRate:      cfgutil.NewFeeRateFlag(txrules.DefaultFeeRate),
		NormalFeeRate:    cfgutil.NewFeeRateFlag(txrules.DefaultFeeRate),
		FastFeeRate:      cfgutil.NewFeeRateFlag(txrules.DefaultFeeRate),
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preCfg.ConfigFile = cfgutil.NewExplicitString(defaultConfigFile)
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}
	if preCfg.ShowVersion {
		return nil, nil, errShowVersion
	}

	// A config file in a non-default data directory is looked up there
	// unless one was named explicitly.
	configFile := preCfg.ConfigFile.Value
	if !preCfg.ConfigFile.ExplicitlySet() &&
		preCfg.AppDataDir != defaultDataDir {

		configFile = filepath.Join(
			cleanAndExpandPath(preCfg.AppDataDir),
			defaultConfigFilename,
		)
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cleanAndExpandPath(configFile))
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	// Warn about a missing config file only when one was asked for.
	if configFileError != nil && preCfg.ConfigFile.ExplicitlySet() {
		log.Warnf("%v", configFileError)
	}

	// Choose the active network params based on the selected network.
	// Multiple networks can't be selected simultaneously.
	cfg.activeNet = &netparams.MainNetParams
	numNets := 0
	if cfg.TestNet3 {
		cfg.activeNet = &netparams.TestNet3Params
		numNets++
	}
	if cfg.TestNet4 {
		cfg.activeNet = &netparams.TestNet4Params
		numNets++
	}
	if cfg.RegTest {
		cfg.activeNet = &netparams.RegressionNetParams
		numNets++
	}
	if cfg.SimNet {
		cfg.activeNet = &netparams.SimNetParams
		numNets++
	}
	if numNets > 1 {
		return nil, nil, errors.New("loadConfig: the testnet, " +
			"testnet4, regtest and simnet params can't be used " +
			"together -- choose one")
	}

	cfg.IndexerURL.SetDefault(cfg.activeNet.IndexerURL)

	if cfg.CoinType < -1 {
		return nil, nil, fmt.Errorf("loadConfig: invalid coin type %d",
			cfg.CoinType)
	}
	if cfg.RefreshThreshold <= 0 {
		return nil, nil, fmt.Errorf("loadConfig: refresh threshold "+
			"must be positive, got %v", cfg.RefreshThreshold)
	}
	if cfg.PollInterval <= 0 {
		return nil, nil, fmt.Errorf("loadConfig: poll interval must "+
			"be positive, got %v", cfg.PollInterval)
	}

	cfg.AppDataDir = cleanAndExpandPath(cfg.AppDataDir)

	// Logs default to the data directory when it was moved.
	if cfg.LogDir == defaultLogDir && cfg.AppDataDir != defaultDataDir {
		cfg.LogDir = filepath.Join(cfg.AppDataDir, defaultLogDirname)
	}

	// Append the network type to the log directory so it is "namespaced"
	// per network.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.activeNet.Name)

	return &cfg, remainingArgs, nil
}
