// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/pillarproject/btcwallet/chain"
	"github.com/pillarproject/btcwallet/keychain"
	"github.com/pillarproject/btcwallet/waddrmgr"
	"github.com/pillarproject/btcwallet/wallet"
	"github.com/pillarproject/btcwallet/wallet/txauthor"
	"github.com/pillarproject/btcwallet/walletdb"
	"github.com/pillarproject/btcwallet/wtxmgr"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all subsytem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by
// calling initLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.  The backend must not be used before the log rotator has
	// been initialized, or data races and/or nil pointer dereferences will
	// occur.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	log       = backendLog.Logger("BTCW")
	walletLog = backendLog.Logger("WLLT")
	authorLog = backendLog.Logger("AUTH")
	chainLog  = backendLog.Logger("CHNS")
	keysLog   = backendLog.Logger("KCHN")
	txmgrLog  = backendLog.Logger("TMGR")
	addrLog   = backendLog.Logger("AMGR")
	dbLog     = backendLog.Logger("WDB")
)

// Initialize package-global logger variables.
func init() {
	wallet.UseLogger(walletLog)
	txauthor.UseLogger(authorLog)
	chain.UseLogger(chainLog)
	keychain.UseLogger(keysLog)
	wtxmgr.UseLogger(txmgrLog)
	waddrmgr.UseLogger(addrLog)
	walletdb.UseLogger(dbLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"BTCW": log,
	"WLLT": walletLog,
	"AUTH": authorLog,
	"CHNS": chainLog,
	"KCHN": keysLog,
	"TMGR": txmgrLog,
	"AMGR": addrLog,
	"WDB":  dbLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string, maxSizeKB int64, maxRolls int) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, maxSizeKB, false, maxRolls)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	logRotator = r
	return nil
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
