// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pillarproject/btcwallet/netparams"
	"github.com/pillarproject/btcwallet/wallet/txrules"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, args, err := loadConfig([]string{"--appdata=" + dir, "balance"})
	require.NoError(t, err)
	require.Equal(t, []string{"balance"}, args)

	require.Equal(t, &netparams.MainNetParams, cfg.activeNet)
	require.Equal(t, netparams.MainNetParams.IndexerURL, cfg.IndexerURL.Value)
	require.Equal(t, filepath.Join(dir, "logs", "mainnet"), cfg.LogDir)
	require.Equal(t, filepath.Join(dir, "mainnet", walletDbName), cfg.dbPath())
	require.Equal(t, txrules.DefaultFeeTiers(), cfg.feeTiers())
	require.Equal(t, time.Minute, cfg.RefreshThreshold)
	require.Nil(t, cfg.coinType())

	cfg, _, err = loadConfig([]string{"--appdata=" + dir, "--cointype=0"})
	require.NoError(t, err)
	require.NotNil(t, cfg.coinType())
	require.Zero(t, *cfg.coinType())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	conf := "[Application Options]\n" +
		"testnet=1\n" +
		"indexer=http://127.0.0.1:3000/api/BTC/testnet\n" +
		"fastfee=120\n" +
		"refreshthreshold=5m\n"
	err := os.WriteFile(
		filepath.Join(dir, defaultConfigFilename), []byte(conf), 0600,
	)
	require.NoError(t, err)

	// Command line options take precedence over the file.
	cfg, _, err := loadConfig([]string{
		"--appdata=" + dir, "--fastfee=90", "--slowfee=10 sat/B",
	})
	require.NoError(t, err)

	require.Equal(t, &netparams.TestNet3Params, cfg.activeNet)
	require.Equal(t, "http://127.0.0.1:3000/api/BTC/testnet",
		cfg.IndexerURL.Value)
	require.Equal(t, 5*time.Minute, cfg.RefreshThreshold)
	require.Equal(t, txrules.FeeTiers{
		txrules.Slow:   10,
		txrules.Normal: txrules.DefaultFeeRate,
		txrules.Fast:   90,
	}, cfg.feeTiers())
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "two networks",
			args: []string{"--testnet", "--simnet"},
		},
		{
			name: "bad fee rate",
			args: []string{"--normalfee=0"},
		},
		{
			name: "bad threshold",
			args: []string{"--refreshthreshold=-1s"},
		},
		{
			name: "bad coin type",
			args: []string{"--cointype=-2"},
		},
		{
			name: "unknown option",
			args: []string{"--rpcconnect=localhost"},
		},
	}

	for _, test := range tests {
		args := append([]string{"--appdata=" + dir}, test.args...)
		_, _, err := loadConfig(args)
		require.Error(t, err, test.name)
	}

	_, _, err := loadConfig([]string{"--appdata=" + dir, "-V"})
	require.ErrorIs(t, err, errShowVersion)
}

func TestParseAndSetDebugLevels(t *testing.T) {
	require.NoError(t, parseAndSetDebugLevels("debug"))
	require.NoError(t, parseAndSetDebugLevels("WLLT=trace,CHNS=warn"))

	require.Error(t, parseAndSetDebugLevels("loud"))
	require.Error(t, parseAndSetDebugLevels("WLLT"))
	require.Error(t, parseAndSetDebugLevels("GRPC=info"))
	require.Error(t, parseAndSetDebugLevels("WLLT=loud"))

	setLogLevels(defaultLogLevel)
}
