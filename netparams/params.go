// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Params is used to group parameters for various networks such as the main
// network and test networks.
type Params struct {
	*chaincfg.Params

	// IndexerURL is the default base URL of the bitcore-style indexer
	// serving this network.
	IndexerURL string
}

// MainNetParams contains parameters specific to running btcwallet on the
// main network (wire.MainNet).
var MainNetParams = Params{
	Params:     &chaincfg.MainNetParams,
	IndexerURL: "https://api.bitcore.io/api/BTC/mainnet",
}

// TestNet3Params contains parameters specific to running btcwallet on the
// test network (version 3) (wire.TestNet3).
var TestNet3Params = Params{
	Params:     &chaincfg.TestNet3Params,
	IndexerURL: "https://api.bitcore.io/api/BTC/testnet",
}

// TestNet4Params contains parameters specific to running btcwallet on the
// test network (version 4).
var TestNet4Params = Params{
	Params:     &testNet4ChainParams,
	IndexerURL: "https://api.bitcore.io/api/BTC/testnet4",
}

// RegressionNetParams contains parameters specific to a local regression
// test network (wire.TestNet).
var RegressionNetParams = Params{
	Params:     &chaincfg.RegressionNetParams,
	IndexerURL: "http://localhost:3000/api/BTC/regtest",
}

// SimNetParams contains parameters specific to the simulation test network
// (wire.SimNet).
var SimNetParams = Params{
	Params:     &chaincfg.SimNetParams,
	IndexerURL: "http://localhost:3000/api/BTC/simnet",
}

// ByName returns the parameters of the network with the given chaincfg name.
func ByName(name string) (*Params, error) {
	for _, p := range []*Params{
		&MainNetParams, &TestNet3Params, &TestNet4Params,
		&RegressionNetParams, &SimNetParams,
	} {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown network %q", name)
}
