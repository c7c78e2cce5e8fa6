// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// TestNet4 is the network magic of the version 4 test network.
const TestNet4 wire.BitcoinNet = 0x1c163f28

// testNet4GenesisHash is the hash of the first block of the version 4 test
// network.
var testNet4GenesisHash, _ = chainhash.NewHashFromStr(
	"00000000da84f2bafbbc53dee25a72ae507ff4914b867c565be350b0da8bf043",
)

// testNet4ChainParams only carries what the wallet needs to encode keys and
// addresses.  The consensus fields are left zero since the wallet never
// validates blocks.
var testNet4ChainParams = chaincfg.Params{
	Name:        "testnet4",
	Net:         TestNet4,
	DefaultPort: "48333",
	GenesisHash: testNet4GenesisHash,

	// Human-readable part for Bech32 encoded segwit addresses, as defined in
	// BIP 173.
	Bech32HRPSegwit: "tb",

	// Address encoding magics
	PubKeyHashAddrID:        0x6f, // starts with m or n
	ScriptHashAddrID:        0xc4, // starts with 2
	WitnessPubKeyHashAddrID: 0x03, // starts with QW
	WitnessScriptHashAddrID: 0x28, // starts with T7n
	PrivateKeyID:            0xef, // starts with 9 (uncompressed) or c (compressed)

	// BIP32 hierarchical deterministic extended key magics
	HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94}, // starts with tprv
	HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf}, // starts with tpub

	// BIP44 coin type used in the hierarchical deterministic path for
	// address generation.
	HDCoinType: 1,
}
