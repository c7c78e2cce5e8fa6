// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txsizes estimates the serialized size of legacy P2PKH transactions
// before they are signed.
package txsizes

import (
	"github.com/btcsuite/btcd/wire"
)

// Worst case script and input/output size estimates.
const (
	// RedeemP2PKHSigScriptSize is the worst case (largest) serialize size
	// of a transaction input script that redeems a compressed P2PKH output
	// signed with a low-S signature.  It is calculated as:
	//
	//   - OP_DATA_72
	//   - 71 bytes DER signature + 1 byte sighash
	//   - OP_DATA_33
	//   - 33 bytes serialized compressed pubkey
	RedeemP2PKHSigScriptSize = 1 + 72 + 1 + 33

	// P2PKHPkScriptSize is the size of a transaction output script that
	// pays to a compressed pubkey hash.  It is calculated as:
	//
	//   - OP_DUP
	//   - OP_HASH160
	//   - OP_DATA_20
	//   - 20 bytes pubkey hash
	//   - OP_EQUALVERIFY
	//   - OP_CHECKSIG
	P2PKHPkScriptSize = 1 + 1 + 1 + 20 + 1 + 1

	// P2SHPkScriptSize is the size of a transaction output script that
	// pays to a script hash.  It is calculated as:
	//
	//   - OP_HASH160
	//   - OP_DATA_20
	//   - 20 bytes script hash
	//   - OP_EQUAL
	P2SHPkScriptSize = 1 + 1 + 20 + 1

	// RedeemP2PKHInputSize is the worst case (largest) serialize size of a
	// transaction input redeeming a compressed P2PKH output.  It is
	// calculated as:
	//
	//   - 32 bytes previous tx
	//   - 4 bytes output index
	//   - 1 byte compact int encoding value 107
	//   - 107 bytes signature script
	//   - 4 bytes sequence
	RedeemP2PKHInputSize = 32 + 4 + 1 + RedeemP2PKHSigScriptSize + 4

	// P2PKHOutputSize is the serialize size of a transaction output with a
	// P2PKH output script.  It is calculated as:
	//
	//   - 8 bytes output value
	//   - 1 byte compact int encoding value 25
	//   - 25 bytes P2PKH output script
	P2PKHOutputSize = 8 + 1 + P2PKHPkScriptSize
)

// OutputSize returns the serialize size of a transaction output carrying a
// script of the given length.
func OutputSize(scriptSize int) int {
	return 8 + wire.VarIntSerializeSize(uint64(scriptSize)) + scriptSize
}

// SumOutputSerializeSizes sums up the serialized size of outputs carrying
// scripts of the supplied lengths.
func SumOutputSerializeSizes(scriptSizes []int) (serializeSize int) {
	for _, l := range scriptSizes {
		serializeSize += OutputSize(l)
	}
	return serializeSize
}

// EstimateSerializeSize returns a worst case serialize size estimate for a
// signed transaction that spends inputCount number of compressed P2PKH outputs
// and contains one output for each script length in outputScriptSizes.  The
// estimated size is incremented for an additional change output if
// changeScriptSize is greater than zero.
func EstimateSerializeSize(inputCount int, outputScriptSizes []int,
	changeScriptSize int) int {

	changeSize := 0
	outputCount := len(outputScriptSizes)
	if changeScriptSize > 0 {
		changeSize = OutputSize(changeScriptSize)
		outputCount++
	}

	// 8 additional bytes are for version and locktime
	return 8 + wire.VarIntSerializeSize(uint64(inputCount)) +
		wire.VarIntSerializeSize(uint64(outputCount)) +
		inputCount*RedeemP2PKHInputSize +
		SumOutputSerializeSizes(outputScriptSizes) +
		changeSize
}
