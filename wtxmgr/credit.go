// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// Credit is an unspent transaction output paying to one of the wallet's
// addresses.  Credits are values; the store copies them in and out.
type Credit struct {
	wire.OutPoint

	// Address is the wallet address the output pays to.
	Address string

	// Amount is the value of the output.
	Amount btcutil.Amount

	// PkScript is the output script being paid to.
	PkScript []byte

	// Height is the height of the block the output was mined in, or zero
	// when it is still unconfirmed.
	Height int32

	// Confirmations is the confirmation count reported by the indexer.
	Confirmations int32
}

// Confirmed reports whether the credit has at least one confirmation.
func (c *Credit) Confirmed() bool {
	return c.Confirmations > 0
}

// copyCredit returns c with its script duplicated so callers cannot alias the
// store's memory.
func copyCredit(c Credit) Credit {
	if c.PkScript != nil {
		c.PkScript = append([]byte(nil), c.PkScript...)
	}
	return c
}

// CompareOutPoints orders outpoints by transaction hash bytes and then by
// output index.
func CompareOutPoints(a, b *wire.OutPoint) int {
	if c := bytes.Compare(a.Hash[:], b.Hash[:]); c != 0 {
		return c
	}
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	}
	return 0
}
