// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pillarproject/btcwallet/chain"
)

// TxStatus is the confirmation state of a history entry.
type TxStatus string

const (
	// TxPending marks transactions without confirmations.
	TxPending TxStatus = "pending"

	// TxConfirmed marks transactions mined at least once.
	TxConfirmed TxStatus = "confirmed"
)

// HistoryEntry is a transaction seen from the point of view of one wallet
// address.
type HistoryEntry struct {
	Hash string
	From string
	To   string

	// Value is what the address received, or for outgoing transactions
	// what left the address.
	Value btcutil.Amount
	Fee   btcutil.Amount

	Confirmations int32
	Status        TxStatus
	CreatedAt     time.Time
}

// Outgoing reports whether the entry spends from the address it was
// extracted for.
func (e *HistoryEntry) Outgoing(addr string) bool {
	return e.From == addr
}

// ExtractHistory turns the indexer history of addr into one entry per
// transaction, in indexer order.
//
// A transaction spending any output of addr is outgoing: it is sent to the
// first output paying elsewhere and its value is the total paid elsewhere.
// Otherwise it is incoming from the first input's address and its value is
// the total paid to addr.
func ExtractHistory(addr string, txs []chain.AddressTx) []HistoryEntry {
	seen := make(map[string]struct{}, len(txs))
	entries := make([]HistoryEntry, 0, len(txs))
	for i := range txs {
		d := &txs[i].Details
		if d.Txid == "" {
			continue
		}
		if _, ok := seen[d.Txid]; ok {
			continue
		}
		seen[d.Txid] = struct{}{}

		entry := HistoryEntry{
			Hash:          d.Txid,
			Fee:           d.Fee,
			Confirmations: d.Confirmations,
			Status:        TxPending,
			CreatedAt:     d.BlockTime,
		}
		if d.Confirmations > 0 {
			entry.Status = TxConfirmed
		}

		if spendsFrom(d.Inputs, addr) {
			// Self transfers keep addr as the recipient.
			entry.From = addr
			entry.To = addr
			paidOut := false
			for _, out := range d.Outputs {
				if out.Address == addr {
					continue
				}
				if !paidOut {
					entry.To = out.Address
					paidOut = true
				}
				entry.Value += out.Value
			}
		} else {
			if len(d.Inputs) > 0 {
				entry.From = d.Inputs[0].Address
			}
			entry.To = addr
			for _, out := range d.Outputs {
				if out.Address == addr {
					entry.Value += out.Value
				}
			}
		}

		entries = append(entries, entry)
	}
	return entries
}

func spendsFrom(inputs []chain.Coin, addr string) bool {
	for _, in := range inputs {
		if in.Address == addr {
			return true
		}
	}
	return false
}
