// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// Balance is the derived balance of one address.
type Balance struct {
	// Confirmed is the sum of outputs with at least one confirmation.
	Confirmed btcutil.Amount

	// Unconfirmed is the sum of outputs still waiting to be mined.
	Unconfirmed btcutil.Amount
}

// Total returns the sum of confirmed and unconfirmed value.
func (b Balance) Total() btcutil.Amount {
	return b.Confirmed + b.Unconfirmed
}

// Store holds the unspent outputs of every address.  Address order is the
// order in which addresses were first given outputs.
//
// Store is not safe for concurrent use; the wallet serializes access to it.
type Store struct {
	order   []string
	unspent map[string][]Credit
}

// New returns an empty store.
func New() *Store {
	return &Store{
		unspent: make(map[string][]Credit),
	}
}

// ReplaceUnspent replaces every output cached for addr with credits.  The
// credits are copied, sorted by outpoint, and duplicate outpoints are dropped
// keeping the first occurrence.  Credits reporting a different address are
// stored under addr regardless.
func (s *Store) ReplaceUnspent(addr string, credits []Credit) {
	seen := make(map[wire.OutPoint]struct{}, len(credits))
	cached := make([]Credit, 0, len(credits))
	for _, c := range credits {
		if _, ok := seen[c.OutPoint]; ok {
			log.Debugf("Dropping duplicate output %v for %s",
				c.OutPoint, addr)
			continue
		}
		seen[c.OutPoint] = struct{}{}

		c = copyCredit(c)
		c.Address = addr
		cached = append(cached, c)
	}
	sort.SliceStable(cached, func(i, j int) bool {
		return CompareOutPoints(&cached[i].OutPoint,
			&cached[j].OutPoint) < 0
	})

	if _, ok := s.unspent[addr]; !ok {
		s.order = append(s.order, addr)
	}
	s.unspent[addr] = cached

	log.Tracef("Cached %d unspent outputs for %s", len(cached), addr)
}

// Prune drops the outputs of every address keep does not report.
func (s *Store) Prune(keep func(addr string) bool) {
	order := s.order[:0]
	for _, addr := range s.order {
		if keep(addr) {
			order = append(order, addr)
			continue
		}
		delete(s.unspent, addr)
		log.Debugf("Dropped cached outputs of %s", addr)
	}
	s.order = order
}

// UnspentForAddress returns a copy of the outputs cached for addr.
func (s *Store) UnspentForAddress(addr string) []Credit {
	cached := s.unspent[addr]
	credits := make([]Credit, 0, len(cached))
	for _, c := range cached {
		credits = append(credits, copyCredit(c))
	}
	return credits
}

// UnspentOutputs returns a copy of every cached output, ordered by address
// and then by outpoint.
func (s *Store) UnspentOutputs() []Credit {
	var credits []Credit
	for _, addr := range s.order {
		credits = append(credits, s.UnspentForAddress(addr)...)
	}
	return credits
}

// Addresses returns the addresses that have been given outputs, in the order
// they were first seen.
func (s *Store) Addresses() []string {
	return append([]string(nil), s.order...)
}

// Balance sums the outputs cached for addr.  An address that was never
// refreshed has a zero balance.
func (s *Store) Balance(addr string) Balance {
	var bal Balance
	for _, c := range s.unspent[addr] {
		if c.Confirmed() {
			bal.Confirmed += c.Amount
		} else {
			bal.Unconfirmed += c.Amount
		}
	}
	return bal
}

// Balances returns the derived balance of every address holding cached
// outputs.
func (s *Store) Balances() map[string]Balance {
	balances := make(map[string]Balance, len(s.order))
	for _, addr := range s.order {
		balances[addr] = s.Balance(addr)
	}
	return balances
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := New()
	for _, addr := range s.order {
		c.order = append(c.order, addr)
		c.unspent[addr] = s.UnspentForAddress(addr)
	}
	return c
}
