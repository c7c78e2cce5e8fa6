// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/pillarproject/btcwallet/waddrmgr"
	"github.com/pillarproject/btcwallet/wtxmgr"
)

// DefaultRefreshThreshold is the minimum age of an address refresh before the
// address is queried again without force.
const DefaultRefreshThreshold = time.Minute

// Action is a state transition applied by Reducer.Dispatch.
type Action interface {
	isAction()
}

// SetAddresses replaces the address list.  Every address starts out never
// refreshed, and cached outputs of addresses left out are dropped.
type SetAddresses struct {
	Addresses []string
}

// CreatedAddress appends a freshly derived address.  An empty address is
// treated as CreationFailed.
type CreatedAddress struct {
	Address string
}

// UpdateBalance replaces the unspent outputs of a known address with a fresh
// indexer snapshot and marks the address refreshed.
type UpdateBalance struct {
	Address string
	Unspent []wtxmgr.Credit
}

// CreationFailed sets the sticky wallet creation failure flag.
type CreationFailed struct{}

func (SetAddresses) isAction()   {}
func (CreatedAddress) isAction() {}
func (UpdateBalance) isAction()  {}
func (CreationFailed) isAction() {}

// Reducer owns the address registry and the unspent output cache.  All state
// changes go through Dispatch, which applies one transition at a time.
type Reducer struct {
	mtx sync.RWMutex

	clock     clock.Clock
	threshold time.Duration

	addrs          *waddrmgr.Manager
	utxos          *wtxmgr.Store
	creationFailed bool
}

// NewReducer returns an empty reducer timing refreshes with c.  A
// non-positive threshold selects DefaultRefreshThreshold.
func NewReducer(c clock.Clock, threshold time.Duration) *Reducer {
	if c == nil {
		c = clock.NewDefaultClock()
	}
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	return &Reducer{
		clock:     c,
		threshold: threshold,
		addrs:     waddrmgr.New(),
		utxos:     wtxmgr.New(),
	}
}

// Dispatch applies a and reports whether the state changed.  Balance updates
// for unknown addresses are late responses and are dropped.
func (r *Reducer) Dispatch(a Action) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	switch a := a.(type) {
	case SetAddresses:
		r.addrs.SetAddresses(a.Addresses)
		r.utxos.Prune(r.addrs.IsKnown)
		return true

	case CreatedAddress:
		if a.Address == "" {
			r.creationFailed = true
			return true
		}
		if err := r.addrs.AddAddress(a.Address); err != nil {
			log.Debugf("Ignoring created address: %v", err)
			return false
		}
		return true

	case UpdateBalance:
		if !r.addrs.IsKnown(a.Address) {
			log.Debugf("Dropping balance update for unknown "+
				"address %s", a.Address)
			return false
		}
		r.utxos.ReplaceUnspent(a.Address, a.Unspent)

		// Touch cannot fail for a known address.
		t, _ := r.addrs.Touch(a.Address, r.clock.Now())
		log.Tracef("Address %s refreshed at %v with %d outputs",
			a.Address, t, len(a.Unspent))
		return true

	case CreationFailed:
		r.creationFailed = true
		return true

	default:
		log.Errorf("Unknown reducer action %T", a)
		return false
	}
}

// NeedsRefresh reports whether addr should be queried now.  Unknown addresses
// never need a refresh.
func (r *Reducer) NeedsRefresh(addr string, force bool) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	a, err := r.addrs.Lookup(addr)
	if err != nil {
		return false
	}
	return force || waddrmgr.IsOutdated(a, r.clock.Now(), r.threshold)
}

// Outdated returns the addresses due for a refresh, or every address when
// force is set.
func (r *Reducer) Outdated(force bool) []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	if force {
		return r.addrs.AddressStrings()
	}
	outdated := r.addrs.Outdated(r.clock.Now(), r.threshold)
	addrs := make([]string, 0, len(outdated))
	for _, a := range outdated {
		addrs = append(addrs, a.Address)
	}
	return addrs
}

// Addresses returns the registry entries in registration order.
func (r *Reducer) Addresses() []waddrmgr.Address {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.addrs.Addresses()
}

// IsKnown reports whether addr is registered.
func (r *Reducer) IsKnown(addr string) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.addrs.IsKnown(addr)
}

// Unspent returns every cached unspent output.
func (r *Reducer) Unspent() []wtxmgr.Credit {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.utxos.UnspentOutputs()
}

// Balances returns the balance of every address with cached outputs.
func (r *Reducer) Balances() map[string]wtxmgr.Balance {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.utxos.Balances()
}

// CreationFailed reports whether wallet creation has failed.
func (r *Reducer) CreationFailed() bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.creationFailed
}

// snapshot returns deep copies of the registry and the cache.
func (r *Reducer) snapshot() (*waddrmgr.Manager, *wtxmgr.Store) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.addrs.Clone(), r.utxos.Clone()
}
