// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package waddrmgr

import (
	"fmt"
	"time"
)

// Address is a registered wallet address along with the time its outputs
// were last refreshed from the indexer.
type Address struct {
	// Address is the encoded address string.
	Address string

	// UpdatedAt is the time of the last successful refresh.  The zero
	// value means the address has never been refreshed.
	UpdatedAt time.Time
}

// Refreshed reports whether the address has been refreshed at least once.
func (a *Address) Refreshed() bool {
	return !a.UpdatedAt.IsZero()
}

// Manager is the append-only registry of wallet addresses.  Addresses are
// kept in registration order and are never removed.
//
// Manager is not safe for concurrent use; the wallet serializes access to it.
type Manager struct {
	addrs []Address
	index map[string]int
}

// New returns an empty address manager.
func New() *Manager {
	return &Manager{
		index: make(map[string]int),
	}
}

// SetAddresses replaces the registry with addrs, each marked as never
// refreshed.  Repeated and empty addresses are dropped, keeping the first
// occurrence.
func (m *Manager) SetAddresses(addrs []string) {
	m.addrs = make([]Address, 0, len(addrs))
	m.index = make(map[string]int, len(addrs))
	for _, a := range addrs {
		if a == "" {
			continue
		}
		if _, ok := m.index[a]; ok {
			continue
		}
		m.index[a] = len(m.addrs)
		m.addrs = append(m.addrs, Address{Address: a})
	}
}

// AddAddress appends addr to the registry as never refreshed.
func (m *Manager) AddAddress(addr string) error {
	if addr == "" {
		return managerError(ErrEmptyAddress, "address is empty", nil)
	}
	if _, ok := m.index[addr]; ok {
		str := fmt.Sprintf("address %s already registered", addr)
		return managerError(ErrDuplicateAddress, str, nil)
	}

	m.index[addr] = len(m.addrs)
	m.addrs = append(m.addrs, Address{Address: addr})

	log.Debugf("Registered address %s", addr)

	return nil
}

// Touch records a refresh of addr at t.  Refresh times only move forward: if
// t is not after the stored time, the stored time advances by one nanosecond
// instead.  The resulting refresh time is returned.
func (m *Manager) Touch(addr string, t time.Time) (time.Time, error) {
	i, ok := m.index[addr]
	if !ok {
		str := fmt.Sprintf("address %s not registered", addr)
		return time.Time{}, managerError(ErrUnknownAddress, str, nil)
	}

	a := &m.addrs[i]
	if !t.After(a.UpdatedAt) {
		t = a.UpdatedAt.Add(time.Nanosecond)
	}
	a.UpdatedAt = t

	return t, nil
}

// Lookup returns the registry entry for addr.
func (m *Manager) Lookup(addr string) (Address, error) {
	i, ok := m.index[addr]
	if !ok {
		str := fmt.Sprintf("address %s not registered", addr)
		return Address{}, managerError(ErrUnknownAddress, str, nil)
	}
	return m.addrs[i], nil
}

// IsKnown reports whether addr is registered.
func (m *Manager) IsKnown(addr string) bool {
	_, ok := m.index[addr]
	return ok
}

// Addresses returns a copy of the registry in registration order.
func (m *Manager) Addresses() []Address {
	return append([]Address(nil), m.addrs...)
}

// AddressStrings returns the registered address strings in registration
// order.
func (m *Manager) AddressStrings() []string {
	addrs := make([]string, 0, len(m.addrs))
	for _, a := range m.addrs {
		addrs = append(addrs, a.Address)
	}
	return addrs
}

// Len returns the number of registered addresses.
func (m *Manager) Len() int {
	return len(m.addrs)
}

// Outdated returns the addresses whose last refresh is at least threshold
// before now.  Never refreshed addresses are always outdated.
func (m *Manager) Outdated(now time.Time, threshold time.Duration) []Address {
	var outdated []Address
	for _, a := range m.addrs {
		if IsOutdated(a, now, threshold) {
			outdated = append(outdated, a)
		}
	}
	return outdated
}

// IsOutdated reports whether a is due for a refresh at now.
func IsOutdated(a Address, now time.Time, threshold time.Duration) bool {
	if !a.Refreshed() {
		return true
	}
	return now.Sub(a.UpdatedAt) >= threshold
}

// Clone returns a deep copy of the manager.
func (m *Manager) Clone() *Manager {
	c := New()
	c.addrs = m.Addresses()
	for k, v := range m.index {
		c.index[k] = v
	}
	return c
}
