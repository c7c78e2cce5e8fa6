// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package waddrmgr

import (
	"time"

	"github.com/pillarproject/btcwallet/walletdb"
)

// DocumentName is the walletdb document the registry is persisted in.
const DocumentName = "bitcoin"

// addressRow is the persisted form of an Address.  UpdatedAt is stored in
// milliseconds since the unix epoch, zero meaning never refreshed.
type addressRow struct {
	Address   string `json:"address"`
	UpdatedAt int64  `json:"updatedAt"`
}

type registryRow struct {
	Addresses []addressRow `json:"addresses"`
}

func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Save writes the registry to db.  The document is merged so that other keys
// stored alongside the addresses survive.
func (m *Manager) Save(db *walletdb.DB) error {
	row := registryRow{
		Addresses: make([]addressRow, 0, len(m.addrs)),
	}
	for _, a := range m.addrs {
		row.Addresses = append(row.Addresses, addressRow{
			Address:   a.Address,
			UpdatedAt: timeToMillis(a.UpdatedAt),
		})
	}

	if err := db.SaveDocument(DocumentName, &row, true); err != nil {
		return managerError(ErrDatabase, "failed to save addresses", err)
	}
	return nil
}

// Load reads a registry previously written with Save.  A database without a
// saved registry yields an empty manager.
func Load(db *walletdb.DB) (*Manager, error) {
	var row registryRow
	if _, err := db.LoadDocument(DocumentName, &row); err != nil {
		return nil, managerError(ErrDatabase, "failed to load addresses",
			err)
	}

	m := New()
	for _, r := range row.Addresses {
		if r.Address == "" {
			continue
		}
		if _, ok := m.index[r.Address]; ok {
			continue
		}
		m.index[r.Address] = len(m.addrs)
		m.addrs = append(m.addrs, Address{
			Address:   r.Address,
			UpdatedAt: millisToTime(r.UpdatedAt),
		})
	}
	return m, nil
}
