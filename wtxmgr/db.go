// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pillarproject/btcwallet/walletdb"
)

// DocumentName is the walletdb document the store is persisted in.
const DocumentName = "bitcoinUtxos"

// creditRecord is the persisted form of a Credit.
type creditRecord struct {
	Txid          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Address       string `json:"address"`
	Value         int64  `json:"value"`
	Script        string `json:"script"`
	Height        int32  `json:"height"`
	Confirmations int32  `json:"confirmations"`
}

type addressRecord struct {
	Address string         `json:"address"`
	Unspent []creditRecord `json:"unspent"`
}

type storeRecord struct {
	Addresses []addressRecord `json:"addresses"`
}

func valueCredit(c *Credit) creditRecord {
	return creditRecord{
		Txid:          c.Hash.String(),
		Vout:          c.Index,
		Address:       c.Address,
		Value:         int64(c.Amount),
		Script:        hex.EncodeToString(c.PkScript),
		Height:        c.Height,
		Confirmations: c.Confirmations,
	}
}

func readCredit(r *creditRecord) (Credit, error) {
	hash, err := chainhash.NewHashFromStr(r.Txid)
	if err != nil {
		return Credit{}, fmt.Errorf("credit txid: %w", err)
	}
	script, err := hex.DecodeString(r.Script)
	if err != nil {
		return Credit{}, fmt.Errorf("credit script: %w", err)
	}
	return Credit{
		OutPoint:      wire.OutPoint{Hash: *hash, Index: r.Vout},
		Address:       r.Address,
		Amount:        btcutil.Amount(r.Value),
		PkScript:      script,
		Height:        r.Height,
		Confirmations: r.Confirmations,
	}, nil
}

// Save writes the store to db, replacing any previously saved outputs.
func (s *Store) Save(db *walletdb.DB) error {
	rec := storeRecord{
		Addresses: make([]addressRecord, 0, len(s.order)),
	}
	for _, addr := range s.order {
		cached := s.unspent[addr]
		ar := addressRecord{
			Address: addr,
			Unspent: make([]creditRecord, 0, len(cached)),
		}
		for i := range cached {
			ar.Unspent = append(ar.Unspent, valueCredit(&cached[i]))
		}
		rec.Addresses = append(rec.Addresses, ar)
	}

	return db.SaveDocument(DocumentName, &rec, false)
}

// Load reads a store previously written with Save.  A database without saved
// outputs yields an empty store.
func Load(db *walletdb.DB) (*Store, error) {
	var rec storeRecord
	if _, err := db.LoadDocument(DocumentName, &rec); err != nil {
		return nil, err
	}

	s := New()
	for _, ar := range rec.Addresses {
		credits := make([]Credit, 0, len(ar.Unspent))
		for i := range ar.Unspent {
			c, err := readCredit(&ar.Unspent[i])
			if err != nil {
				return nil, fmt.Errorf("load outputs of %s: %w",
					ar.Address, err)
			}
			credits = append(credits, c)
		}
		s.ReplaceUnspent(ar.Address, credits)
	}
	return s, nil
}
