// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package walletdb persists wallet state as named JSON documents inside a single
bolt database file.

The wallet keeps three documents: "bitcoin" holds the address registry,
"bitcoinUtxos" holds the unspent outputs cached per address, and "wallet"
holds the encrypted keystore.  Documents may be written either by replacing
the stored value or by deep-merging the new JSON object into it, which lets
independent writers add keys to the same document without clobbering each
other.

Every DB is bound to a Registry that tracks the documents being written during
one wallet session.  The registry serializes concurrent writes to the same
document and, once closed, rejects all further writes.

Usage

	reg := walletdb.NewRegistry()
	db, err := walletdb.Open("path/to/wallet.db", time.Second, reg)
	if err != nil {
		// Handle error
	}
	defer db.Close()

	err = db.SaveDocument("bitcoin", registry, false)
*/
package walletdb
