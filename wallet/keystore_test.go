// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"testing"

	"github.com/pillarproject/btcwallet/snacl"
	"github.com/stretchr/testify/require"
)

// fastScrypt keeps key derivation cheap in tests.
var fastScrypt = &ScryptOptions{N: 1024, R: 8, P: 1}

// TestDBKeystore checks that keys survive reopening with the right
// passphrase and are stored encrypted.
func TestDBKeystore(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, t.TempDir())
	pass := []byte("correct horse")

	_, err := OpenDBKeystore(db, pass)
	require.ErrorIs(t, err, ErrKeystoreNotFound)

	ks, err := CreateDBKeystore(db, pass, fastScrypt)
	require.NoError(t, err)

	_, err = CreateDBKeystore(db, pass, fastScrypt)
	require.ErrorIs(t, err, ErrKeystoreExists)

	require.NoError(t, ks.Put(testAddr0, testWIF0))
	require.NoError(t, ks.Put(testAddr1, "second"))

	got, err := ks.Get(testAddr0)
	require.NoError(t, err)
	require.Equal(t, testWIF0, got)

	_, err = ks.Get(testChangeAddr)
	require.ErrorIs(t, err, ErrKeyNotFound)

	// Keys are merged into the document, never stored in the clear.
	var rec keystoreRecord
	found, err := db.LoadDocument(KeystoreDocument, &rec)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, rec.Keys, 2)
	require.NotContains(t, string(rec.Keys[testAddr0]), testWIF0)

	ks.Lock()
	_, err = ks.Get(testAddr0)
	require.ErrorIs(t, err, snacl.ErrInvalidPassword)
	require.ErrorIs(t, ks.Put(testAddr0, testWIF0), snacl.ErrInvalidPassword)

	_, err = OpenDBKeystore(db, []byte("wrong"))
	require.ErrorIs(t, err, snacl.ErrInvalidPassword)

	reopened, err := OpenDBKeystore(db, pass)
	require.NoError(t, err)
	got, err = reopened.Get(testAddr1)
	require.NoError(t, err)
	require.Equal(t, "second", got)
}

// TestWalletWithDBKeystore runs wallet initialization against the encrypted
// keystore.
func TestWalletWithDBKeystore(t *testing.T) {
	t.Parallel()

	db := openTestDB(t, t.TempDir())
	ks, err := CreateDBKeystore(db, []byte("pass"), fastScrypt)
	require.NoError(t, err)

	h := newHarnessWithDB(t, db)
	h.wallet.cfg.Keystore = ks

	addr, err := h.wallet.InitializeWallet(
		context.Background(), testMnemonic,
	)
	require.NoError(t, err)
	require.Equal(t, testAddr0, addr)

	kp, err := h.wallet.keyPair(testAddr0)
	require.NoError(t, err)
	require.NotNil(t, kp.PrivKey)
}
