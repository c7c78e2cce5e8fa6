// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"sync"

	"github.com/pillarproject/btcwallet/internal/zero"
	"github.com/pillarproject/btcwallet/snacl"
	"github.com/pillarproject/btcwallet/walletdb"
)

// KeystoreDocument is the walletdb document holding encrypted keys.
const KeystoreDocument = "wallet"

// Keystore stores exported key pairs by address.
type Keystore interface {
	// Get returns the exported key pair of address, or ErrKeyNotFound.
	Get(address string) (string, error)

	// Put stores the exported key pair of address.
	Put(address, exported string) error
}

// ScryptOptions are the scrypt cost parameters of a new keystore.
type ScryptOptions struct {
	N, R, P int
}

// DefaultScryptOptions are the scrypt parameters used by CreateDBKeystore
// when none are given.
var DefaultScryptOptions = ScryptOptions{
	N: snacl.DefaultN,
	R: snacl.DefaultR,
	P: snacl.DefaultP,
}

// keystoreRecord is the JSON form of the keystore document.  Byte slices are
// stored base64 encoded.
type keystoreRecord struct {
	KeyParams []byte            `json:"keyParams,omitempty"`
	Keys      map[string][]byte `json:"keys,omitempty"`
}

// DBKeystore is a Keystore persisting keys in walletdb, each encrypted with a
// passphrase derived secret key.  New keys are merged into the stored
// document.
type DBKeystore struct {
	mtx sync.Mutex
	db  *walletdb.DB
	key *snacl.SecretKey
}

// A compile-time assertion to ensure DBKeystore implements Keystore.
var _ Keystore = (*DBKeystore)(nil)

// CreateDBKeystore creates a new keystore protected by passphrase.  A nil
// opts selects DefaultScryptOptions.
func CreateDBKeystore(db *walletdb.DB, passphrase []byte,
	opts *ScryptOptions) (*DBKeystore, error) {

	var existing keystoreRecord
	found, err := db.LoadDocument(KeystoreDocument, &existing)
	if err != nil {
		return nil, err
	}
	if found && existing.KeyParams != nil {
		return nil, ErrKeystoreExists
	}

	if opts == nil {
		opts = &DefaultScryptOptions
	}
	key, err := snacl.NewSecretKey(&passphrase, opts.N, opts.R, opts.P)
	if err != nil {
		return nil, fmt.Errorf("derive keystore key: %w", err)
	}

	rec := keystoreRecord{KeyParams: key.Marshal()}
	if err := db.SaveDocument(KeystoreDocument, &rec, true); err != nil {
		key.Zero()
		return nil, err
	}

	log.Infof("Created encrypted keystore")

	return &DBKeystore{db: db, key: key}, nil
}

// OpenDBKeystore unlocks an existing keystore.  A wrong passphrase returns
// snacl.ErrInvalidPassword.
func OpenDBKeystore(db *walletdb.DB, passphrase []byte) (*DBKeystore, error) {
	var rec keystoreRecord
	found, err := db.LoadDocument(KeystoreDocument, &rec)
	if err != nil {
		return nil, err
	}
	if !found || rec.KeyParams == nil {
		return nil, ErrKeystoreNotFound
	}

	var key snacl.SecretKey
	if err := key.Unmarshal(rec.KeyParams); err != nil {
		return nil, err
	}
	if err := key.DeriveKey(&passphrase); err != nil {
		return nil, err
	}

	return &DBKeystore{db: db, key: &key}, nil
}

// Get decrypts the key stored for address.
func (k *DBKeystore) Get(address string) (string, error) {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.key == nil {
		return "", snacl.ErrInvalidPassword
	}

	var rec keystoreRecord
	if _, err := k.db.LoadDocument(KeystoreDocument, &rec); err != nil {
		return "", err
	}
	enc, ok := rec.Keys[address]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, address)
	}

	plain, err := k.key.Decrypt(enc)
	if err != nil {
		return "", err
	}
	defer zero.Bytes(plain)

	return string(plain), nil
}

// Put encrypts and stores the key of address.
func (k *DBKeystore) Put(address, exported string) error {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.key == nil {
		return snacl.ErrInvalidPassword
	}

	enc, err := k.key.Encrypt([]byte(exported))
	if err != nil {
		return err
	}

	rec := keystoreRecord{Keys: map[string][]byte{address: enc}}
	return k.db.SaveDocument(KeystoreDocument, &rec, true)
}

// Lock wipes the in-memory key.  The keystore must be opened again to be
// used.
func (k *DBKeystore) Lock() {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.key != nil {
		k.key.Zero()
		k.key = nil
	}
}
