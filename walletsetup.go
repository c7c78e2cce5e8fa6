// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"io"
	"sync"

	"github.com/pillarproject/btcwallet/chain"
	"github.com/pillarproject/btcwallet/internal/prompt"
	"github.com/pillarproject/btcwallet/internal/zero"
	"github.com/pillarproject/btcwallet/wallet"
	"github.com/pillarproject/btcwallet/walletdb"
)

// session bundles the wallet and the terminal a command runs with.
type session struct {
	cfg      *config
	db       *walletdb.DB
	wallet   *wallet.Wallet
	keystore *promptKeystore
	reader   *bufio.Reader
	out      io.Writer

	// newPass asks for the passphrase of a new keystore.
	newPass func() ([]byte, error)

	// scrypt tunes the keystore key derivation.  Nil selects
	// wallet.DefaultScryptOptions.
	scrypt *wallet.ScryptOptions
}

// newSession builds the wallet of cfg on top of db.
func newSession(cfg *config, db *walletdb.DB, in io.Reader,
	out io.Writer) (*session, error) {

	indexer, err := chain.NewBitcoreClient(&chain.BitcoreConfig{
		URL:     cfg.IndexerURL.Value,
		Timeout: cfg.IndexerTimeout,
	})
	if err != nil {
		return nil, err
	}

	ks := newPromptKeystore(db, prompt.ProvidePrivPassphrase)
	w, err := wallet.New(&wallet.Config{
		Net:              cfg.activeNet.Params,
		Indexer:          indexer,
		Keystore:         ks,
		DB:               db,
		FeeTiers:         cfg.feeTiers(),
		RefreshThreshold: cfg.RefreshThreshold,
		Account:          cfg.Account,
		CoinType:         cfg.coinType(),
	})
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		db:       db,
		wallet:   w,
		keystore: ks,
		reader:   bufio.NewReader(in),
		out:      out,
		newPass:  prompt.PrivatePass,
	}, nil
}

// promptKeystore is a wallet.Keystore that unlocks the database keystore with
// a prompted passphrase the first time a key is needed.  Commands that never
// touch a key never ask for the passphrase.
type promptKeystore struct {
	db         *walletdb.DB
	passphrase func() ([]byte, error)

	mtx sync.Mutex
	ks  *wallet.DBKeystore
}

var _ wallet.Keystore = (*promptKeystore)(nil)

func newPromptKeystore(db *walletdb.DB,
	passphrase func() ([]byte, error)) *promptKeystore {

	return &promptKeystore{db: db, passphrase: passphrase}
}

// create creates the database keystore, asking for a new passphrase.
func (k *promptKeystore) create(passphrase func() ([]byte, error),
	opts *wallet.ScryptOptions) error {

	k.mtx.Lock()
	defer k.mtx.Unlock()

	pass, err := passphrase()
	if err != nil {
		return err
	}
	defer zero.Bytes(pass)

	ks, err := wallet.CreateDBKeystore(k.db, pass, opts)
	if err != nil {
		return err
	}
	k.ks = ks
	return nil
}

// unlock opens the database keystore unless it already is.  A failed unlock
// is retried on the next call.
func (k *promptKeystore) unlock() (*wallet.DBKeystore, error) {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.ks != nil {
		return k.ks, nil
	}

	pass, err := k.passphrase()
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(pass)

	ks, err := wallet.OpenDBKeystore(k.db, pass)
	if err != nil {
		return nil, err
	}
	k.ks = ks
	return ks, nil
}

// Get returns the exported key of address.
func (k *promptKeystore) Get(address string) (string, error) {
	ks, err := k.unlock()
	if err != nil {
		return "", err
	}
	return ks.Get(address)
}

// Put stores the exported key of address.
func (k *promptKeystore) Put(address, exported string) error {
	ks, err := k.unlock()
	if err != nil {
		return err
	}
	return ks.Put(address, exported)
}

// lock wipes the unlocked keystore key, if any.
func (k *promptKeystore) lock() {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.ks != nil {
		k.ks.Lock()
		k.ks = nil
	}
}
