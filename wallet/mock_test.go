// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// This file contains mock collaborators used to isolate wallet logic from the
// indexer and the encrypted keystore.

package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/pillarproject/btcwallet/chain"
	"github.com/pillarproject/btcwallet/wtxmgr"
	"github.com/stretchr/testify/mock"
)

// mockIndexer is a mock implementation of the chain.Indexer interface.
type mockIndexer struct {
	mock.Mock
}

// A compile-time assertion to ensure that mockIndexer implements the
// chain.Indexer interface.
var _ chain.Indexer = (*mockIndexer)(nil)

// Unspent implements the chain.Indexer interface.
func (m *mockIndexer) Unspent(ctx context.Context,
	addr string) ([]wtxmgr.Credit, error) {

	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wtxmgr.Credit), args.Error(1)
}

// SendRawTransaction implements the chain.Indexer interface.
func (m *mockIndexer) SendRawTransaction(ctx context.Context,
	rawTx string) (string, error) {

	args := m.Called(ctx, rawTx)
	return args.String(0), args.Error(1)
}

// Transactions implements the chain.Indexer interface.
func (m *mockIndexer) Transactions(ctx context.Context,
	addr string) ([]chain.AddressTx, error) {

	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chain.AddressTx), args.Error(1)
}

// memKeystore is an unencrypted in-memory Keystore.
type memKeystore struct {
	mtx  sync.Mutex
	keys map[string]string

	// putErr, when set, fails every Put.
	putErr error
}

// A compile-time assertion to ensure that memKeystore implements the
// Keystore interface.
var _ Keystore = (*memKeystore)(nil)

func newMemKeystore() *memKeystore {
	return &memKeystore{keys: make(map[string]string)}
}

// Get implements the Keystore interface.
func (k *memKeystore) Get(address string) (string, error) {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	key, ok := k.keys[address]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, address)
	}
	return key, nil
}

// Put implements the Keystore interface.
func (k *memKeystore) Put(address, exported string) error {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.putErr != nil {
		return k.putErr
	}
	k.keys[address] = exported
	return nil
}

func (k *memKeystore) len() int {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	return len(k.keys)
}
