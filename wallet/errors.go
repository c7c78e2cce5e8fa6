// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import "errors"

var (
	// ErrNotInitialized is returned by operations needing the root key
	// before InitializeWallet has been called in this session.
	ErrNotInitialized = errors.New("wallet is not initialized")

	// ErrWrongSeed is returned when initializing a wallet with saved
	// addresses from a seed that did not derive them.
	ErrWrongSeed = errors.New("seed does not match the saved addresses")

	// ErrBroadcastFailed is returned when a signed transaction was not
	// accepted by the network.  The transaction may be sent again.
	ErrBroadcastFailed = errors.New("transaction broadcast failed")

	// ErrInsufficientFunds is returned when sending a plan that could not
	// be funded.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrKeyNotFound is returned by a Keystore without a key for the
	// requested address.
	ErrKeyNotFound = errors.New("no key stored for address")

	// ErrKeystoreNotFound is returned when opening a keystore that was
	// never created.
	ErrKeystoreNotFound = errors.New("keystore does not exist")

	// ErrKeystoreExists is returned when creating a keystore over an
	// existing one.
	ErrKeystoreExists = errors.New("keystore already exists")
)
