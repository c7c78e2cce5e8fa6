// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import "errors"

var (
	// ErrInvalidMnemonic is returned when a seed phrase fails BIP-39
	// word list or checksum validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrInvalidPath is returned for a malformed derivation path.
	ErrInvalidPath = errors.New("invalid derivation path")

	// ErrDerivationFailed is returned when a key or address can not be
	// derived from otherwise well-formed input.
	ErrDerivationFailed = errors.New("key derivation failed")

	// ErrWrongNetwork is returned when an encoded key belongs to a
	// different network than the one requested.
	ErrWrongNetwork = errors.New("key is for a different network")

	// ErrNoPrivateKey is returned when a private key is required from a
	// public-only key.
	ErrNoPrivateKey = errors.New("key has no private part")
)
