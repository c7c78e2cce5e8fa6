// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pillarproject/btcwallet/internal/zero"
	"github.com/tyler-smith/go-bip39"
)

// ExtendedKey is a BIP-32 extended key bound to the network it was created
// for.
type ExtendedKey struct {
	key *hdkeychain.ExtendedKey
	net *chaincfg.Params
}

// NormalizeMnemonic lowercases the phrase and collapses runs of whitespace to
// single spaces.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// DeriveRoot validates a BIP-39 seed phrase and returns the BIP-32 root key
// of the seed it encodes, using an empty passphrase.
func DeriveRoot(mnemonic string, net *chaincfg.Params) (*ExtendedKey, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	defer zero.Bytes(seed)

	return NewRootFromSeed(seed, net)
}

// NewRootFromSeed returns the BIP-32 root key of a raw seed.  The seed must be
// between 16 and 64 bytes.
func NewRootFromSeed(seed []byte, net *chaincfg.Params) (*ExtendedKey, error) {
	if net == nil {
		return nil, fmt.Errorf("%w: no network", ErrDerivationFailed)
	}

	key, err := hdkeychain.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}

	log.Tracef("Created %s root key", net.Name)

	return &ExtendedKey{key: key, net: net}, nil
}

// ParseExtendedKey decodes a serialized xprv or xpub for net.
func ParseExtendedKey(s string, net *chaincfg.Params) (*ExtendedKey, error) {
	key, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	if !key.IsForNet(net) {
		return nil, ErrWrongNetwork
	}
	return &ExtendedKey{key: key, net: net}, nil
}

// DerivePath derives the descendant of root at path.
func DerivePath(root *ExtendedKey, path string) (*ExtendedKey, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: no root key", ErrDerivationFailed)
	}
	return root.DerivePath(path)
}

// DerivePath derives the descendant of k at path, which is interpreted
// relative to k.
func (k *ExtendedKey) DerivePath(path string) (*ExtendedKey, error) {
	indexes, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	key := k.key
	for _, idx := range indexes {
		key, err = key.Derive(idx)
		switch {
		case errors.Is(err, hdkeychain.ErrDeriveHardFromPublic):
			return nil, fmt.Errorf("%w: hardened child of public "+
				"key", ErrDerivationFailed)

		// Invalid children occur with probability below 1 in 2^127;
		// callers move on to the next index.
		case err != nil:
			return nil, fmt.Errorf("%w: child %d: %v",
				ErrDerivationFailed, idx, err)
		}
	}

	return &ExtendedKey{key: key, net: k.net}, nil
}

// Net returns the network the key is bound to.
func (k *ExtendedKey) Net() *chaincfg.Params {
	return k.net
}

// IsPrivate reports whether the key carries its private part.
func (k *ExtendedKey) IsPrivate() bool {
	return k.key.IsPrivate()
}

// Neuter returns the public-only version of the key.
func (k *ExtendedKey) Neuter() (*ExtendedKey, error) {
	pub, err := k.key.Neuter()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return &ExtendedKey{key: pub, net: k.net}, nil
}

// String returns the base58 xprv or xpub serialization of the key.
func (k *ExtendedKey) String() string {
	return k.key.String()
}

// KeyPair returns the key pair of the extended key.  The private key is nil
// for public-only keys.
func (k *ExtendedKey) KeyPair() (*KeyPair, error) {
	pub, err := k.key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}

	kp := &KeyPair{PubKey: pub, Net: k.net}
	if k.key.IsPrivate() {
		kp.PrivKey, err = k.key.ECPrivKey()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDerivationFailed,
				err)
		}
	}
	return kp, nil
}
