// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// KeyPair is a secp256k1 key pair together with the network its address is
// encoded for.  PrivKey is nil for watch-only pairs.
type KeyPair struct {
	PubKey  *btcec.PublicKey
	PrivKey *btcec.PrivateKey
	Net     *chaincfg.Params
}

// Address returns the P2PKH address of the compressed public key.
func (kp *KeyPair) Address() (*btcutil.AddressPubKeyHash, error) {
	if kp == nil || kp.PubKey == nil || kp.Net == nil {
		return nil, fmt.Errorf("%w: incomplete key pair",
			ErrDerivationFailed)
	}

	pkHash := btcutil.Hash160(kp.PubKey.SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(pkHash, kp.Net)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return addr, nil
}

// AddressFromKeyPair returns the encoded P2PKH address of kp.
func AddressFromKeyPair(kp *KeyPair) (string, error) {
	addr, err := kp.Address()
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// ExportKeyPair encodes the private key of kp as a compressed WIF string.
func ExportKeyPair(kp *KeyPair) (string, error) {
	if kp == nil || kp.PrivKey == nil {
		return "", ErrNoPrivateKey
	}
	if kp.Net == nil {
		return "", fmt.Errorf("%w: no network", ErrDerivationFailed)
	}

	wif, err := btcutil.NewWIF(kp.PrivKey, kp.Net, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return wif.String(), nil
}

// ImportKeyPair decodes a WIF string exported for net.
func ImportKeyPair(encoded string, net *chaincfg.Params) (*KeyPair, error) {
	wif, err := btcutil.DecodeWIF(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	if !wif.IsForNet(net) {
		return nil, ErrWrongNetwork
	}

	return &KeyPair{
		PubKey:  wif.PrivKey.PubKey(),
		PrivKey: wif.PrivKey,
		Net:     net,
	}, nil
}
