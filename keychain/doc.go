// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package keychain derives the wallet's signing keys.

A BIP-39 seed phrase is turned into a BIP-32 root key, from which child keys
are derived along BIP-44 paths of the form

	m / 44' / coin_type' / account' / change / address_index

where coin_type comes from the network parameters (0 on mainnet, 1 on the
test networks) and change is 0 for receiving addresses and 1 for change.
Derived keys are exposed as KeyPairs, which encode to P2PKH addresses and
to compressed WIF strings for export.
*/
package keychain
