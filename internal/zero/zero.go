// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package zero contains functions to clear seed and key material from memory.
package zero

// Bytes sets all bytes in the passed slice to zero.  This is used to
// explicitly clear BIP-39 seeds and serialized private keys once they are no
// longer needed.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Bytea32 clears the 32-byte array by filling it with the zero value.  The
// snacl secret keys are stored in arrays of this size.
func Bytea32(b *[32]byte) {
	*b = [32]byte{}
}
