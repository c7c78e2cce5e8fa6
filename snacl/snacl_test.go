// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package snacl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	password = []byte("sikrit")
	message  = []byte("this is a secret message of sorts")
)

// Tests use a cheap scrypt cost; the scheme is identical at any cost.
const (
	testN = 1024
	testR = 8
	testP = 1
)

func newTestKey(t *testing.T) *SecretKey {
	t.Helper()

	key, err := NewSecretKey(&password, testN, testR, testP)
	require.NoError(t, err)
	return key
}

func TestMarshalUnmarshalSecretKey(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	params := key.Marshal()
	require.Len(t, params, marshaledSize)

	var sk SecretKey
	require.NoError(t, sk.Unmarshal(params))
	require.Equal(t, key.Parameters, sk.Parameters)

	require.NoError(t, sk.DeriveKey(&password))
	require.Equal(t, key.Key[:], sk.Key[:])

	wrong := []byte("wrong password")
	require.ErrorIs(t, sk.DeriveKey(&wrong), ErrInvalidPassword)

	require.ErrorIs(t, sk.Unmarshal(params[1:]), ErrMalformed)
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)

	blob, err := key.Encrypt(message)
	require.NoError(t, err)
	require.Len(t, blob, NonceSize+Overhead+len(message))

	decrypted, err := key.Decrypt(blob)
	require.NoError(t, err)
	require.Equal(t, message, decrypted)

	// Encrypting twice uses fresh nonces.
	blob2, err := key.Encrypt(message)
	require.NoError(t, err)
	require.NotEqual(t, blob, blob2)

	blob[len(blob)-15]++
	_, err = key.Decrypt(blob)
	require.ErrorIs(t, err, ErrDecryptFailed)

	_, err = key.Decrypt(blob[:NonceSize+Overhead-1])
	require.ErrorIs(t, err, ErrMalformed)
}

func TestZeroAndDerive(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	blob, err := key.Encrypt(message)
	require.NoError(t, err)

	key.Zero()
	require.Equal(t, [KeySize]byte{}, [KeySize]byte(*key.Key))

	bogus := []byte("bogus")
	require.ErrorIs(t, key.DeriveKey(&bogus), ErrInvalidPassword)

	require.NoError(t, key.DeriveKey(&password))
	decrypted, err := key.Decrypt(blob)
	require.NoError(t, err)
	require.Equal(t, message, decrypted)
}

func TestGenerateCryptoKey(t *testing.T) {
	t.Parallel()

	ck, err := GenerateCryptoKey()
	require.NoError(t, err)
	require.NotEqual(t, CryptoKey{}, *ck)

	blob, err := ck.Encrypt(message)
	require.NoError(t, err)
	out, err := ck.Decrypt(blob)
	require.NoError(t, err)
	require.Equal(t, message, out)
}
