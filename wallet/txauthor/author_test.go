// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pillarproject/btcwallet/keychain"
	"github.com/pillarproject/btcwallet/wallet/txsizes"
	"github.com/pillarproject/btcwallet/wtxmgr"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon about"

var netParams = &chaincfg.MainNetParams

// testKeys derives the first n receiving key pairs of the test mnemonic.
func testKeys(t *testing.T, n uint32) []*keychain.KeyPair {
	t.Helper()

	root, err := keychain.DeriveRoot(testMnemonic, netParams)
	require.NoError(t, err)

	keys := make([]*keychain.KeyPair, 0, n)
	for i := uint32(0); i < n; i++ {
		child, err := root.DerivePath(keychain.ReceivePath(
			netParams.HDCoinType, 0, i))
		require.NoError(t, err)
		kp, err := child.KeyPair()
		require.NoError(t, err)
		keys = append(keys, kp)
	}
	return keys
}

// keySource resolves addresses to the given key pairs.
func keySource(t *testing.T, keys ...*keychain.KeyPair) KeyPairSource {
	byAddr := make(map[string]*keychain.KeyPair, len(keys))
	for _, kp := range keys {
		addr, err := keychain.AddressFromKeyPair(kp)
		require.NoError(t, err)
		byAddr[addr] = kp
	}
	return func(addr string) (*keychain.KeyPair, error) {
		kp, ok := byAddr[addr]
		if !ok {
			return nil, fmt.Errorf("no key for %s", addr)
		}
		return kp, nil
	}
}

// p2pkhCredit returns a credit of amount paying to the address of kp.
func p2pkhCredit(t *testing.T, kp *keychain.KeyPair, id byte,
	amount btcutil.Amount) wtxmgr.Credit {

	addr, err := kp.Address()
	require.NoError(t, err)
	pkScript, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)

	c := makeCredit(id, uint32(id)%3, amount)
	c.Address = addr.EncodeAddress()
	c.PkScript = pkScript
	return c
}

func decodeTx(t *testing.T, txHex string) *wire.MsgTx {
	t.Helper()

	raw, err := hex.DecodeString(txHex)
	require.NoError(t, err)

	var tx wire.MsgTx
	require.NoError(t, tx.Deserialize(bytes.NewReader(raw)))
	return &tx
}

// verifyInputs runs every input of tx through the script engine.
func verifyInputs(t *testing.T, tx *wire.MsgTx, inputs []wtxmgr.Credit) {
	t.Helper()

	prevOuts := txscript.NewMultiPrevOutFetcher(nil)
	for _, in := range inputs {
		prevOuts.AddPrevOut(in.OutPoint,
			wire.NewTxOut(int64(in.Amount), in.PkScript))
	}
	hashCache := txscript.NewTxSigHashes(tx, prevOuts)

	for i, in := range inputs {
		vm, err := txscript.NewEngine(in.PkScript, tx, i,
			txscript.StandardVerifyFlags, nil, hashCache,
			int64(in.Amount), prevOuts)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}
}

func TestBuildTransaction(t *testing.T) {
	t.Parallel()

	keys := testKeys(t, 2)
	utxos := []wtxmgr.Credit{
		p2pkhCredit(t, keys[0], 1, 40000),
		p2pkhCredit(t, keys[1], 2, 35000),
		p2pkhCredit(t, keys[0], 3, 1000),
	}
	targets := []TransactionTarget{{Address: payee, Value: 60000}}

	plan, err := SelectCoins(utxos, targets, testFeeRate, fixedChange)
	require.NoError(t, err)
	require.True(t, plan.IsValid)
	require.Len(t, plan.Inputs, 2)

	signer := keySource(t, keys...)
	txHex, err := BuildTransaction(plan, signer, netParams)
	require.NoError(t, err)

	tx := decodeTx(t, txHex)
	require.Equal(t, int32(1), tx.Version)
	require.Zero(t, tx.LockTime)

	require.Len(t, tx.TxIn, len(plan.Inputs))
	for i, in := range tx.TxIn {
		require.Equal(t, plan.Inputs[i].OutPoint, in.PreviousOutPoint)
		require.Equal(t, uint32(wire.MaxTxInSequenceNum), in.Sequence)
		require.Empty(t, in.Witness)
	}

	require.Len(t, tx.TxOut, len(plan.Outputs))
	for i, out := range tx.TxOut {
		addr, err := btcutil.DecodeAddress(plan.Outputs[i].Address,
			netParams)
		require.NoError(t, err)
		script, err := txscript.PayToAddrScript(addr)
		require.NoError(t, err)

		require.Equal(t, script, out.PkScript)
		require.Equal(t, int64(plan.Outputs[i].Value), out.Value)
	}

	verifyInputs(t, tx, plan.Inputs)

	// The estimate used for the fee is an upper bound.
	require.LessOrEqual(t, tx.SerializeSize(),
		txsizes.EstimateSerializeSize(len(tx.TxIn),
			[]int{txsizes.P2PKHPkScriptSize},
			txsizes.P2PKHPkScriptSize))

	// Signatures are deterministic, so is the serialization.
	again, err := BuildTransaction(plan, signer, netParams)
	require.NoError(t, err)
	require.Equal(t, txHex, again)
}

func TestBuildTransactionRebuildsMissingScript(t *testing.T) {
	t.Parallel()

	keys := testKeys(t, 1)
	credit := p2pkhCredit(t, keys[0], 1, 50000)
	credit.PkScript = nil

	plan, err := SelectCoins([]wtxmgr.Credit{credit},
		[]TransactionTarget{{Address: payee, Value: 20000}},
		testFeeRate, fixedChange)
	require.NoError(t, err)

	txHex, err := BuildTransaction(plan, SingleKeySource(keys[0]),
		netParams)
	require.NoError(t, err)

	withScript := p2pkhCredit(t, keys[0], 1, 50000)
	verifyInputs(t, decodeTx(t, txHex), []wtxmgr.Credit{withScript})
}

func TestBuildTransactionSigningFailures(t *testing.T) {
	t.Parallel()

	keys := testKeys(t, 2)
	credit := p2pkhCredit(t, keys[0], 1, 50000)
	targets := []TransactionTarget{{Address: payee, Value: 20000}}

	plan, err := SelectCoins([]wtxmgr.Credit{credit}, targets,
		testFeeRate, fixedChange)
	require.NoError(t, err)

	errLocked := errors.New("keystore locked")
	tests := []struct {
		name   string
		signer Signer
	}{
		{"wrong key", SingleKeySource(keys[1])},
		{"signer error", KeyPairSource(
			func(string) (*keychain.KeyPair, error) {
				return nil, errLocked
			},
		)},
		{"watch only key", SingleKeySource(&keychain.KeyPair{
			PubKey: keys[0].PubKey, Net: netParams,
		})},
		{"no signer", nil},
	}
	for _, test := range tests {
		_, err := BuildTransaction(plan, test.signer, netParams)
		require.ErrorIs(t, err, ErrSigningFailed, test.name)
	}

	// A P2SH input can not be spent by this builder.
	p2sh := credit
	p2sh.PkScript = append([]byte{txscript.OP_HASH160, txscript.OP_DATA_20},
		append(make([]byte, 20), txscript.OP_EQUAL)...)
	plan.Inputs = []wtxmgr.Credit{p2sh}
	_, err = BuildTransaction(plan, SingleKeySource(keys[0]), netParams)
	require.ErrorIs(t, err, ErrSigningFailed)
}

func TestBuildTransactionInvalidPlan(t *testing.T) {
	t.Parallel()

	keys := testKeys(t, 1)
	signer := SingleKeySource(keys[0])

	_, err := BuildTransaction(nil, signer, netParams)
	require.ErrorIs(t, err, ErrInvalidPlan)

	_, err = BuildTransaction(&TransactionPlan{IsValid: false}, signer,
		netParams)
	require.ErrorIs(t, err, ErrInvalidPlan)

	credit := p2pkhCredit(t, keys[0], 1, 50000)
	plan := &TransactionPlan{
		Inputs:  []wtxmgr.Credit{credit},
		Outputs: []PlanOutput{{Address: payee, Value: 60000}},
		IsValid: true,
	}
	_, err = BuildTransaction(plan, signer, netParams)
	require.ErrorIs(t, err, ErrInvalidPlan)

	// A testnet destination is rejected on mainnet.
	plan.Outputs = []PlanOutput{{
		Address: "mkpZhYtJu2r87Js3pDiWJDmPte2NRZ8bJV", Value: 40000,
	}}
	plan.Fee = 10000
	_, err = BuildTransaction(plan, signer, netParams)
	require.ErrorIs(t, err, ErrInvalidPlan)

	plan.Outputs[0].Address = "not an address"
	_, err = BuildTransaction(plan, signer, netParams)
	require.ErrorIs(t, err, ErrInvalidPlan)
}
