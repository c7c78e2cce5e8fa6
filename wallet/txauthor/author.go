// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txauthor provides transaction creation code for wallets: coin
// selection over cached unspent outputs, and signing of the selected plan
// into a serialized P2PKH transaction.
package txauthor

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pillarproject/btcwallet/keychain"
)

// Signature is an ECDSA signature together with the public key that verifies
// it.
type Signature struct {
	Sig    *ecdsa.Signature
	PubKey *btcec.PublicKey
}

// Signer signs transaction digests on behalf of wallet addresses.  It is the
// builder's only access to key material.
type Signer interface {
	// SignHash signs the 32-byte digest with the key controlling address.
	SignHash(address string, hash []byte) (*Signature, error)
}

// KeyPairSource resolves the key pair controlling an address.  It implements
// Signer by signing with the resolved private key.
type KeyPairSource func(address string) (*keychain.KeyPair, error)

// SignHash implements Signer.
func (f KeyPairSource) SignHash(address string, hash []byte) (*Signature, error) {
	kp, err := f(address)
	if err != nil {
		return nil, err
	}
	if kp == nil || kp.PrivKey == nil {
		return nil, keychain.ErrNoPrivateKey
	}

	return &Signature{
		Sig:    ecdsa.Sign(kp.PrivKey, hash),
		PubKey: kp.PrivKey.PubKey(),
	}, nil
}

// SingleKeySource returns a KeyPairSource that answers every address with
// kp.  The builder rejects signatures from keys that do not control the
// input, so this is only useful for single address wallets.
func SingleKeySource(kp *keychain.KeyPair) KeyPairSource {
	return func(string) (*keychain.KeyPair, error) {
		return kp, nil
	}
}

// NewSignedTransaction builds the transaction described by plan and signs
// every input in order.
//
// Inputs carry sequence 0xffffffff, the transaction has version 1 and no lock
// time.  Each input must spend a P2PKH output; it is signed over the legacy
// SIGHASH_ALL digest and checked by the script engine before the next input
// is handled.
func NewSignedTransaction(plan *TransactionPlan, signer Signer,
	net *chaincfg.Params) (*wire.MsgTx, error) {

	if plan == nil {
		return nil, fmt.Errorf("%w: no plan", ErrInvalidPlan)
	}
	if err := plan.CheckSanity(); err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: no signer", ErrSigningFailed)
	}

	tx := wire.NewMsgTx(1)
	prevScripts := make([][]byte, 0, len(plan.Inputs))
	prevAddrs := make([]string, 0, len(plan.Inputs))
	for _, in := range plan.Inputs {
		script, addr, err := prevOutputScript(in.PkScript, in.Address,
			net)
		if err != nil {
			return nil, fmt.Errorf("%w: input %v: %v",
				ErrSigningFailed, in.OutPoint, err)
		}

		outPoint := in.OutPoint
		tx.AddTxIn(wire.NewTxIn(&outPoint, nil, nil))
		prevScripts = append(prevScripts, script)
		prevAddrs = append(prevAddrs, addr)
	}

	for i, out := range plan.Outputs {
		addr, err := btcutil.DecodeAddress(out.Address, net)
		if err != nil {
			return nil, fmt.Errorf("%w: output %d: %v",
				ErrInvalidPlan, i, err)
		}
		if !addr.IsForNet(net) {
			return nil, fmt.Errorf("%w: output %d address %s "+
				"is not for %s", ErrInvalidPlan, i,
				out.Address, net.Name)
		}
		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: output %d: %v",
				ErrInvalidPlan, i, err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(out.Value), pkScript))
	}

	prevOuts := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range plan.Inputs {
		prevOuts.AddPrevOut(in.OutPoint, wire.NewTxOut(
			int64(in.Amount), prevScripts[i],
		))
	}
	hashCache := txscript.NewTxSigHashes(tx, prevOuts)

	for i := range tx.TxIn {
		sigScript, err := signP2PKHInput(tx, i, prevScripts[i],
			prevAddrs[i], signer)
		if err != nil {
			return nil, err
		}
		tx.TxIn[i].SignatureScript = sigScript

		vm, err := txscript.NewEngine(prevScripts[i], tx, i,
			txscript.StandardVerifyFlags, nil, hashCache,
			int64(plan.Inputs[i].Amount), prevOuts)
		if err != nil {
			return nil, fmt.Errorf("%w: input %d: cannot create "+
				"script engine: %v", ErrSigningFailed, i, err)
		}
		if err := vm.Execute(); err != nil {
			return nil, fmt.Errorf("%w: input %d: cannot validate "+
				"signature: %v", ErrSigningFailed, i, err)
		}
	}

	return tx, nil
}

// BuildTransaction signs the plan with NewSignedTransaction and returns the
// serialized transaction hex encoded.
func BuildTransaction(plan *TransactionPlan, signer Signer,
	net *chaincfg.Params) (string, error) {

	tx, err := NewSignedTransaction(plan, signer, net)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}

	log.Debugf("Built transaction %v spending %d inputs to %d outputs "+
		"(fee %v)", tx.TxHash(), len(tx.TxIn), len(tx.TxOut), plan.Fee)

	return hex.EncodeToString(buf.Bytes()), nil
}

// prevOutputScript returns the P2PKH script being spent and the address
// controlling it.  When the indexer did not report a script it is rebuilt
// from the address.
func prevOutputScript(pkScript []byte, address string,
	net *chaincfg.Params) ([]byte, string, error) {

	if len(pkScript) == 0 {
		addr, err := btcutil.DecodeAddress(address, net)
		if err != nil {
			return nil, "", err
		}
		pkScript, err = txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, "", err
		}
	}

	if !txscript.IsPayToPubKeyHash(pkScript) {
		return nil, "", fmt.Errorf("unsupported script class %v",
			txscript.GetScriptClass(pkScript))
	}

	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, net)
	if err != nil {
		return nil, "", err
	}
	if len(addrs) != 1 {
		return nil, "", fmt.Errorf("script pays %d addresses",
			len(addrs))
	}

	return pkScript, addrs[0].EncodeAddress(), nil
}

// signP2PKHInput returns the signature script spending prevScript at input
// idx of tx.
func signP2PKHInput(tx *wire.MsgTx, idx int, prevScript []byte,
	address string, signer Signer) ([]byte, error) {

	hash, err := txscript.CalcSignatureHash(prevScript, txscript.SigHashAll,
		tx, idx)
	if err != nil {
		return nil, fmt.Errorf("%w: input %d: %v", ErrSigningFailed,
			idx, err)
	}

	sig, err := signer.SignHash(address, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: input %d: %v", ErrSigningFailed,
			idx, err)
	}
	if sig == nil || sig.Sig == nil || sig.PubKey == nil {
		return nil, fmt.Errorf("%w: input %d: empty signature",
			ErrSigningFailed, idx)
	}

	pubKey := sig.PubKey.SerializeCompressed()
	if !bytes.Equal(btcutil.Hash160(pubKey), prevScript[3:23]) {
		return nil, fmt.Errorf("%w: input %d: key does not control %s",
			ErrSigningFailed, idx, address)
	}

	sigBytes := append(sig.Sig.Serialize(), byte(txscript.SigHashAll))

	return txscript.NewScriptBuilder().
		AddData(sigBytes).
		AddData(pubKey).
		Script()
}
