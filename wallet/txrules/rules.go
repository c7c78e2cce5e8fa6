// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txrules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pillarproject/btcwallet/wallet/txsizes"
)

// DefaultRelayFeePerKb is the default minimum relay fee policy for a mempool.
const DefaultRelayFeePerKb btcutil.Amount = 1e3

// FeeRate is a fee rate expressed in satoshi per byte of serialized
// transaction.
type FeeRate int64

// DefaultFeeRate is the rate used for every speed tier unless overridden.
const DefaultFeeRate FeeRate = 50

// String returns the fee rate with its unit.
func (r FeeRate) String() string {
	return fmt.Sprintf("%d sat/B", int64(r))
}

// IsDustAmount determines whether a transaction output value and script
// length would cause the output to be considered dust.  Transactions with dust
// outputs are not standard and are rejected by mempools with default policies.
func IsDustAmount(amount btcutil.Amount, scriptSize int,
	relayFeePerKb btcutil.Amount) bool {

	// Calculate the total (estimated) cost to the network.  This is
	// calculated using the serialize size of the output plus the serial
	// size of a transaction input which redeems it.  The output is assumed
	// to be compressed P2PKH as this is the most common script type.
	totalSize := txsizes.OutputSize(scriptSize) +
		txsizes.RedeemP2PKHInputSize

	// Dust is defined as an output value where the total cost to the network
	// (output size + input size) is greater than 1/3 of the relay fee.
	return int64(amount)*1000/(3*int64(totalSize)) < int64(relayFeePerKb)
}

// IsDustOutput determines whether a transaction output is considered dust.
// Transactions with dust outputs are not standard and are rejected by mempools
// with default policies.
func IsDustOutput(output *wire.TxOut, relayFeePerKb btcutil.Amount) bool {
	// Unspendable outputs which solely carry data are not checked for dust.
	if txscript.GetScriptClass(output.PkScript) == txscript.NullDataTy {
		return false
	}

	// All other unspendable outputs are considered dust.
	if txscript.IsUnspendable(output.PkScript) {
		return true
	}

	return IsDustAmount(btcutil.Amount(output.Value), len(output.PkScript),
		relayFeePerKb)
}

// Transaction rule violations
var (
	ErrAmountNegative   = errors.New("transaction output amount is negative")
	ErrAmountExceedsMax = errors.New("transaction output amount exceeds maximum value")
	ErrOutputIsDust     = errors.New("transaction output is dust")
)

// CheckOutput performs simple consensus and policy tests on a transaction
// output.
func CheckOutput(output *wire.TxOut, relayFeePerKb btcutil.Amount) error {
	if output.Value < 0 {
		return ErrAmountNegative
	}
	if output.Value > btcutil.MaxSatoshi {
		return ErrAmountExceedsMax
	}
	if IsDustOutput(output, relayFeePerKb) {
		return ErrOutputIsDust
	}
	return nil
}

// FeeForSerializeSize calculates the fee paid by a transaction of some
// arbitrary size at the given rate.
func FeeForSerializeSize(rate FeeRate, txSerializeSize int) btcutil.Amount {
	fee := btcutil.Amount(rate) * btcutil.Amount(txSerializeSize)

	if fee < 0 || fee > btcutil.MaxSatoshi {
		fee = btcutil.MaxSatoshi
	}

	return fee
}

// Speed is a confirmation speed tier.
type Speed uint8

// Recognized speed tiers.
const (
	Slow Speed = iota
	Normal
	Fast
)

var speedNames = [...]string{
	Slow:   "slow",
	Normal: "normal",
	Fast:   "fast",
}

// String returns the lowercase tier name.
func (s Speed) String() string {
	if int(s) < len(speedNames) {
		return speedNames[s]
	}
	return fmt.Sprintf("Speed(%d)", uint8(s))
}

// ErrUnknownSpeed describes a speed name that is not slow, normal or fast.
var ErrUnknownSpeed = errors.New("unknown transaction speed")

// ParseSpeed parses a tier name case-insensitively.
func ParseSpeed(s string) (Speed, error) {
	for i, name := range speedNames {
		if strings.EqualFold(s, name) {
			return Speed(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSpeed, s)
}

// FeeTiers maps each speed tier to the fee rate paid for it.
type FeeTiers map[Speed]FeeRate

// DefaultFeeTiers returns tiers which all share DefaultFeeRate.
func DefaultFeeTiers() FeeTiers {
	return FeeTiers{
		Slow:   DefaultFeeRate,
		Normal: DefaultFeeRate,
		Fast:   DefaultFeeRate,
	}
}

// Rate returns the fee rate of the tier, falling back to DefaultFeeRate for
// tiers that are missing or not positive.
func (t FeeTiers) Rate(s Speed) FeeRate {
	if r, ok := t[s]; ok && r > 0 {
		return r
	}
	return DefaultFeeRate
}
