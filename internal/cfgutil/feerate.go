// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pillarproject/btcwallet/wallet/txrules"
)

// FeeRateFlag embeds a txrules.FeeRate and implements the flags.Marshaler and
// Unmarshaler interfaces so it can be used as a config struct field.  Values
// are whole satoshi per byte with an optional " sat/B" suffix.
type FeeRateFlag struct {
	txrules.FeeRate
}

// NewFeeRateFlag creates a FeeRateFlag with a default txrules.FeeRate.
func NewFeeRateFlag(defaultValue txrules.FeeRate) *FeeRateFlag {
	return &FeeRateFlag{defaultValue}
}

// MarshalFlag satisfies the flags.Marshaler interface.
func (f *FeeRateFlag) MarshalFlag() (string, error) {
	return strconv.FormatInt(int64(f.FeeRate), 10), nil
}

// UnmarshalFlag satisfies the flags.Unmarshaler interface.
func (f *FeeRateFlag) UnmarshalFlag(value string) error {
	value = strings.TrimSpace(strings.TrimSuffix(value, "sat/B"))
	rate, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return err
	}
	if rate <= 0 {
		return fmt.Errorf("fee rate must be positive, got %d", rate)
	}
	f.FeeRate = txrules.FeeRate(rate)
	return nil
}
