// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import "errors"

var (
	// ErrInvalidRequest is returned by SelectCoins for malformed payment
	// requests.  Insufficient funds is not an error; it is reported with
	// an invalid plan instead.
	ErrInvalidRequest = errors.New("invalid transaction request")

	// ErrInvalidPlan is returned when a plan handed to the builder fails
	// its sanity checks.
	ErrInvalidPlan = errors.New("invalid transaction plan")

	// ErrSigningFailed is returned when an input can not be signed, or
	// its signature does not verify.
	ErrSigningFailed = errors.New("transaction signing failed")
)
