// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package waddrmgr

import (
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific ManagerError.
const (
	// ErrDatabase indicates an error with the underlying database.  When
	// this error code is set, the Err field of the ManagerError will be
	// set to the underlying error returned from the database.
	ErrDatabase ErrorCode = iota

	// ErrEmptyAddress indicates an attempt to register an empty address.
	ErrEmptyAddress

	// ErrDuplicateAddress indicates an attempt to register an address that
	// is already known.
	ErrDuplicateAddress

	// ErrUnknownAddress indicates the requested address is not
	// registered with the manager.
	ErrUnknownAddress
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDatabase:         "ErrDatabase",
	ErrEmptyAddress:     "ErrEmptyAddress",
	ErrDuplicateAddress: "ErrDuplicateAddress",
	ErrUnknownAddress:   "ErrUnknownAddress",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error lets an ErrorCode be used as the target of errors.Is.
func (e ErrorCode) Error() string {
	return e.String()
}

// ManagerError provides a single type for errors that can happen during
// address manager operation.  It is used to indicate several types of
// failures including errors with caller requests such as registering an
// address twice and errors with the underlying database.
//
// The caller can use type assertions to determine if an error is a
// ManagerError and access the ErrorCode field to ascertain the specific
// reason for the failure, or simply match with errors.Is against the code.
//
// The ErrDatabase ErrorCode will also have the Err field set with the
// underlying error.
type ManagerError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e ManagerError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error, if any.
func (e ManagerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the ErrorCode of e.
func (e ManagerError) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.ErrorCode
}

// managerError creates a ManagerError given a set of arguments.
func managerError(c ErrorCode, desc string, err error) ManagerError {
	return ManagerError{ErrorCode: c, Description: desc, Err: err}
}
