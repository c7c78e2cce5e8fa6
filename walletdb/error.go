// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"errors"

	bolt "go.etcd.io/bbolt"
)

// Errors that the various database functions may return.
var (
	// ErrDbNotOpen is returned when a database instance is accessed before
	// it is opened or after it is closed.
	ErrDbNotOpen = errors.New("database not open")

	// ErrInvalid is returned if the specified database is not valid.
	ErrInvalid = errors.New("invalid database")

	// ErrDbTimeout is returned when the file lock on the database could not
	// be obtained within the configured timeout.
	ErrDbTimeout = errors.New("timed out opening database")

	// ErrSessionClosed is returned when a document is written through a
	// registry that has already been closed.
	ErrSessionClosed = errors.New("wallet session closed")

	// ErrDocumentNameRequired is returned when a document is accessed with
	// a blank name.
	ErrDocumentNameRequired = errors.New("document name required")
)

// convertErr converts some bolt errors to the equivalent walletdb error.
func convertErr(err error) error {
	switch {
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		return ErrDbNotOpen
	case errors.Is(err, bolt.ErrInvalid):
		return ErrInvalid
	case errors.Is(err, bolt.ErrTimeout):
		return ErrDbTimeout
	}

	// Return the original error if none of the above applies.
	return err
}
