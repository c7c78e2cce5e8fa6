package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when the indexer base URL is not an
	// absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid indexer url")

	// ErrMalformedResponse is returned when an indexer response body
	// cannot be decoded.
	ErrMalformedResponse = errors.New("malformed indexer response")

	// ErrEmptyTxid is returned when the indexer accepts a transaction
	// without reporting its txid.
	ErrEmptyTxid = errors.New("indexer returned empty txid")
)

// StatusError is returned when the indexer answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("indexer returned status %d", e.Code)
	}
	return fmt.Sprintf("indexer returned status %d: %s", e.Code, e.Body)
}
