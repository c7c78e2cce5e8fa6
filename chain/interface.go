package chain

import (
	"context"

	"github.com/pillarproject/btcwallet/wtxmgr"
)

// Indexer is an address-indexed view of the chain.  The wallet reads unspent
// outputs and transaction history from it and pushes signed transactions
// through it.  Implementations perform plain request/response I/O and never
// retry on their own.
type Indexer interface {
	// Unspent returns the unspent outputs currently paying to addr.
	Unspent(ctx context.Context, addr string) ([]wtxmgr.Credit, error)

	// SendRawTransaction submits a hex encoded transaction and returns
	// the txid the indexer accepted it under.
	SendRawTransaction(ctx context.Context, rawTx string) (string, error)

	// Transactions returns every transaction touching addr along with its
	// inputs and outputs.
	Transactions(ctx context.Context, addr string) ([]AddressTx, error)
}
