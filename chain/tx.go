package chain

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// Coin is a transaction output as reported by the indexer.  Inputs of a
// transaction are reported as the coins they spend.
type Coin struct {
	// Txid is the hash of the transaction that created the output.
	Txid string

	// Index is the output index within that transaction.
	Index uint32

	// SpentTxid is the spending transaction, empty while unspent.
	SpentTxid string

	// Height is the block height the output was mined in, or zero while
	// it is unconfirmed.
	Height int32

	Address string
	Script  []byte
	Value   btcutil.Amount

	// Confirmations is never negative.
	Confirmations int32
}

// TxDetails describes a transaction and the coins it consumes and creates.
type TxDetails struct {
	Txid          string
	BlockHeight   int32
	BlockTime     time.Time
	Fee           btcutil.Amount
	Value         btcutil.Amount
	Confirmations int32
	Inputs        []Coin
	Outputs       []Coin
}

// AddressTx is one entry of an address history: the coin through which the
// address is involved plus the details of the transaction that minted it.
type AddressTx struct {
	Coin    Coin
	Details TxDetails
}
