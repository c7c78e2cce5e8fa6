package chain

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Broadcaster submits signed transactions to the network through an
// Indexer.  It reports failure as an empty txid rather than an error, so a
// rejected or lost submission never unwinds past the caller.  Rebroadcasting
// an accepted transaction is not prevented here.
type Broadcaster struct {
	indexer Indexer
}

// NewBroadcaster returns a Broadcaster submitting through idx.
func NewBroadcaster(idx Indexer) *Broadcaster {
	return &Broadcaster{indexer: idx}
}

// Broadcast submits the hex encoded transaction and returns its txid, or ""
// if the submission failed for any reason.  The cause is logged.
func (b *Broadcaster) Broadcast(ctx context.Context, rawTx string) string {
	txid, err := b.send(ctx, rawTx)
	if err != nil {
		log.Errorf("Unable to broadcast transaction: %v", err)
		return ""
	}

	log.Infof("Broadcast transaction %s", txid)
	return txid
}

func (b *Broadcaster) send(ctx context.Context, rawTx string) (txid string,
	err error) {

	defer func() {
		if r := recover(); r != nil {
			txid, err = "", fmt.Errorf("indexer panic: %v", r)
		}
	}()

	if rawTx == "" {
		return "", fmt.Errorf("empty transaction")
	}

	txid, err = b.indexer.SendRawTransaction(ctx, rawTx)
	if err != nil {
		return "", err
	}
	if _, err := chainhash.NewHashFromStr(txid); err != nil || txid == "" {
		return "", fmt.Errorf("indexer returned invalid txid %q", txid)
	}
	return txid, nil
}
