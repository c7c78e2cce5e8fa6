package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pillarproject/btcwallet/wtxmgr"
	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRequestTimeout bounds a single indexer request when the
	// config does not set one.
	DefaultRequestTimeout = 30 * time.Second

	// maxResponseSize caps the number of body bytes read per response.
	maxResponseSize = 8 << 20

	// maxDetailRequests is the number of transaction lookups Transactions
	// keeps in flight at once.
	maxDetailRequests = 4
)

// BitcoreConfig is the configuration of a BitcoreClient.
type BitcoreConfig struct {
	// URL is the network specific API root, for example
	// https://api.bitcore.io/api/BTC/mainnet.
	URL string

	// HTTPClient is used for all requests.  http.DefaultClient is used
	// when nil.
	HTTPClient *http.Client

	// Timeout bounds every request.  DefaultRequestTimeout is used when
	// zero.
	Timeout time.Duration
}

// BitcoreClient is an Indexer speaking the bitcore-node REST API.
type BitcoreClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// A compile-time assertion to ensure BitcoreClient implements Indexer.
var _ Indexer = (*BitcoreClient)(nil)

// NewBitcoreClient validates cfg and returns a client for it.
func NewBitcoreClient(cfg *BitcoreConfig) (*BitcoreClient, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.URL)
	}

	c := &BitcoreClient{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		client:  cfg.HTTPClient,
		timeout: cfg.Timeout,
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRequestTimeout
	}
	return c, nil
}

// bitcoreCoin is the JSON shape of a coin in bitcore responses.
type bitcoreCoin struct {
	MintTxid      string `json:"mintTxid"`
	MintIndex     uint32 `json:"mintIndex"`
	MintHeight    int32  `json:"mintHeight"`
	SpentTxid     string `json:"spentTxid"`
	Address       string `json:"address"`
	Script        string `json:"script"`
	Value         int64  `json:"value"`
	Confirmations int32  `json:"confirmations"`
}

func (b *bitcoreCoin) coin() (Coin, error) {
	script, err := hex.DecodeString(b.Script)
	if err != nil {
		return Coin{}, fmt.Errorf("%w: coin %s:%d script: %v",
			ErrMalformedResponse, b.MintTxid, b.MintIndex, err)
	}
	c := Coin{
		Txid:          b.MintTxid,
		Index:         b.MintIndex,
		SpentTxid:     b.SpentTxid,
		Height:        b.MintHeight,
		Address:       b.Address,
		Script:        script,
		Value:         btcutil.Amount(b.Value),
		Confirmations: b.Confirmations,
	}
	// Bitcore reports mempool coins with negative heights and
	// confirmation counts.
	if c.Height < 0 {
		c.Height = 0
	}
	if c.Confirmations < 0 {
		c.Confirmations = 0
	}
	return c, nil
}

type bitcoreTx struct {
	Txid          string    `json:"txid"`
	BlockHeight   int32     `json:"blockHeight"`
	BlockTime     time.Time `json:"blockTime"`
	Fee           int64     `json:"fee"`
	Value         int64     `json:"value"`
	Confirmations int32     `json:"confirmations"`
}

type bitcoreTxCoins struct {
	Inputs  []bitcoreCoin `json:"inputs"`
	Outputs []bitcoreCoin `json:"outputs"`
}

type sendRequest struct {
	RawTx string `json:"rawTx"`
}

type sendResponse struct {
	Txid string `json:"txid"`
}

// Unspent fetches the unspent outputs of addr.
func (c *BitcoreClient) Unspent(ctx context.Context,
	addr string) ([]wtxmgr.Credit, error) {

	var coins []bitcoreCoin
	path := "/address/" + url.PathEscape(addr) + "/?unspent=true"
	if err := c.get(ctx, path, &coins); err != nil {
		return nil, err
	}

	credits := make([]wtxmgr.Credit, 0, len(coins))
	for i := range coins {
		coin, err := coins[i].coin()
		if err != nil {
			return nil, err
		}
		hash, err := chainhash.NewHashFromStr(coin.Txid)
		if err != nil {
			return nil, fmt.Errorf("%w: txid %q: %v",
				ErrMalformedResponse, coin.Txid, err)
		}
		credits = append(credits, wtxmgr.Credit{
			OutPoint:      *wire.NewOutPoint(hash, coin.Index),
			Address:       addr,
			Amount:        coin.Value,
			PkScript:      coin.Script,
			Height:        coin.Height,
			Confirmations: coin.Confirmations,
		})
	}

	log.Tracef("Indexer returned %d unspent outputs for %s",
		len(credits), addr)

	return credits, nil
}

// SendRawTransaction posts rawTx to the indexer.
func (c *BitcoreClient) SendRawTransaction(ctx context.Context,
	rawTx string) (string, error) {

	var resp sendResponse
	err := c.post(ctx, "/tx/send", &sendRequest{RawTx: rawTx}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Txid == "" {
		return "", ErrEmptyTxid
	}
	return resp.Txid, nil
}

// Transactions fetches the history of addr.  Each distinct transaction is
// looked up once, with up to maxDetailRequests lookups in flight.  Entries
// whose transaction could not be looked up are returned with zero Details.
func (c *BitcoreClient) Transactions(ctx context.Context,
	addr string) ([]AddressTx, error) {

	var coins []bitcoreCoin
	path := "/address/" + url.PathEscape(addr) + "/txs"
	if err := c.get(ctx, path, &coins); err != nil {
		return nil, err
	}

	txs := make([]AddressTx, len(coins))
	details := make(map[string]*TxDetails)
	for i := range coins {
		coin, err := coins[i].coin()
		if err != nil {
			return nil, err
		}
		txs[i].Coin = coin
		if _, ok := details[coin.Txid]; !ok {
			details[coin.Txid] = &TxDetails{Txid: coin.Txid}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxDetailRequests)
	for txid, d := range details {
		txid, d := txid, d
		g.Go(func() error {
			fetched, err := c.fetchDetails(gctx, txid)
			switch {
			case err == nil:
				*d = *fetched
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				log.Warnf("Skipping transaction %s of %s: %v",
					txid, addr, err)
				*d = TxDetails{}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range txs {
		txs[i].Details = *details[txs[i].Coin.Txid]
	}
	return txs, nil
}

func (c *BitcoreClient) fetchDetails(ctx context.Context,
	txid string) (*TxDetails, error) {

	var tx bitcoreTx
	if err := c.get(ctx, "/tx/"+url.PathEscape(txid), &tx); err != nil {
		return nil, err
	}
	var coins bitcoreTxCoins
	err := c.get(ctx, "/tx/"+url.PathEscape(txid)+"/coins", &coins)
	if err != nil {
		return nil, err
	}

	d := &TxDetails{Txid: txid}
	d.BlockHeight = tx.BlockHeight
	d.BlockTime = tx.BlockTime
	d.Fee = btcutil.Amount(tx.Fee)
	d.Value = btcutil.Amount(tx.Value)
	d.Confirmations = tx.Confirmations
	if d.BlockHeight < 0 {
		d.BlockHeight = 0
	}
	if d.Confirmations < 0 {
		d.Confirmations = 0
	}

	d.Inputs, err = convertCoins(coins.Inputs)
	if err != nil {
		return nil, err
	}
	d.Outputs, err = convertCoins(coins.Outputs)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func convertCoins(in []bitcoreCoin) ([]Coin, error) {
	out := make([]Coin, 0, len(in))
	for i := range in {
		c, err := in[i].coin()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (c *BitcoreClient) get(ctx context.Context, path string,
	out interface{}) error {

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := ctxhttp.Get(ctx, c.client, c.baseURL+path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return decodeResponse(resp, out)
}

func (c *BitcoreClient) post(ctx context.Context, path string,
	in, out interface{}) error {

	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := ctxhttp.Post(
		ctx, c.client, c.baseURL+path, "application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(data)),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
