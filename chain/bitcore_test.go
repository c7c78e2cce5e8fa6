package chain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

const (
	testAddr  = "mi8YXVUVAQrSx2KCST62KcCAuwjv9b8n5G"
	testTxid1 = "2ecdd9a637b3b3d4584a09097566e0d028bc48da8b71e7d3f1f291a2897a462b"
	testTxid2 = "56eea37c7a6e0e706d9922c46fa02b9e514ba7bc34092b79e0e30b1f71570d45"
	testP2PKH = "76a9141cab62a9afad8154fcb813fba486a4e1f845af3d88ac"
)

// newTestClient starts an httptest server routing to handler and returns a
// client pointed at it.
func newTestClient(t *testing.T, handler http.Handler) *BitcoreClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewBitcoreClient(&BitcoreConfig{
		URL:     srv.URL + "/api/BTC/testnet/",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// TestNewBitcoreClientURL checks base URL validation.
func TestNewBitcoreClientURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url   string
		valid bool
	}{
		{"https://api.bitcore.io/api/BTC/mainnet", true},
		{"http://localhost:3000/api/BTC/regtest/", true},
		{"", false},
		{"api.bitcore.io/api/BTC/mainnet", false},
		{"ftp://api.bitcore.io", false},
		{"http://", false},
	}
	for _, test := range tests {
		c, err := NewBitcoreClient(&BitcoreConfig{URL: test.url})
		if !test.valid {
			require.ErrorIs(t, err, ErrInvalidURL, test.url)
			continue
		}
		require.NoError(t, err, test.url)
		require.False(t, strings.HasSuffix(c.baseURL, "/"))
		require.Equal(t, http.DefaultClient, c.client)
		require.Equal(t, DefaultRequestTimeout, c.timeout)
	}
}

// TestUnspent checks the unspent query and conversion into credits.
func TestUnspent(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {

		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/BTC/testnet/address/"+testAddr+"/",
			r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("unspent"))

		writeJSON(t, w, []map[string]interface{}{
			{
				"mintTxid":      testTxid1,
				"mintIndex":     0,
				"mintHeight":    1609856,
				"address":       testAddr,
				"script":        testP2PKH,
				"value":         1000000,
				"confirmations": 12,
			},
			{
				"mintTxid":      testTxid2,
				"mintIndex":     1,
				"mintHeight":    -1,
				"address":       testAddr,
				"script":        testP2PKH,
				"value":         2649070,
				"confirmations": -1,
			},
		})
	}))

	credits, err := c.Unspent(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, credits, 2)

	require.Equal(t, testTxid1, credits[0].Hash.String())
	require.EqualValues(t, 0, credits[0].Index)
	require.Equal(t, btcutil.Amount(1000000), credits[0].Amount)
	require.EqualValues(t, 1609856, credits[0].Height)
	require.EqualValues(t, 12, credits[0].Confirmations)
	require.True(t, credits[0].Confirmed())
	require.Equal(t, testAddr, credits[0].Address)
	require.Len(t, credits[0].PkScript, 25)

	require.Equal(t, testTxid2, credits[1].Hash.String())
	require.EqualValues(t, 1, credits[1].Index)
	require.Zero(t, credits[1].Height)
	require.Zero(t, credits[1].Confirmations)
	require.False(t, credits[1].Confirmed())
}

// TestUnspentErrors checks status and decoding failures surface as errors.
func TestUnspentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   "boom",
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    "<html>",
			wantErr: ErrMalformedResponse,
		},
		{
			name:   "bad txid",
			status: http.StatusOK,
			body: `[{"mintTxid":"zz","mintIndex":0,` +
				`"script":"","value":1}]`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:   "bad script",
			status: http.StatusOK,
			body: `[{"mintTxid":"` + testTxid1 + `","mintIndex":0,` +
				`"script":"xyz","value":1}]`,
			wantErr: ErrMalformedResponse,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, http.HandlerFunc(func(
				w http.ResponseWriter, r *http.Request) {

				w.WriteHeader(test.status)
				_, _ = io.WriteString(w, test.body)
			}))

			_, err := c.Unspent(context.Background(), testAddr)
			require.Error(t, err)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				return
			}

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			require.Equal(t, test.status, statusErr.Code)
			require.Equal(t, test.body, statusErr.Body)
		})
	}
}

// TestSendRawTransaction checks the broadcast request body and the handling
// of the reply.
func TestSendRawTransaction(t *testing.T) {
	t.Parallel()

	var reply atomic.Value
	reply.Store(`{"txid":"` + testTxid1 + `"}`)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {

		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/BTC/testnet/tx/send", r.URL.Path)
		require.Equal(t, "application/json",
			r.Header.Get("Content-Type"))

		var req struct {
			RawTx string `json:"rawTx"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "0100beef", req.RawTx)

		_, _ = io.WriteString(w, reply.Load().(string))
	}))

	txid, err := c.SendRawTransaction(context.Background(), "0100beef")
	require.NoError(t, err)
	require.Equal(t, testTxid1, txid)

	reply.Store(`{}`)
	_, err = c.SendRawTransaction(context.Background(), "0100beef")
	require.ErrorIs(t, err, ErrEmptyTxid)
}

// TestRequestTimeout checks that a stalled indexer is abandoned.
func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {

		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewBitcoreClient(&BitcoreConfig{
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = c.Unspent(context.Background(), testAddr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestTransactions checks that address history is joined with per
// transaction details, fetching each transaction once.
func TestTransactions(t *testing.T) {
	t.Parallel()

	var detailCalls, coinCalls atomic.Int32
	blockTime := "2019-11-26T10:10:33.958Z"

	mux := http.NewServeMux()
	mux.HandleFunc("/api/BTC/testnet/address/"+testAddr+"/txs",
		func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, []map[string]interface{}{
				{
					"mintTxid":  testTxid1,
					"mintIndex": 0,
					"address":   testAddr,
					"script":    testP2PKH,
					"value":     1000000,
				},
				{
					"mintTxid":  testTxid1,
					"mintIndex": 1,
					"address":   testAddr,
					"script":    testP2PKH,
					"value":     5000,
				},
			})
		})
	mux.HandleFunc("/api/BTC/testnet/tx/"+testTxid1,
		func(w http.ResponseWriter, r *http.Request) {
			detailCalls.Add(1)
			writeJSON(t, w, map[string]interface{}{
				"txid":          testTxid1,
				"blockHeight":   -1,
				"blockTime":     blockTime,
				"fee":           168,
				"value":         4299832,
				"confirmations": 0,
			})
		})
	mux.HandleFunc("/api/BTC/testnet/tx/"+testTxid1+"/coins",
		func(w http.ResponseWriter, r *http.Request) {
			coinCalls.Add(1)
			writeJSON(t, w, map[string]interface{}{
				"inputs": []map[string]interface{}{{
					"mintTxid":  testTxid2,
					"mintIndex": 23,
					"spentTxid": testTxid1,
					"address":   "2N9qAgGyvvSVJRGWvsseW13z9HuyvHnU3mo",
					"script":    "a914b5ed644cb29594a1715de4efb7acb566e1e140dc87",
					"value":     4300000,
				}},
				"outputs": []map[string]interface{}{{
					"mintTxid":  testTxid1,
					"mintIndex": 0,
					"address":   testAddr,
					"script":    testP2PKH,
					"value":     1000000,
				}},
			})
		})

	c := newTestClient(t, mux)
	txs, err := c.Transactions(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.EqualValues(t, 1, detailCalls.Load())
	require.EqualValues(t, 1, coinCalls.Load())

	wantTime, err := time.Parse(time.RFC3339, blockTime)
	require.NoError(t, err)

	for _, tx := range txs {
		require.Equal(t, testTxid1, tx.Coin.Txid)
		require.Equal(t, testTxid1, tx.Details.Txid)
		require.Equal(t, btcutil.Amount(168), tx.Details.Fee)
		require.Zero(t, tx.Details.BlockHeight)
		require.True(t, wantTime.Equal(tx.Details.BlockTime))
		require.Len(t, tx.Details.Inputs, 1)
		require.Len(t, tx.Details.Outputs, 1)
		require.Equal(t, testTxid1, tx.Details.Inputs[0].SpentTxid)
	}
	require.EqualValues(t, 1, txs[1].Coin.Index)
}

// TestTransactionsDetailFailure checks that a transaction whose details
// cannot be fetched is returned without details while the rest of the
// history is kept.
func TestTransactionsDetailFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/BTC/testnet/address/"+testAddr+"/txs",
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[`+
				`{"mintTxid":"`+testTxid1+`","mintIndex":0,`+
				`"script":"","value":1},`+
				`{"mintTxid":"`+testTxid2+`","mintIndex":0,`+
				`"script":"","value":2}]`)
		})
	mux.HandleFunc("/api/BTC/testnet/tx/"+testTxid1,
		func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]interface{}{
				"txid":          testTxid1,
				"blockHeight":   10,
				"fee":           168,
				"confirmations": 2,
			})
		})
	mux.HandleFunc("/api/BTC/testnet/tx/"+testTxid1+"/coins",
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"inputs":[],"outputs":[]}`)
		})
	mux.HandleFunc("/api/BTC/testnet/tx/"+testTxid2,
		func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]interface{}{"txid": testTxid2})
		})
	mux.HandleFunc("/api/BTC/testnet/tx/"+testTxid2+"/coins",
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

	c := newTestClient(t, mux)
	txs, err := c.Transactions(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	require.Equal(t, testTxid1, txs[0].Details.Txid)
	require.Equal(t, btcutil.Amount(168), txs[0].Details.Fee)
	require.Equal(t, testTxid2, txs[1].Coin.Txid)
	require.Equal(t, TxDetails{}, txs[1].Details)
}

// TestTransactionsListFailure checks that a failed history listing is
// returned.
func TestTransactionsListFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/BTC/testnet/address/"+testAddr+"/txs",
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		})

	c := newTestClient(t, mux)
	_, err := c.Transactions(context.Background(), testAddr)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Code)
}
