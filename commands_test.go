// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pillarproject/btcwallet/wallet"
	"github.com/pillarproject/btcwallet/walletdb"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon " +
		"abandon abandon abandon abandon abandon about"

	// testAddr0 is the first receiving address of testMnemonic on the
	// test networks.
	testAddr0 = "mkpZhYtJu2r87Js3pDiWJDmPte2NRZ8bJV"

	testDest  = "mi8YXVUVAQrSx2KCST62KcCAuwjv9b8n5G"
	testTxid  = "2ecdd9a637b3b3d4584a09097566e0d028bc48da8b71e7d3f1f291a2897a462b"
	testPass  = "pass"
	createArg = "yes\n" + testMnemonic + "\n\n"
)

// testIndexer serves the bitcore endpoints the wallet uses.
type testIndexer struct {
	mtx     sync.Mutex
	unspent map[string][]map[string]interface{}
	sent    []*wire.MsgTx
}

func (idx *testIndexer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idx.mtx.Lock()
	defer idx.mtx.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/tx/send":
		var req struct {
			RawTx string `json:"rawTx"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		raw, err := hex.DecodeString(req.RawTx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var tx wire.MsgTx
		if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		idx.sent = append(idx.sent, &tx)
		json.NewEncoder(w).Encode(map[string]string{
			"txid": tx.TxHash().String(),
		})

	case strings.HasSuffix(path, "/txs"):
		w.Write([]byte("[]"))

	case strings.HasPrefix(path, "/address/"):
		addr := strings.Trim(strings.TrimPrefix(path, "/address/"), "/")
		coins := idx.unspent[addr]
		if coins == nil {
			coins = []map[string]interface{}{}
		}
		json.NewEncoder(w).Encode(coins)

	default:
		http.NotFound(w, r)
	}
}

// fund makes value the only unspent output of addr.
func (idx *testIndexer) fund(t *testing.T, addr string, value int64) {
	t.Helper()

	a, err := btcutil.DecodeAddress(addr, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	script, err := txscript.PayToAddrScript(a)
	require.NoError(t, err)

	idx.mtx.Lock()
	defer idx.mtx.Unlock()
	idx.unspent[addr] = []map[string]interface{}{{
		"mintTxid":      testTxid,
		"mintIndex":     0,
		"mintHeight":    100,
		"address":       addr,
		"script":        hex.EncodeToString(script),
		"value":         value,
		"confirmations": 3,
	}}
}

type testEnv struct {
	dir     string
	indexer *testIndexer
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	idx := &testIndexer{
		unspent: make(map[string][]map[string]interface{}),
	}
	srv := httptest.NewServer(idx)
	t.Cleanup(srv.Close)

	return &testEnv{dir: t.TempDir(), indexer: idx, server: srv}
}

// session opens the wallet database and returns a session reading input.
func (e *testEnv) session(t *testing.T, input string) (*session,
	*bytes.Buffer) {

	t.Helper()

	cfg, _, err := loadConfig([]string{
		"--appdata=" + e.dir, "--regtest", "--indexer=" + e.server.URL,
	})
	require.NoError(t, err)

	db, err := walletdb.Open(cfg.dbPath(), time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var out bytes.Buffer
	s, err := newSession(cfg, db, strings.NewReader(input), &out)
	require.NoError(t, err)

	pass := func() ([]byte, error) { return []byte(testPass), nil }
	s.newPass = pass
	s.keystore.passphrase = pass
	s.scrypt = &wallet.ScryptOptions{N: 1024, R: 8, P: 1}
	t.Cleanup(s.keystore.lock)

	return s, &out
}

func TestCreateAndSend(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s, out := env.session(t, createArg)

	require.NoError(t, createWallet(ctx, s, nil))
	require.Contains(t, out.String(), testAddr0)

	// An empty wallet cannot pay.
	err := sendPayment(ctx, s, []string{testDest, "0.0004"})
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	env.indexer.fund(t, testAddr0, 100000)
	out.Reset()
	require.NoError(t, sendPayment(ctx, s, []string{testDest, "0.0004",
		"fast"}))

	require.Len(t, env.indexer.sent, 1)
	tx := env.indexer.sent[0]
	require.Len(t, tx.TxIn, 1)
	require.Len(t, tx.TxOut, 2)
	require.Equal(t, int64(40000), tx.TxOut[0].Value)

	// 226 bytes at 50 sat/B.
	require.Equal(t, int64(100000-40000-11300), tx.TxOut[1].Value)
	require.Contains(t, out.String(), tx.TxHash().String())

	// The change address was registered.
	require.Len(t, s.wallet.Addresses(), 2)
}

func TestSendUsage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s, _ := env.session(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing amount", args: []string{testDest}},
		{name: "bad address", args: []string{"nope", "1"}},
		{name: "mainnet address", args: []string{
			"1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA", "1",
		}},
		{name: "bad amount", args: []string{testDest, "lots"}},
		{name: "bad speed", args: []string{testDest, "1", "warp"}},
	}
	for _, test := range tests {
		require.Error(t, sendPayment(ctx, s, test.args), test.name)
	}
	require.Empty(t, env.indexer.sent)
}

func TestBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s, out := env.session(t, createArg)
	require.NoError(t, createWallet(ctx, s, nil))

	env.indexer.fund(t, testAddr0, 100000)
	funded := btcutil.Amount(100000).String()
	out.Reset()
	require.NoError(t, showBalance(ctx, s, nil))
	require.Contains(t, out.String(), testAddr0)
	require.Contains(t, out.String(), funded)

	// With the indexer gone the saved balances are shown.
	env.server.Close()
	out.Reset()
	require.NoError(t, showBalance(ctx, s, nil))
	require.Contains(t, out.String(), funded)
}

func TestNewAddressAfterRestart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	s, _ := env.session(t, createArg)
	require.NoError(t, createWallet(ctx, s, nil))
	s.keystore.lock()
	require.NoError(t, s.db.Close())

	restarted, out := env.session(t, testMnemonic+"\n\n")
	require.NoError(t, newAddress(ctx, restarted, nil))
	addr := strings.TrimSpace(out.String())
	require.NotEmpty(t, addr)
	require.NotEqual(t, testAddr0, addr)

	out.Reset()
	require.NoError(t, listAddresses(ctx, restarted, nil))
	require.Equal(t, testAddr0+"\n"+addr+"\n", out.String())
}

func TestNewAddressWrongSeed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	s, _ := env.session(t, createArg)
	require.NoError(t, createWallet(ctx, s, nil))
	s.keystore.lock()
	require.NoError(t, s.db.Close())

	restarted, out := env.session(t,
		"zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong\n\n")
	err := newAddress(ctx, restarted, nil)
	require.ErrorIs(t, err, wallet.ErrWrongSeed)

	out.Reset()
	require.NoError(t, listAddresses(ctx, restarted, nil))
	require.Equal(t, testAddr0+"\n", out.String())
}

func TestSupportedCommands(t *testing.T) {
	require.Equal(t, []string{
		"addresses", "balance", "create", "history", "newaddress",
		"poll", "send",
	}, supportedCommands())
}
