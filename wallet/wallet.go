// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/pillarproject/btcwallet/chain"
	"github.com/pillarproject/btcwallet/keychain"
	"github.com/pillarproject/btcwallet/waddrmgr"
	"github.com/pillarproject/btcwallet/wallet/txauthor"
	"github.com/pillarproject/btcwallet/wallet/txrules"
	"github.com/pillarproject/btcwallet/walletdb"
	"github.com/pillarproject/btcwallet/wtxmgr"
	"golang.org/x/sync/errgroup"
)

// BalancesDocument is the walletdb document the derived balances are written
// to after every refresh.
const BalancesDocument = "bitcoinBalances"

// Config holds the collaborators of a Wallet.
type Config struct {
	// Net is the network addresses and keys are encoded for.
	Net *chaincfg.Params

	// Indexer serves unspent outputs and history and relays
	// transactions.
	Indexer chain.Indexer

	// Keystore holds the exported key pair of every wallet address.
	Keystore Keystore

	// DB persists the address registry and the output cache.  Nothing is
	// persisted when nil.
	DB *walletdb.DB

	// Clock times address refreshes.  The system clock is used when nil.
	Clock clock.Clock

	// FeeTiers maps transaction speeds to fee rates.  Every tier pays
	// txrules.DefaultFeeRate when nil.
	FeeTiers txrules.FeeTiers

	// RefreshThreshold is the minimum time between two unforced
	// refreshes of an address.
	RefreshThreshold time.Duration

	// Account is the BIP-44 account addresses are derived under.
	Account uint32

	// CoinType overrides the BIP-44 coin type of Net when not nil.
	CoinType *uint32
}

// Wallet is a single-user bitcoin wallet session.  Its entry points are
// InitializeWallet, LoadAddresses, RefreshBalance and SendTransaction; the
// other methods support them.
//
// Wallet does not serialize sends: two plans built from the same outputs
// before a refresh will double spend them.
type Wallet struct {
	cfg         Config
	coinType    uint32
	reducer     *Reducer
	broadcaster *chain.Broadcaster

	// persistMtx orders snapshot and write of the persisted documents.
	persistMtx sync.Mutex

	mtx         sync.Mutex
	root        *keychain.ExtendedKey
	nextReceive uint32
	nextChange  uint32
	history     map[string][]HistoryEntry
}

// New returns a wallet session for cfg.
func New(cfg *Config) (*Wallet, error) {
	switch {
	case cfg.Net == nil:
		return nil, errors.New("wallet: no network parameters")
	case cfg.Indexer == nil:
		return nil, errors.New("wallet: no indexer")
	case cfg.Keystore == nil:
		return nil, errors.New("wallet: no keystore")
	}

	c := *cfg
	if c.FeeTiers == nil {
		c.FeeTiers = txrules.DefaultFeeTiers()
	}

	coinType := c.Net.HDCoinType
	if c.CoinType != nil {
		coinType = *c.CoinType
	}

	return &Wallet{
		cfg:         c,
		coinType:    coinType,
		reducer:     NewReducer(c.Clock, c.RefreshThreshold),
		broadcaster: chain.NewBroadcaster(c.Indexer),
		history:     make(map[string][]HistoryEntry),
	}, nil
}

// InitializeWallet derives the wallet from a BIP-39 seed phrase and registers
// its first receiving address, which is returned.  An invalid phrase returns
// keychain.ErrInvalidMnemonic and leaves the wallet untouched; a derivation
// failure marks wallet creation failed.
func (w *Wallet) InitializeWallet(ctx context.Context,
	mnemonic string) (string, error) {

	root, err := keychain.DeriveRoot(mnemonic, w.cfg.Net)
	if err != nil {
		if !errors.Is(err, keychain.ErrInvalidMnemonic) {
			w.reducer.Dispatch(CreationFailed{})
		}
		return "", err
	}
	return w.initialize(ctx, root)
}

// InitializeFromSeed is InitializeWallet for wallets created from a raw seed
// instead of a phrase.
func (w *Wallet) InitializeFromSeed(ctx context.Context,
	seed []byte) (string, error) {

	root, err := keychain.NewRootFromSeed(seed, w.cfg.Net)
	if err != nil {
		w.reducer.Dispatch(CreationFailed{})
		return "", err
	}
	return w.initialize(ctx, root)
}

func (w *Wallet) initialize(_ context.Context,
	root *keychain.ExtendedKey) (string, error) {

	kp, addr, err := w.deriveKeyPair(root, keychain.ExternalBranch, 0)
	if err != nil {
		w.reducer.Dispatch(CreationFailed{})
		return "", err
	}

	// A saved registry is only ever extended, by the seed that derived
	// it.
	known := w.reducer.IsKnown(addr)
	if !known && len(w.reducer.Addresses()) > 0 {
		log.Warnf("Seed derives %s, which is not a saved address", addr)
		return "", ErrWrongSeed
	}

	if err := w.storeKey(addr, kp); err != nil {
		w.reducer.Dispatch(CreationFailed{})
		return "", err
	}
	if !known {
		w.reducer.Dispatch(CreatedAddress{Address: addr})
	}

	w.mtx.Lock()
	w.root = root
	w.nextReceive = w.scanIndex(root, keychain.ExternalBranch, 1)
	w.nextChange = w.scanIndex(root, keychain.InternalBranch, 0)
	w.mtx.Unlock()

	if err := w.persist(); err != nil {
		return "", err
	}

	log.Infof("Initialized wallet at address %s", addr)

	return addr, nil
}

// scanIndex returns the first index at or after start whose address on
// branch is not registered.
func (w *Wallet) scanIndex(root *keychain.ExtendedKey, branch,
	start uint32) uint32 {

	for i := start; ; i++ {
		_, addr, err := w.deriveKeyPair(root, branch, i)
		if err != nil || !w.reducer.IsKnown(addr) {
			return i
		}
	}
}

// path returns the BIP-44 path of the address at branch/index.
func (w *Wallet) path(branch, index uint32) string {
	if branch == keychain.InternalBranch {
		return keychain.ChangePath(w.coinType, w.cfg.Account, index)
	}
	return keychain.ReceivePath(w.coinType, w.cfg.Account, index)
}

func (w *Wallet) deriveKeyPair(root *keychain.ExtendedKey, branch,
	index uint32) (*keychain.KeyPair, string, error) {

	child, err := root.DerivePath(w.path(branch, index))
	if err != nil {
		return nil, "", err
	}
	kp, err := child.KeyPair()
	if err != nil {
		return nil, "", err
	}
	addr, err := keychain.AddressFromKeyPair(kp)
	if err != nil {
		return nil, "", err
	}
	return kp, addr, nil
}

// deriveAddress derives the address at branch/index and stores its key.
func (w *Wallet) deriveAddress(root *keychain.ExtendedKey, branch,
	index uint32) (string, error) {

	kp, addr, err := w.deriveKeyPair(root, branch, index)
	if err != nil {
		return "", err
	}
	if err := w.storeKey(addr, kp); err != nil {
		return "", err
	}
	return addr, nil
}

func (w *Wallet) storeKey(addr string, kp *keychain.KeyPair) error {
	exported, err := keychain.ExportKeyPair(kp)
	if err != nil {
		return err
	}
	if err := w.cfg.Keystore.Put(addr, exported); err != nil {
		return fmt.Errorf("store key of %s: %w", addr, err)
	}
	return nil
}

// NewAddress derives, stores and registers the next receiving address.
func (w *Wallet) NewAddress(_ context.Context) (string, error) {
	addr, err := w.nextAddress(keychain.ExternalBranch)
	if err != nil {
		return "", err
	}
	if err := w.persist(); err != nil {
		return "", err
	}
	return addr, nil
}

func (w *Wallet) nextAddress(branch uint32) (string, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.root == nil {
		return "", ErrNotInitialized
	}

	next := &w.nextReceive
	if branch == keychain.InternalBranch {
		next = &w.nextChange
	}

	addr, err := w.deriveAddress(w.root, branch, *next)
	if err != nil {
		w.reducer.Dispatch(CreationFailed{})
		return "", err
	}
	w.reducer.Dispatch(CreatedAddress{Address: addr})

	log.Debugf("Derived address %s at %s", addr, w.path(branch, *next))
	*next++

	return addr, nil
}

// changeAddress is the txauthor.ChangeSource of the wallet.  Sessions holding
// the root key pay change to a fresh internal address; others reuse the
// first wallet address.
func (w *Wallet) changeAddress(_ btcutil.Amount) (string, error) {
	w.mtx.Lock()
	hasRoot := w.root != nil
	w.mtx.Unlock()

	if hasRoot {
		return w.nextAddress(keychain.InternalBranch)
	}

	addrs := w.reducer.Addresses()
	if len(addrs) == 0 {
		return "", ErrNotInitialized
	}
	return addrs[0].Address, nil
}

// LoadAddresses restores the address registry saved by an earlier session.
// Every address is due for a refresh afterwards.
func (w *Wallet) LoadAddresses(_ context.Context) error {
	if w.cfg.DB == nil {
		return nil
	}

	mgr, err := waddrmgr.Load(w.cfg.DB)
	if err != nil {
		return err
	}
	w.reducer.Dispatch(SetAddresses{Addresses: mgr.AddressStrings()})

	log.Infof("Loaded %d addresses", mgr.Len())

	return nil
}

// RefreshBalance replaces the cached outputs of addr with the indexer's.
// Unless force is set the query is skipped for addresses refreshed within
// the refresh threshold.  A failed query leaves the cache untouched.
func (w *Wallet) RefreshBalance(ctx context.Context, addr string,
	force bool) error {

	if !w.reducer.NeedsRefresh(addr, force) {
		log.Tracef("Skipping refresh of %s", addr)
		return nil
	}

	credits, err := w.cfg.Indexer.Unspent(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch unspent outputs of %s: %w", addr, err)
	}

	// The response still applies when it arrives after the caller gave
	// up on it.
	if !w.reducer.Dispatch(UpdateBalance{Address: addr, Unspent: credits}) {
		return nil
	}
	return w.persist()
}

// RefreshAll refreshes every address due for a refresh, or every address when
// force is set, concurrently.  All refreshes run to completion; the first
// failure is returned.
func (w *Wallet) RefreshAll(ctx context.Context, force bool) error {
	var g errgroup.Group
	for _, addr := range w.reducer.Outdated(force) {
		addr := addr
		g.Go(func() error {
			return w.RefreshBalance(ctx, addr, true)
		})
	}
	return g.Wait()
}

// CreatePlan selects outputs paying targets at the fee rate of speed.  A
// plan that cannot be funded has IsValid false.
func (w *Wallet) CreatePlan(targets []txauthor.TransactionTarget,
	speed txrules.Speed) (*txauthor.TransactionPlan, error) {

	rate := w.cfg.FeeTiers.Rate(speed)
	plan, err := txauthor.SelectCoins(
		w.reducer.Unspent(), targets, rate, w.changeAddress,
	)
	if err != nil {
		return nil, err
	}

	if plan.ChangeIndex().IsSome() {
		if err := w.persist(); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// SendTransaction signs plan with the keystore keys and broadcasts it,
// returning the txid.  Plans that could not be funded return
// ErrInsufficientFunds and a rejected broadcast returns ErrBroadcastFailed.
func (w *Wallet) SendTransaction(ctx context.Context,
	plan *txauthor.TransactionPlan) (string, error) {

	if plan == nil || !plan.IsValid {
		return "", ErrInsufficientFunds
	}

	rawTx, err := txauthor.BuildTransaction(
		plan, txauthor.KeyPairSource(w.keyPair), w.cfg.Net,
	)
	if err != nil {
		return "", err
	}

	txid := w.broadcaster.Broadcast(ctx, rawTx)
	if txid == "" {
		return "", ErrBroadcastFailed
	}

	log.Infof("Sent transaction %s paying %v (fee %v)", txid,
		plan.TotalOutput()-plan.Change(), plan.Fee)

	return txid, nil
}

// keyPair resolves the key of addr from the keystore.
func (w *Wallet) keyPair(addr string) (*keychain.KeyPair, error) {
	exported, err := w.cfg.Keystore.Get(addr)
	if err != nil {
		return nil, err
	}
	return keychain.ImportKeyPair(exported, w.cfg.Net)
}

// RefreshTransactions replaces the history of addr with the indexer's.
func (w *Wallet) RefreshTransactions(ctx context.Context, addr string) error {
	if !w.reducer.IsKnown(addr) {
		return nil
	}

	txs, err := w.cfg.Indexer.Transactions(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetch transactions of %s: %w", addr, err)
	}
	entries := ExtractHistory(addr, txs)

	w.mtx.Lock()
	w.history[addr] = entries
	w.mtx.Unlock()

	return nil
}

// History returns the last fetched history of addr.
func (w *Wallet) History(addr string) []HistoryEntry {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return append([]HistoryEntry(nil), w.history[addr]...)
}

// Addresses returns the registered addresses in registration order.
func (w *Wallet) Addresses() []waddrmgr.Address {
	return w.reducer.Addresses()
}

// Balances returns the balance of every address with cached outputs.
func (w *Wallet) Balances() map[string]wtxmgr.Balance {
	return w.reducer.Balances()
}

// CreationFailed reports whether deriving a wallet address has failed.
func (w *Wallet) CreationFailed() bool {
	return w.reducer.CreationFailed()
}

// CachedBalances returns the balances of the output cache last persisted,
// possibly by an earlier session.
func (w *Wallet) CachedBalances() (map[string]wtxmgr.Balance, error) {
	if w.cfg.DB == nil {
		return nil, nil
	}
	store, err := wtxmgr.Load(w.cfg.DB)
	if err != nil {
		return nil, err
	}
	return store.Balances(), nil
}

type balanceRecord struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
}

type balancesRecord struct {
	Balances map[string]balanceRecord `json:"balances"`
}

// persist writes the registry, the output cache and the derived balances.
func (w *Wallet) persist() error {
	db := w.cfg.DB
	if db == nil {
		return nil
	}

	w.persistMtx.Lock()
	defer w.persistMtx.Unlock()

	mgr, store := w.reducer.snapshot()
	if err := mgr.Save(db); err != nil {
		return err
	}
	if err := store.Save(db); err != nil {
		return err
	}

	rec := balancesRecord{Balances: make(map[string]balanceRecord)}
	for addr, b := range store.Balances() {
		rec.Balances[addr] = balanceRecord{
			Confirmed:   int64(b.Confirmed),
			Unconfirmed: int64(b.Unconfirmed),
		}
	}
	return db.SaveDocument(BalancesDocument, &rec, true)
}
