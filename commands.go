// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/pillarproject/btcwallet/internal/cfgutil"
	"github.com/pillarproject/btcwallet/internal/prompt"
	"github.com/pillarproject/btcwallet/wallet"
	"github.com/pillarproject/btcwallet/wallet/txauthor"
	"github.com/pillarproject/btcwallet/wallet/txrules"
	"github.com/pillarproject/btcwallet/wtxmgr"
)

// commandHandler runs one command with its positional arguments.
type commandHandler func(ctx context.Context, s *session, args []string) error

// commandHandlers maps each command name to its handler.
var commandHandlers = map[string]commandHandler{
	"create":     createWallet,
	"addresses":  listAddresses,
	"newaddress": newAddress,
	"balance":    showBalance,
	"send":       sendPayment,
	"history":    showHistory,
	"poll":       pollBalances,
}

// supportedCommands returns the sorted command names.
func supportedCommands() []string {
	names := make([]string, 0, len(commandHandlers))
	for name := range commandHandlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var errUsage = errors.New("invalid arguments")

// createWallet creates the encrypted keystore and initializes the wallet from
// a new or existing seed phrase.
func createWallet(ctx context.Context, s *session, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: usage: create", errUsage)
	}

	err := s.keystore.create(s.newPass, s.scrypt)
	if err != nil {
		return err
	}

	mnemonic, err := prompt.Mnemonic(s.reader)
	if err != nil {
		return err
	}
	addr, err := s.wallet.InitializeWallet(ctx, mnemonic)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Wallet created.  Receiving address: %s\n", addr)
	return nil
}

// restoreRoot asks for the seed phrase again so new addresses can be
// derived.  Addresses saved earlier are kept.
func restoreRoot(ctx context.Context, s *session) error {
	if err := s.wallet.LoadAddresses(ctx); err != nil {
		return err
	}
	mnemonic, err := prompt.ProvideMnemonic(s.reader)
	if err != nil {
		return err
	}
	_, err = s.wallet.InitializeWallet(ctx, mnemonic)
	return err
}

func listAddresses(ctx context.Context, s *session, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: usage: addresses", errUsage)
	}
	if err := s.wallet.LoadAddresses(ctx); err != nil {
		return err
	}

	for _, a := range s.wallet.Addresses() {
		fmt.Fprintln(s.out, a.Address)
	}
	return nil
}

func newAddress(ctx context.Context, s *session, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: usage: newaddress", errUsage)
	}
	if err := restoreRoot(ctx, s); err != nil {
		return err
	}

	addr, err := s.wallet.NewAddress(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, addr)
	return nil
}

// showBalance refreshes every address and prints its balance.  When the
// indexer cannot be reached the balances saved by the last refresh are
// shown instead.
func showBalance(ctx context.Context, s *session, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: usage: balance", errUsage)
	}
	if err := s.wallet.LoadAddresses(ctx); err != nil {
		return err
	}

	var balances map[string]wtxmgr.Balance
	if err := s.wallet.RefreshAll(ctx, s.cfg.Force); err != nil {
		log.Warnf("Showing saved balances: %v", err)

		balances, err = s.wallet.CachedBalances()
		if err != nil {
			return err
		}
	} else {
		balances = s.wallet.Balances()
	}

	tw := tabwriter.NewWriter(s.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tCONFIRMED\tUNCONFIRMED")
	var total btcutil.Amount
	for _, a := range s.wallet.Addresses() {
		b := balances[a.Address]
		total += b.Total()
		fmt.Fprintf(tw, "%s\t%v\t%v\n", a.Address, b.Confirmed,
			b.Unconfirmed)
	}
	fmt.Fprintf(tw, "TOTAL\t%v\t\n", total)
	return tw.Flush()
}

// sendPayment pays an amount to an address: send ADDRESS AMOUNT [SPEED].
func sendPayment(ctx context.Context, s *session, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: usage: send ADDRESS AMOUNT "+
			"[slow|normal|fast]", errUsage)
	}

	dest, err := btcutil.DecodeAddress(args[0], s.cfg.activeNet.Params)
	if err != nil || !dest.IsForNet(s.cfg.activeNet.Params) {
		return fmt.Errorf("invalid %s address %q", s.cfg.activeNet.Name,
			args[0])
	}
	amount := cfgutil.NewAmountFlag(0)
	if err := amount.UnmarshalFlag(args[1]); err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}
	speed := txrules.Normal
	if len(args) == 3 {
		speed, err = txrules.ParseSpeed(args[2])
		if err != nil {
			return err
		}
	}

	if err := s.wallet.LoadAddresses(ctx); err != nil {
		return err
	}
	if err := s.wallet.RefreshAll(ctx, true); err != nil {
		return err
	}

	plan, err := s.wallet.CreatePlan([]txauthor.TransactionTarget{{
		Address: dest.EncodeAddress(),
		Value:   amount.Amount,
	}}, speed)
	if err != nil {
		return err
	}
	if !plan.IsValid {
		return wallet.ErrInsufficientFunds
	}

	fmt.Fprintf(s.out, "Paying %v to %s with fee %v (%v)\n", amount.Amount,
		dest, plan.Fee, s.cfg.feeTiers().Rate(speed))

	txid, err := s.wallet.SendTransaction(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, txid)
	return nil
}

// showHistory prints the transactions of one or all wallet addresses.
func showHistory(ctx context.Context, s *session, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: usage: history [ADDRESS]", errUsage)
	}
	if err := s.wallet.LoadAddresses(ctx); err != nil {
		return err
	}

	var addrs []string
	if len(args) == 1 {
		addrs = append(addrs, args[0])
	} else {
		for _, a := range s.wallet.Addresses() {
			addrs = append(addrs, a.Address)
		}
	}

	tw := tabwriter.NewWriter(s.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDIRECTION\tVALUE\tFEE\tSTATUS\tCOUNTERPARTY\tHASH")
	for _, addr := range addrs {
		if err := s.wallet.RefreshTransactions(ctx, addr); err != nil {
			return err
		}

		for _, e := range s.wallet.History(addr) {
			direction, counterparty := "in", e.From
			if e.Outgoing(addr) {
				direction, counterparty = "out", e.To
			}
			fmt.Fprintf(tw, "%s\t%s\t%v\t%v\t%s\t%s\t%s\n",
				e.CreatedAt.Format(time.RFC3339), direction,
				e.Value, e.Fee, e.Status, counterparty, e.Hash)
		}
	}
	return tw.Flush()
}

// pollBalances keeps refreshing outdated addresses until interrupted.
func pollBalances(ctx context.Context, s *session, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: usage: poll", errUsage)
	}
	if err := s.wallet.LoadAddresses(ctx); err != nil {
		return err
	}
	if err := s.wallet.RefreshAll(ctx, true); err != nil {
		log.Warnf("Initial refresh failed: %v", err)
	}

	p := wallet.NewPoller(s.wallet, ticker.New(s.cfg.PollInterval))
	p.Start()
	log.Infof("Polling %d addresses every %v", len(s.wallet.Addresses()),
		s.cfg.PollInterval)

	<-ctx.Done()
	p.Stop()

	log.Info("Shutdown complete")
	return nil
}
