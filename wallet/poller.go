// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
)

// DefaultPollInterval is how often the poller refreshes outdated addresses.
const DefaultPollInterval = 30 * time.Second

// Poller refreshes outdated wallet addresses on every tick of its ticker.
type Poller struct {
	started sync.Once
	stopped sync.Once

	wallet *Wallet
	ticker ticker.Ticker

	// done is signalled after every completed poll.  Used by tests.
	done chan error

	cancel context.CancelFunc
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewPoller returns a poller driving w.  A nil t polls every
// DefaultPollInterval.
func NewPoller(w *Wallet, t ticker.Ticker) *Poller {
	if t == nil {
		t = ticker.New(DefaultPollInterval)
	}
	return &Poller{
		wallet: w,
		ticker: t,
		quit:   make(chan struct{}),
	}
}

// Start begins polling.
func (p *Poller) Start() {
	p.started.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel

		p.wg.Add(1)
		go p.pollHandler(ctx)
	})
}

// Stop ends polling, abandoning a refresh in flight, and waits for the
// polling goroutine to exit.
func (p *Poller) Stop() {
	p.stopped.Do(func() {
		close(p.quit)
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
	})
}

// pollHandler runs one unforced refresh per tick.
//
// NOTE: This must be run as a goroutine.
func (p *Poller) pollHandler(ctx context.Context) {
	defer p.wg.Done()

	p.ticker.Resume()
	defer p.ticker.Stop()

	for {
		select {
		case <-p.ticker.Ticks():
			err := p.wallet.RefreshAll(ctx, false)
			if err != nil {
				log.Warnf("Unable to refresh addresses: %v", err)
			}
			if p.done != nil {
				select {
				case p.done <- err:
				case <-p.quit:
					return
				}
			}

		case <-p.quit:
			return
		}
	}
}
