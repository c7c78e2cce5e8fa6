// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	interruptOnce sync.Once

	// interruptChannel is used to receive SIGINT (Ctrl+C) and SIGTERM
	// signals.
	interruptChannel chan os.Signal

	// addHandlerChannel is used to add an interrupt handler to the list
	// of handlers to be invoked on an interrupt.
	addHandlerChannel = make(chan func())
)

// mainInterruptHandler listens for signals on the interruptChannel and invokes
// the registered interruptCallbacks in LIFO order.  A second signal exits
// immediately.  It must be run as a goroutine.
func mainInterruptHandler() {
	var interruptCallbacks []func()
	interrupted := false

	for {
		select {
		case sig := <-interruptChannel:
			if interrupted {
				log.Infof("Received signal (%s) again.  "+
					"Exiting now.", sig)
				os.Exit(1)
			}
			interrupted = true

			log.Infof("Received signal (%s).  Shutting down...", sig)
			for i := len(interruptCallbacks) - 1; i >= 0; i-- {
				interruptCallbacks[i]()
			}

		case handler := <-addHandlerChannel:
			if interrupted {
				handler()
				continue
			}
			interruptCallbacks = append(interruptCallbacks, handler)
		}
	}
}

// addInterruptHandler adds a handler to call when a SIGINT (Ctrl+C) or
// SIGTERM is received.
func addInterruptHandler(handler func()) {
	interruptOnce.Do(func() {
		interruptChannel = make(chan os.Signal, 1)
		signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)
		go mainInterruptHandler()
	})

	addHandlerChannel <- handler
}
