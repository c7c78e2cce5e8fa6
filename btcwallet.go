// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
	"github.com/pillarproject/btcwallet/internal/cfgutil"
	"github.com/pillarproject/btcwallet/walletdb"
)

const appVersion = "0.16.10-alpha"

func main() {
	// Work around defer not working after os.Exit.
	if err := walletMain(); err != nil {
		os.Exit(1)
	}
}

// walletMain is a work-around main function that is required since deferred
// functions (such as log flushing) are not called with calls to os.Exit.
// Instead, main runs this function and checks for a non-nil error, at which
// point any defers have already run, and if the error is non-nil, the program
// can be exited with an error exit status.
func walletMain() error {
	cfg, args, err := loadConfig(os.Args[1:])
	switch {
	case errors.Is(err, errShowVersion):
		fmt.Println(filepath.Base(os.Args[0]), "version", appVersion)
		return nil

	case err != nil:
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		return nil
	}

	err = initLogRotator(
		filepath.Join(cfg.LogDir, defaultLogFilename),
		cfg.MaxLogFileSize, cfg.MaxLogRolls,
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer logRotator.Close()

	setLogLevels(defaultLogLevel)
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if len(args) == 0 {
		err := fmt.Errorf("no command given -- supported commands %v",
			supportedCommands())
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	handler, ok := commandHandlers[args[0]]
	if !ok {
		err := fmt.Errorf("unknown command %q -- supported commands %v",
			args[0], supportedCommands())
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addInterruptHandler(cancel)

	// Ensure the wallet exists unless it is being created.
	dbFileExists, err := cfgutil.FileExists(cfg.dbPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if !dbFileExists && args[0] != "create" {
		err := fmt.Errorf("the wallet does not exist -- run %s create",
			filepath.Base(os.Args[0]))
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	db, err := walletdb.Open(cfg.dbPath(), cfg.DBTimeout, walletdb.NewRegistry())
	if err != nil {
		log.Errorf("Unable to open wallet database: %v", err)
		return err
	}
	defer func() {
		db.Registry().Close()
		if err := db.Close(); err != nil {
			log.Warnf("Error closing database: %v", err)
		}
	}()

	s, err := newSession(cfg, db, os.Stdin, os.Stdout)
	if err != nil {
		log.Errorf("Unable to create wallet: %v", err)
		return err
	}
	defer s.keystore.lock()

	if err := handler(ctx, s, args[1:]); err != nil {
		log.Errorf("%s: %v", args[0], err)
		return err
	}
	return nil
}
