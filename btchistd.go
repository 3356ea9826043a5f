// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/btcsuite/btchistd/chainclient"
	"github.com/btcsuite/btchistd/historydb"
	"github.com/btcsuite/btchistd/historysync"
	"github.com/btcsuite/btchistd/internal/limits"
	"github.com/btcsuite/btchistd/internal/log"
	"github.com/btcsuite/btchistd/internal/version"
)

var (
	cfg *config

	// bhsdLog is the logger of the daemon itself.
	bhsdLog = log.BhsdLog
)

// winServiceMain is only invoked on Windows.  It detects when btchistd is
// running as a service and reacts accordingly.
var winServiceMain func() (bool, error)

// btchistdMain is the real main function for btchistd.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.  The optional engineChan parameter is mainly used by the service
// code to be notified with the engine once it is running so it can be
// reported to the service control manager.
func btchistdMain(engineChan chan<- *historysync.Engine) error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if log.LogRotator != nil {
			log.LogRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as the Windows service control manager.
	interrupt := interruptListener()
	defer bhsdLog.Info("Shutdown complete")

	// Show version at startup.
	bhsdLog.Infof("Version %s", version.String())

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	// Load the history database.
	db, err := loadHistoryDB()
	if err != nil {
		bhsdLog.Errorf("%v", err)
		return err
	}
	defer func() {
		// Ensure the database is closed on shutdown.
		bhsdLog.Infof("Gracefully shutting down the database...")
		db.Close()
	}()

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	// Connect to the RPC server.
	client, err := loadChainClient()
	if err != nil {
		bhsdLog.Errorf("Unable to connect to RPC server %s: %v",
			cfg.RPCConnect, err)
		return err
	}
	defer client.Stop()
	if err := client.Start(); err != nil {
		bhsdLog.Errorf("Unable to start chain client: %v", err)
		return err
	}

	engine := historysync.New(&historysync.Config{
		Storage:     db,
		Network:     client,
		ChainParams: activeNetParams.Params,
		RetryDelay:  cfg.RetryDelay,
	})
	defer engine.Stop()

	// Abort a bootstrap still in flight when an interrupt arrives.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-interrupt:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := engine.Init(ctx); err != nil {
		bhsdLog.Errorf("Unable to initialize history sync: %v", err)
		return err
	}

	sub := engine.Subscribe()
	defer sub.Unsubscribe()
	go eventHandler(sub)

	if err := engine.Run(); err != nil {
		bhsdLog.Errorf("Unable to start history sync: %v", err)
		return err
	}
	if engineChan != nil {
		engineChan <- engine
	}

	// Wait until the history is caught up or the user asked to stop.
	select {
	case <-engine.Done():
	case <-interrupt:
	}
	return nil
}

// eventHandler logs sync start and finish events.  It returns once the
// subscription is closed and must be run as a goroutine.
func eventHandler(sub *historysync.Subscription) {
	for event := range sub.C {
		switch event.Type {
		case historysync.EventStart:
			behind := event.Info.Remote.Height - event.Info.Local.Height
			if behind < 0 {
				behind = 0
			}
			bhsdLog.Infof("Syncing history from %v to %v (%d %s behind)",
				event.Info.Local, event.Info.Remote, behind,
				log.PickNoun(uint64(behind), "block", "blocks"))

		case historysync.EventFinish:
			bhsdLog.Infof("History is up to date at %v", event.Info.Local)
		}
	}
}

// loadHistoryDB opens the history database in the network specific data
// directory, creating it when it does not exist yet.
func loadHistoryDB() (*historydb.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(cfg.DataDir, defaultDbFilename)
	bhsdLog.Infof("Loading history database from '%s'", dbPath)
	db, err := historydb.Create(dbPath)
	if err != nil {
		return nil, err
	}

	bhsdLog.Info("History database loaded")
	return db, nil
}

// loadChainClient returns a chain client for the configured RPC server.
func loadChainClient() (*chainclient.Client, error) {
	var certs []byte
	if !cfg.NoClientTLS {
		var err error
		certs, err = os.ReadFile(cfg.RPCCert)
		if err != nil {
			return nil, fmt.Errorf("unable to read RPC certificate: %w",
				err)
		}
	}

	return chainclient.New(&chainclient.Config{
		Host:         cfg.RPCConnect,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		Certificates: certs,
		DisableTLS:   cfg.NoClientTLS,
		HTTPPostMode: cfg.HTTPPostMode,
		PollInterval: cfg.PollInterval,
	})
}

func main() {
	// Up some limits.
	if err := limits.SetLimits(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set limits: %v\n", err)
		os.Exit(1)
	}

	// Call serviceMain on Windows to handle running as a service.  When
	// the return isService flag is true, exit now since we ran as a
	// service.  Otherwise, just fall through to normal operation.
	if runtime.GOOS == "windows" {
		isService, err := winServiceMain()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if isService {
			os.Exit(0)
		}
	}

	// Work around defer not working after os.Exit()
	if err := btchistdMain(nil); err != nil {
		os.Exit(1)
	}
}
