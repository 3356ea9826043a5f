// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btchistd/historydb"
	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"
)

// DefaultRetryDelay is how long the engine waits before retrying a failed
// iteration.
const DefaultRetryDelay = 15 * time.Second

// Initialization states of an engine.
const (
	stateNew int32 = iota
	stateInitializing
	stateReady
)

// Config is a configuration struct used to initialize a new Engine.
type Config struct {
	// Storage is the local store kept in sync.
	Storage Storage

	// Network is the authoritative remote chain.
	Network Network

	// ChainParams selects the address encoding used for history rows.
	// It defaults to the main network.
	ChainParams *chaincfg.Params

	// RetryDelay is the wait after a failed iteration.  It defaults to
	// DefaultRetryDelay.
	RetryDelay time.Duration
}

// Engine keeps the local history store consistent with the remote chain.  It
// rolls back reorganized blocks, advances one block per storage transaction
// toward the remote tip and reports progress to subscribers.
//
// Init must succeed before Run.  Run starts the catch-up loop in its own
// goroutine; the loop ends when the local tip hash equals the remote tip
// hash, after which EventFinish is raised and Done is closed.
type Engine struct {
	storage     Storage
	network     Network
	chainParams *chaincfg.Params
	retryDelay  time.Duration

	initState int32 // atomic
	started   int32 // atomic
	finished  int32 // atomic

	// mtx protects the fields below.  local and remote are always replaced
	// as a whole.
	mtx            sync.Mutex
	local          BlockRef
	remote         BlockRef
	progress       *progressTracker
	removeListener func()

	notifier       notifier
	progressLogger *blockProgressLogger

	// after returns a channel that fires once the delay has elapsed.
	after func(time.Duration) <-chan time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// New returns a new Engine.  Use Init and then Run to begin synchronizing.
func New(cfg *Config) *Engine {
	params := cfg.ChainParams
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		storage:        cfg.Storage,
		network:        cfg.Network,
		chainParams:    params,
		retryDelay:     retryDelay,
		progressLogger: newBlockProgressLogger("Processed", log),
		after:          time.After,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Init prepares the engine for synchronization: it discards unconfirmed data,
// reads the local and remote tips, seeds progress tracking and starts
// following remote block announcements.
//
// Any failure leaves the engine uninitialized and is reported as an
// ErrBootstrap SyncError.  Init must succeed exactly once before Run.
func (e *Engine) Init(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.initState, stateNew, stateInitializing) {
		return syncError(ErrAlreadyInitialized,
			"history sync is already initialized", nil)
	}

	local, remote, err := e.bootstrap(ctx)
	if err != nil {
		atomic.StoreInt32(&e.initState, stateNew)
		return err
	}

	e.mtx.Lock()
	e.local = local
	e.remote = remote
	e.progress = newProgressTracker(local, remote)
	e.mtx.Unlock()

	removeListener := e.network.AddBlockListener(e.handleBlockNotification)
	e.mtx.Lock()
	e.removeListener = removeListener
	e.mtx.Unlock()

	atomic.StoreInt32(&e.initState, stateReady)
	e.updateProgress()

	log.Infof("Got %d blocks in current db, out of %d blocks at the "+
		"remote node", local.Height+1, remote.Height+1)
	log.Debugf("Local tip %v, remote tip %v (progress step %d)", local,
		remote, progressStep(local, remote))
	return nil
}

// bootstrap performs the storage and network reads of Init without touching
// engine state.
func (e *Engine) bootstrap(ctx context.Context) (BlockRef, BlockRef, error) {
	// Later deletes depend on the earlier ones having run.
	err := e.storage.ExecuteQueries(ctx, unconfirmedQueries,
		historydb.ExecOptions{Concurrency: 1})
	if err != nil {
		return BlockRef{}, BlockRef{}, syncError(ErrBootstrap,
			"unable to discard unconfirmed data", err)
	}

	var (
		remote BlockRef
		latest *historydb.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		remote, err = e.network.GetLatest(gctx)
		if err != nil {
			return syncError(ErrBootstrap, "unable to fetch remote tip", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		latest, err = e.storage.ExecuteQuery(gctx, historydb.SelectLatestBlock)
		if err != nil {
			return syncError(ErrBootstrap, "unable to fetch local tip", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return BlockRef{}, BlockRef{}, err
	}

	local, err := blockRefFromResult(latest)
	if err != nil {
		return BlockRef{}, BlockRef{}, syncError(ErrBootstrap,
			"unable to decode local tip", err)
	}
	return local, remote, nil
}

// Run raises EventStart and starts the catch-up loop.  It does not block.
func (e *Engine) Run() error {
	if atomic.LoadInt32(&e.initState) != stateReady {
		return syncError(ErrNotInitialized,
			"history sync must be initialized before it is run", nil)
	}
	if !atomic.CompareAndSwapInt32(&e.started, 0, 1) {
		return syncError(ErrAlreadyStarted,
			"history sync is already running", nil)
	}

	log.Infof("Starting history sync")
	e.notifier.publish(Event{Type: EventStart, Info: e.Info()})

	e.wg.Add(1)
	go e.syncHandler()
	return nil
}

// Stop cancels the catch-up loop, releases the network listener and waits for
// the loop to exit.  It is safe to call at any time and more than once.
func (e *Engine) Stop() {
	e.cancel()
	e.releaseListener()
	e.wg.Wait()
}

// Done returns a channel that is closed once the catch-up loop has exited,
// either because the store is synced or because the engine was stopped.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Subscribe returns a subscription to engine events.
func (e *Engine) Subscribe() *Subscription {
	return e.notifier.subscribe()
}

// Info returns a snapshot of the engine state.  It is safe for concurrent
// access.
func (e *Engine) Info() Info {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	return e.infoLocked()
}

// infoLocked returns a snapshot of the engine state.  It must be called with
// the engine lock held.
func (e *Engine) infoLocked() Info {
	var value string
	if e.progress != nil {
		value = e.progress.value
	}
	return Info{Progress: value, Local: e.local, Remote: e.remote}
}

// releaseListener removes the network block listener if one is registered.
func (e *Engine) releaseListener() {
	e.mtx.Lock()
	remove := e.removeListener
	e.removeListener = nil
	e.mtx.Unlock()

	if remove != nil {
		remove()
		log.Debugf("Released remote block listener")
	}
}

// handleBlockNotification refreshes the remote tip after the network
// announced a block.  It runs on the network's goroutine, concurrently with
// the catch-up loop.
func (e *Engine) handleBlockNotification() {
	if atomic.LoadInt32(&e.finished) == 1 {
		return
	}

	remote, err := e.network.GetLatest(e.ctx)
	if err != nil {
		if e.ctx.Err() == nil {
			log.Warnf("Unable to refresh remote tip: %v", err)
		}
		return
	}

	e.mtx.Lock()
	e.remote = remote
	e.mtx.Unlock()

	log.Debugf("Remote tip is now %v", remote)
	e.updateProgress()
}

// setLocal replaces the local tip and recomputes progress.
func (e *Engine) setLocal(local BlockRef) {
	e.mtx.Lock()
	e.local = local
	e.mtx.Unlock()

	e.updateProgress()
}

// updateProgress recomputes the completion value and raises EventProgress
// when a reporting threshold was crossed.
func (e *Engine) updateProgress() {
	e.mtx.Lock()
	if e.progress == nil {
		e.mtx.Unlock()
		return
	}
	due := e.progress.update(e.local, e.remote)
	info := e.infoLocked()
	e.mtx.Unlock()

	if !due {
		return
	}
	log.Infof("HistorySync progress: %s", info.Progress)
	e.notifier.publish(Event{Type: EventProgress, Info: info})
}

// syncHandler drives the catch-up loop until the store is synced or the
// engine is stopped.  A failed iteration is retried after the retry delay.
// It must be run as a goroutine.
func (e *Engine) syncHandler() {
	defer e.wg.Done()
	defer close(e.done)
	defer e.releaseListener()

out:
	for {
		synced, err := e.step(e.ctx)
		switch {
		case err != nil && e.ctx.Err() != nil:
			break out

		case err != nil:
			log.Warnf("%v; retrying in %v", err, e.retryDelay)
			select {
			case <-e.after(e.retryDelay):
			case <-e.ctx.Done():
				break out
			}

		case synced:
			e.finish()
			break out
		}

		select {
		case <-e.ctx.Done():
			break out
		default:
		}
	}

	log.Tracef("History sync handler done")
}

// finish marks the store as synced, releases the network listener and raises
// EventFinish.
func (e *Engine) finish() {
	atomic.StoreInt32(&e.finished, 1)
	e.releaseListener()

	info := e.Info()
	log.Infof("History sync finished at %v", info.Local)
	log.Tracef("Final sync state: %v", newLogClosure(func() string {
		return spew.Sdump(info)
	}))
	e.notifier.publish(Event{Type: EventFinish, Info: info})
}

// step runs a single catch-up iteration.  It returns true when the local tip
// already matches the remote tip.  Otherwise one storage transaction either
// rewinds reorganized blocks or connects the next block, and the local tip is
// replaced only after the transaction committed.
//
// The remote tip not being past the next height is treated as a reorg and
// rewinds to one below the remote tip, except that a remote tip at exactly
// the next height is connected when its parent is the local tip.  A block
// whose parent is not the local tip rewinds the local tip itself.
func (e *Engine) step(ctx context.Context) (bool, error) {
	e.mtx.Lock()
	local, remote := e.local, e.remote
	e.mtx.Unlock()

	if local.Hash == remote.Hash {
		return true, nil
	}

	var (
		newLocal  BlockRef
		connected *wire.MsgBlock
	)
	nextHeight := local.Height + 1
	err := e.storage.ExecuteTransaction(ctx, func(client historydb.Client) error {
		newLocal, connected = BlockRef{}, nil

		if nextHeight > remote.Height {
			log.Warnf("Reorg found: from %d to %d", local.Height,
				remote.Height)
			var err error
			newLocal, err = e.rewind(ctx, client, remote.Height-1)
			return err
		}

		ref, block, err := e.connectBlock(ctx, client, local, nextHeight)
		var serr SyncError
		if errors.As(err, &serr) && serr.ErrorCode == ErrOrphanBlock {
			log.Warnf("Reorg found: from %d to %d (%v)", local.Height,
				remote.Height, serr.Description)
			newLocal, err = e.rewind(ctx, client, local.Height)
			return err
		}
		if err != nil {
			return err
		}
		newLocal, connected = ref, block
		return nil
	})
	if err != nil {
		str := fmt.Sprintf("history sync failed at height %d", nextHeight)
		return false, syncError(ErrSyncIteration, str, err)
	}

	if connected != nil {
		e.progressLogger.LogBlockHeight(connected, newLocal.Height)
	} else {
		log.Infof("Rewound local history to %v", newLocal)
	}
	e.setLocal(newLocal)
	return false, nil
}
