// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btchistd/historysync"
	"github.com/decred/dcrd/lru"
)

const (
	// DefaultPollInterval is how often the best block hash is polled in
	// HTTP POST mode.
	DefaultPollInterval = 10 * time.Second

	// announcedCacheSize is the number of recently announced block hashes
	// remembered to suppress duplicate announcements.
	announcedCacheSize = 64
)

// ErrClientShutdown is returned by calls made after Stop.
var ErrClientShutdown = errors.New("chain client has been shut down")

// Config is the configuration of a Client.
type Config struct {
	// Host is the host:port of the RPC server.
	Host string

	// User and Pass authenticate against the RPC server.
	User string
	Pass string

	// Certificates holds the PEM encoded certificates of the RPC server
	// when TLS is enabled.
	Certificates []byte

	// DisableTLS connects without TLS.
	DisableTLS bool

	// HTTPPostMode uses HTTP POST requests and block polling instead of a
	// websocket with notifications.
	HTTPPostMode bool

	// PollInterval is the interval between best block polls in HTTP POST
	// mode.  It defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// chainRPC is the subset of the rpcclient.Client API used by Client.
type chainRPC interface {
	GetBlockCount() (int64, error)
	GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
	GetBlock(blockHash *chainhash.Hash) (*wire.MsgBlock, error)
	GetBestBlockHash() (*chainhash.Hash, error)
	NotifyBlocks() error
	Shutdown()
	WaitForShutdown()
}

// Ensure the rpcclient satisfies the chainRPC interface.
var _ chainRPC = (*rpcclient.Client)(nil)

// Client is the remote chain view consumed by the history synchronizer.
type Client struct {
	started  int32 // atomic
	shutdown int32 // atomic

	rpc          chainRPC
	pollMode     bool
	pollInterval time.Duration

	// announced tracks recently announced block hashes.  It is safe for
	// concurrent access.
	announced lru.Cache

	mtx       sync.Mutex
	listeners map[uint64]func()
	nextID    uint64
	bestHash  chainhash.Hash

	// wake is signaled for every new announcement.  Its buffer of one
	// coalesces announcements that arrive while listeners run.
	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup
}

// Ensure Client satisfies the historysync.Network interface.
var _ historysync.Network = (*Client)(nil)

// New returns a new chain client for the passed configuration.  In websocket
// mode the connection is established before New returns.
func New(cfg *Config) (*Client, error) {
	c := newClient(cfg)

	connCfg := &rpcclient.ConnConfig{
		Host:                cfg.Host,
		Endpoint:            "ws",
		User:                cfg.User,
		Pass:                cfg.Pass,
		Certificates:        cfg.Certificates,
		DisableTLS:          cfg.DisableTLS,
		HTTPPostMode:        cfg.HTTPPostMode,
		DisableConnectOnNew: cfg.HTTPPostMode,
	}

	var handlers *rpcclient.NotificationHandlers
	if !cfg.HTTPPostMode {
		handlers = &rpcclient.NotificationHandlers{
			OnClientConnected: c.onClientConnected,
			OnBlockConnected: func(hash *chainhash.Hash, height int32, t time.Time) {
				c.onBlockConnected(hash, height)
			},
		}
	}

	rpc, err := rpcclient.New(connCfg, handlers)
	if err != nil {
		return nil, err
	}
	c.rpc = rpc
	return c, nil
}

// newClient returns a client without an RPC connection.
func newClient(cfg *Config) *Client {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Client{
		pollMode:     cfg.HTTPPostMode,
		pollInterval: pollInterval,
		announced:    lru.NewCache(announcedCacheSize),
		listeners:    make(map[uint64]func()),
		wake:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
	}
}

// Start begins following the remote chain.  In HTTP POST mode the best block
// is polled every poll interval; otherwise the server is asked to send block
// notifications.
func (c *Client) Start() error {
	if atomic.AddInt32(&c.started, 1) != 1 {
		return nil
	}

	log.Trace("Starting chain client")

	if c.pollMode {
		best, err := c.rpc.GetBestBlockHash()
		if err != nil {
			return fmt.Errorf("unable to fetch best block: %w", err)
		}
		c.mtx.Lock()
		c.bestHash = *best
		c.mtx.Unlock()
		c.announced.Add(*best)

		c.wg.Add(1)
		go c.pollHandler()
	} else {
		if err := c.rpc.NotifyBlocks(); err != nil {
			return fmt.Errorf("unable to register for block "+
				"notifications: %w", err)
		}
		log.Debugf("Registered for block notifications")
	}

	c.wg.Add(1)
	go c.dispatchHandler()
	return nil
}

// Stop shuts down the client and waits for its goroutines to exit.
func (c *Client) Stop() {
	if atomic.AddInt32(&c.shutdown, 1) != 1 {
		log.Infof("Chain client is already in the process of shutting down")
		return
	}

	log.Infof("Chain client shutting down")
	close(c.quit)
	c.wg.Wait()
	if c.rpc != nil {
		c.rpc.Shutdown()
		c.rpc.WaitForShutdown()
	}
}

// GetLatest returns the remote tip.
func (c *Client) GetLatest(ctx context.Context) (historysync.BlockRef, error) {
	if err := c.checkCall(ctx); err != nil {
		return historysync.BlockRef{}, err
	}

	count, err := c.rpc.GetBlockCount()
	if err != nil {
		return historysync.BlockRef{}, err
	}
	hash, err := c.rpc.GetBlockHash(count)
	if err != nil {
		return historysync.BlockRef{}, err
	}
	return historysync.BlockRef{Hash: *hash, Height: int32(count)}, nil
}

// GetBlock returns the main chain block at height.
func (c *Client) GetBlock(ctx context.Context, height int32) (*wire.MsgBlock, error) {
	if err := c.checkCall(ctx); err != nil {
		return nil, err
	}

	hash, err := c.rpc.GetBlockHash(int64(height))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.rpc.GetBlock(hash)
}

// AddBlockListener registers fn to be called whenever the remote chain
// announces a block.  The returned function removes the listener.
func (c *Client) AddBlockListener(fn func()) func() {
	c.mtx.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	count := len(c.listeners)
	c.mtx.Unlock()

	log.Debugf("Added block listener (%d registered)", count)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mtx.Lock()
			delete(c.listeners, id)
			count := len(c.listeners)
			c.mtx.Unlock()

			log.Debugf("Removed block listener (%d registered)", count)
		})
	}
}

func (c *Client) checkCall(ctx context.Context) error {
	if atomic.LoadInt32(&c.shutdown) != 0 {
		return ErrClientShutdown
	}
	return ctx.Err()
}

// onClientConnected handles connects and reconnects of the websocket.
// Blocks may have been missed while disconnected, so listeners are told to
// refresh.
func (c *Client) onClientConnected() {
	log.Infof("Connected to the RPC server")
	c.announce()
}

// onBlockConnected handles block connected notifications.
func (c *Client) onBlockConnected(hash *chainhash.Hash, height int32) {
	if c.announced.Contains(*hash) {
		log.Tracef("Ignoring repeated announcement of block %v", hash)
		return
	}
	c.announced.Add(*hash)

	log.Debugf("Block %v (height %d) connected", hash, height)
	c.announce()
}

// announce queues a notification of the registered listeners.  It never
// blocks, so it is safe to call from the rpcclient notification handlers.
func (c *Client) announce() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// dispatchHandler invokes the registered listeners after announcements.  Only
// one dispatch runs at a time.  It must be run as a goroutine.
func (c *Client) dispatchHandler() {
	defer c.wg.Done()

out:
	for {
		select {
		case <-c.wake:
			c.mtx.Lock()
			fns := make([]func(), 0, len(c.listeners))
			for _, fn := range c.listeners {
				fns = append(fns, fn)
			}
			c.mtx.Unlock()

			for _, fn := range fns {
				fn()
			}

		case <-c.quit:
			break out
		}
	}

	log.Trace("Chain client dispatch handler done")
}

// pollHandler polls the best block hash and announces changes.  It must be
// run as a goroutine.
func (c *Client) pollHandler() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

out:
	for {
		select {
		case <-ticker.C:
			c.pollBest()

		case <-c.quit:
			break out
		}
	}

	log.Trace("Chain client poll handler done")
}

// pollBest announces the best block when it changed since the last poll.
func (c *Client) pollBest() {
	best, err := c.rpc.GetBestBlockHash()
	if err != nil {
		log.Warnf("Unable to poll best block: %v", err)
		return
	}

	c.mtx.Lock()
	changed := c.bestHash != *best
	c.bestHash = *best
	c.mtx.Unlock()

	if !changed || c.announced.Contains(*best) {
		return
	}
	c.announced.Add(*best)

	log.Debugf("Best block is now %v", best)
	c.announce()
}
