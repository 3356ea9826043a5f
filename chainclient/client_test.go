// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// fakeRPC serves a chain of block hashes.  Blocks are empty apart from their
// header.
type fakeRPC struct {
	mtx      sync.Mutex
	blocks   []*wire.MsgBlock
	notified int32
	shutdown int32
	err      error
}

func newFakeRPC(tipHeight int) *fakeRPC {
	f := &fakeRPC{}
	f.extend(tipHeight)
	return f
}

func (f *fakeRPC) extend(tipHeight int) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	for h := len(f.blocks); h <= tipHeight; h++ {
		prev := chaincfg.RegressionNetParams.GenesisHash
		if h > 0 {
			hash := f.blocks[h-1].BlockHash()
			prev = &hash
		}
		f.blocks = append(f.blocks, &wire.MsgBlock{
			Header: wire.BlockHeader{
				PrevBlock: *prev,
				Timestamp: time.Unix(int64(h), 0),
				Nonce:     uint32(h),
			},
		})
	}
}

func (f *fakeRPC) tip() (*chainhash.Hash, int64) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	hash := f.blocks[len(f.blocks)-1].BlockHash()
	return &hash, int64(len(f.blocks) - 1)
}

func (f *fakeRPC) GetBlockCount() (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	_, height := f.tip()
	return height, nil
}

func (f *fakeRPC) GetBlockHash(height int64) (*chainhash.Hash, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if height < 0 || height >= int64(len(f.blocks)) {
		return nil, errors.New("block number out of range")
	}
	hash := f.blocks[height].BlockHash()
	return &hash, nil
}

func (f *fakeRPC) GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	for _, block := range f.blocks {
		if block.BlockHash() == *hash {
			return block, nil
		}
	}
	return nil, errors.New("block not found")
}

func (f *fakeRPC) GetBestBlockHash() (*chainhash.Hash, error) {
	hash, _ := f.tip()
	return hash, nil
}

func (f *fakeRPC) NotifyBlocks() error {
	atomic.AddInt32(&f.notified, 1)
	return nil
}

func (f *fakeRPC) Shutdown() {
	atomic.AddInt32(&f.shutdown, 1)
}

func (f *fakeRPC) WaitForShutdown() {}

func newTestClient(t *testing.T, rpc *fakeRPC, cfg *Config) *Client {
	t.Helper()

	c := newClient(cfg)
	c.rpc = rpc
	require.NoError(t, c.Start())
	t.Cleanup(c.Stop)
	return c
}

func waitCalls(t *testing.T, calls chan struct{}) {
	t.Helper()

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for listener")
	}
}

// TestGetLatestAndBlock ensures the tip and blocks by height are read from
// the RPC server.
func TestGetLatestAndBlock(t *testing.T) {
	rpc := newFakeRPC(12)
	c := newTestClient(t, rpc, &Config{})
	ctx := context.Background()

	latest, err := c.GetLatest(ctx)
	require.NoError(t, err)
	hash, height := rpc.tip()
	require.EqualValues(t, height, latest.Height)
	require.Equal(t, *hash, latest.Hash)

	block, err := c.GetBlock(ctx, 12)
	require.NoError(t, err)
	require.Equal(t, *hash, block.BlockHash())

	_, err = c.GetBlock(ctx, 13)
	require.Error(t, err)

	rpc.err = errors.New("connection refused")
	_, err = c.GetLatest(ctx)
	require.Error(t, err)
	rpc.err = nil

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.GetLatest(cctx)
	require.ErrorIs(t, err, context.Canceled)

	c.Stop()
	_, err = c.GetBlock(ctx, 0)
	require.ErrorIs(t, err, ErrClientShutdown)
	require.EqualValues(t, 1, atomic.LoadInt32(&rpc.shutdown))
}

// TestBlockNotifications ensures websocket block announcements reach the
// listeners once per block and stop after the listener is removed.
func TestBlockNotifications(t *testing.T) {
	rpc := newFakeRPC(3)
	c := newTestClient(t, rpc, &Config{})
	require.EqualValues(t, 1, atomic.LoadInt32(&rpc.notified))

	calls := make(chan struct{}, 16)
	remove := c.AddBlockListener(func() { calls <- struct{}{} })

	rpc.extend(4)
	hash, height := rpc.tip()
	c.onBlockConnected(hash, int32(height))
	waitCalls(t, calls)

	// A repeated announcement of the same block is suppressed.
	c.onBlockConnected(hash, int32(height))
	select {
	case <-calls:
		t.Fatal("listener called for a repeated block")
	case <-time.After(100 * time.Millisecond):
	}

	// Reconnects always notify since blocks may have been missed.
	c.onClientConnected()
	waitCalls(t, calls)

	remove()
	remove()
	rpc.extend(5)
	hash, height = rpc.tip()
	c.onBlockConnected(hash, int32(height))
	select {
	case <-calls:
		t.Fatal("removed listener called")
	case <-time.After(100 * time.Millisecond):
	}
}

// TestPollMode ensures HTTP POST mode announces changes of the best block
// found by polling.
func TestPollMode(t *testing.T) {
	rpc := newFakeRPC(3)
	c := newTestClient(t, rpc, &Config{
		HTTPPostMode: true,
		PollInterval: 10 * time.Millisecond,
	})
	require.EqualValues(t, 0, atomic.LoadInt32(&rpc.notified))

	calls := make(chan struct{}, 16)
	c.AddBlockListener(func() { calls <- struct{}{} })

	select {
	case <-calls:
		t.Fatal("listener called without a new block")
	case <-time.After(100 * time.Millisecond):
	}

	rpc.extend(4)
	waitCalls(t, calls)

	hash, _ := rpc.tip()
	c.mtx.Lock()
	require.Equal(t, *hash, c.bestHash)
	c.mtx.Unlock()
}
