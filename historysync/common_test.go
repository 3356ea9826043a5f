// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btchistd/historydb"
	"github.com/stretchr/testify/require"
)

// testParams are the chain parameters used to encode test addresses.
var testParams = &chaincfg.RegressionNetParams

// errInjected is returned by the fault injecting collaborators.
var errInjected = errors.New("injected failure")

// testAddress returns a deterministic pay-to-pubkey-hash address.
func testAddress(t *testing.T, seed byte) btcutil.Address {
	t.Helper()

	pkHash := make([]byte, 20)
	for i := range pkHash {
		pkHash[i] = seed
	}
	addr, err := btcutil.NewAddressPubKeyHash(pkHash, testParams)
	require.NoError(t, err)
	return addr
}

func payToScript(t *testing.T, addr btcutil.Address) []byte {
	t.Helper()

	script, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	return script
}

// fakeChain is an in-memory Network.  Every block carries a coinbase paying
// the miner address and, above genesis, a transaction spending the previous
// block's coinbase to the payee address.
type fakeChain struct {
	t *testing.T

	mtx       sync.Mutex
	blocks    []*wire.MsgBlock
	listeners map[int]func()
	nextID    int

	// failHeights holds the number of remaining GetBlock failures per
	// height.
	failHeights map[int32]int
	latestErr   error

	miner, payee btcutil.Address
}

func newFakeChain(t *testing.T, tipHeight int32) *fakeChain {
	c := &fakeChain{
		t:           t,
		listeners:   make(map[int]func()),
		failHeights: make(map[int32]int),
		miner:       testAddress(t, 0x01),
		payee:       testAddress(t, 0x02),
	}
	c.extend(tipHeight, 0)
	return c
}

// buildBlock creates the block at height on top of the current chain.  salt
// makes blocks of competing branches distinct.
func (c *fakeChain) buildBlock(height int32, salt uint32) *wire.MsgBlock {
	var prevHash chainhash.Hash
	var prevCoinbase *wire.MsgTx
	if height > 0 {
		prev := c.blocks[height-1]
		prevHash = prev.BlockHash()
		prevCoinbase = prev.Transactions[0]
	}

	sigScript := make([]byte, 8)
	binary.LittleEndian.PutUint32(sigScript[:4], uint32(height))
	binary.LittleEndian.PutUint32(sigScript[4:], salt)

	coinbase := wire.NewMsgTx(wire.TxVersion)
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: math.MaxUint32},
		SignatureScript:  sigScript,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	coinbase.AddTxOut(wire.NewTxOut(50*btcutil.SatoshiPerBitcoin,
		payToScript(c.t, c.miner)))

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: prevHash,
			Timestamp: time.Unix(1500000000+int64(height)*600, 0),
			Bits:      0x207fffff,
			Nonce:     salt,
		},
	}
	block.AddTransaction(coinbase)

	if prevCoinbase != nil {
		spend := wire.NewMsgTx(wire.TxVersion)
		spend.AddTxIn(&wire.TxIn{
			PreviousOutPoint: wire.OutPoint{Hash: prevCoinbase.TxHash()},
			Sequence:         wire.MaxTxInSequenceNum,
		})
		spend.AddTxOut(wire.NewTxOut(49*btcutil.SatoshiPerBitcoin,
			payToScript(c.t, c.payee)))
		block.AddTransaction(spend)
	}

	root := coinbase.TxHash()
	block.Header.MerkleRoot = root
	return block
}

// extend grows the chain up to tipHeight using salt for the new blocks.
func (c *fakeChain) extend(tipHeight int32, salt uint32) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	for h := int32(len(c.blocks)); h <= tipHeight; h++ {
		c.blocks = append(c.blocks, c.buildBlock(h, salt))
	}
}

// fork replaces every block from forkHeight on with a competing branch that
// ends at tipHeight.
func (c *fakeChain) fork(forkHeight, tipHeight int32, salt uint32) {
	c.mtx.Lock()
	c.blocks = c.blocks[:forkHeight]
	c.mtx.Unlock()

	c.extend(tipHeight, salt)
}

// failBlock makes the next n fetches of the block at height fail.
func (c *fakeChain) failBlock(height int32, n int) {
	c.mtx.Lock()
	c.failHeights[height] = n
	c.mtx.Unlock()
}

func (c *fakeChain) setLatestErr(err error) {
	c.mtx.Lock()
	c.latestErr = err
	c.mtx.Unlock()
}

func (c *fakeChain) hashAt(height int32) chainhash.Hash {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.blocks[height].BlockHash()
}

func (c *fakeChain) tip() BlockRef {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	height := int32(len(c.blocks) - 1)
	return BlockRef{Hash: c.blocks[height].BlockHash(), Height: height}
}

func (c *fakeChain) GetLatest(ctx context.Context) (BlockRef, error) {
	c.mtx.Lock()
	err := c.latestErr
	c.mtx.Unlock()
	if err != nil {
		return BlockRef{}, err
	}
	return c.tip(), nil
}

func (c *fakeChain) GetBlock(ctx context.Context, height int32) (*wire.MsgBlock, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if n := c.failHeights[height]; n > 0 {
		c.failHeights[height] = n - 1
		return nil, errInjected
	}
	if height < 0 || int(height) >= len(c.blocks) {
		return nil, fmt.Errorf("no block at height %d", height)
	}
	return c.blocks[height], nil
}

func (c *fakeChain) AddBlockListener(fn func()) func() {
	c.mtx.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mtx.Unlock()

	return func() {
		c.mtx.Lock()
		delete(c.listeners, id)
		c.mtx.Unlock()
	}
}

func (c *fakeChain) listenerCount() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return len(c.listeners)
}

// notify announces a new block to every registered listener.
func (c *fakeChain) notify() {
	c.mtx.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mtx.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// faultyStorage wraps a database and fails transactions on demand after the
// transaction function ran, so every statement it issued must be rolled back.
type faultyStorage struct {
	*historydb.DB

	mtx       sync.Mutex
	failTx    int
	failBatch int
}

func (s *faultyStorage) failTransactions(n int) {
	s.mtx.Lock()
	s.failTx = n
	s.mtx.Unlock()
}

func (s *faultyStorage) failBatches(n int) {
	s.mtx.Lock()
	s.failBatch = n
	s.mtx.Unlock()
}

func (s *faultyStorage) take(n *int) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if *n > 0 {
		*n--
		return true
	}
	return false
}

func (s *faultyStorage) ExecuteQueries(ctx context.Context, queries []historydb.Query, opts historydb.ExecOptions) error {
	if s.take(&s.failBatch) {
		return errInjected
	}
	return s.DB.ExecuteQueries(ctx, queries, opts)
}

func (s *faultyStorage) ExecuteTransaction(ctx context.Context, fn func(historydb.Client) error) error {
	return s.DB.ExecuteTransaction(ctx, func(client historydb.Client) error {
		if err := fn(client); err != nil {
			return err
		}
		if s.take(&s.failTx) {
			return errInjected
		}
		return nil
	})
}

// testHarness ties an engine to a temporary database and a fake chain.
type testHarness struct {
	t       *testing.T
	db      *historydb.DB
	storage *faultyStorage
	chain   *fakeChain

	// retries receives the delay of every retry wait and fire releases
	// them.
	retries chan time.Duration
	fire    chan time.Time
}

func newTestHarness(t *testing.T, tipHeight int32) *testHarness {
	t.Helper()

	db, err := historydb.Create(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &testHarness{
		t:       t,
		db:      db,
		storage: &faultyStorage{DB: db},
		chain:   newFakeChain(t, tipHeight),
		retries: make(chan time.Duration, 16),
		fire:    make(chan time.Time),
	}
}

// newEngine returns an engine over the harness collaborators whose retry
// waits are controlled by the harness.
func (h *testHarness) newEngine() *Engine {
	e := New(&Config{
		Storage:     h.storage,
		Network:     h.chain,
		ChainParams: testParams,
	})
	e.after = func(d time.Duration) <-chan time.Time {
		h.retries <- d
		return h.fire
	}
	h.t.Cleanup(e.Stop)
	return e
}

// seed stores the chain's blocks up to and including height directly.
func (h *testHarness) seed(height int32) {
	h.t.Helper()

	ctx := context.Background()
	for i := int32(0); i <= height; i++ {
		block, err := h.chain.GetBlock(ctx, i)
		require.NoError(h.t, err)
		queries, err := blockQueries(block, i, testParams)
		require.NoError(h.t, err)
		err = h.db.ExecuteQueries(ctx, queries, historydb.ExecOptions{})
		require.NoError(h.t, err)
	}
}

// localTip reads the highest stored block.
func (h *testHarness) localTip() BlockRef {
	h.t.Helper()

	res, err := h.db.ExecuteQuery(context.Background(), historydb.SelectLatestBlock)
	require.NoError(h.t, err)
	local, err := blockRefFromResult(res)
	require.NoError(h.t, err)
	return local
}

// requireStoredChain ensures the store holds exactly the chain's blocks.
func (h *testHarness) requireStoredChain() {
	h.t.Helper()

	tip := h.chain.tip()
	require.Equal(h.t, tip, h.localTip())

	ctx := context.Background()
	for i := int32(0); i <= tip.Height; i++ {
		res, err := h.db.ExecuteQuery(ctx, historydb.SelectBlockByHeight, i)
		require.NoError(h.t, err)
		require.Equal(h.t, 1, res.RowCount())
		hash, err := res.Rows[0].String("hash")
		require.NoError(h.t, err)
		require.Equal(h.t, h.chain.hashAt(i).String(), hash, "height %d", i)
	}

	res, err := h.db.ExecuteQuery(ctx, historydb.SelectCounts)
	require.NoError(h.t, err)
	blocks, err := res.Rows[0].Int64("blocks")
	require.NoError(h.t, err)
	require.EqualValues(h.t, tip.Height+1, blocks)
}

// waitRetry waits for the engine to schedule a retry and returns its delay.
func (h *testHarness) waitRetry() time.Duration {
	h.t.Helper()

	select {
	case d := <-h.retries:
		return d
	case <-time.After(10 * time.Second):
		h.t.Fatal("timeout waiting for retry")
	}
	return 0
}

// releaseRetry lets a pending retry wait elapse.
func (h *testHarness) releaseRetry() {
	h.t.Helper()

	select {
	case h.fire <- time.Now():
	case <-time.After(10 * time.Second):
		h.t.Fatal("timeout releasing retry")
	}
}

func waitDone(t *testing.T, e *Engine) {
	t.Helper()

	select {
	case <-e.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for sync to finish")
	}
}

// collectEvents reads events until EventFinish or the channel closes.
func collectEvents(t *testing.T, sub *Subscription) []Event {
	t.Helper()

	var events []Event
	for {
		e := recvEvent(t, sub)
		events = append(events, e)
		if e.Type == EventFinish {
			return events
		}
	}
}
