// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btchistd/historydb"
)

// Storage is the persistent store the engine keeps consistent with the
// remote chain.  historydb.DB implements it.
type Storage interface {
	// ExecuteQuery runs a single read statement.
	ExecuteQuery(ctx context.Context, stmt string, args ...interface{}) (*historydb.Result, error)

	// ExecuteQueries runs a batch of write statements under the passed
	// concurrency bound, optionally inside an open transaction.
	ExecuteQueries(ctx context.Context, queries []historydb.Query, opts historydb.ExecOptions) error

	// ExecuteTransaction runs fn in a transaction that is committed iff
	// fn returns nil.
	ExecuteTransaction(ctx context.Context, fn func(historydb.Client) error) error
}

// Network supplies the authoritative view of the remote chain.
// chainclient.Client implements it.
type Network interface {
	// GetLatest returns the current remote tip.
	GetLatest(ctx context.Context) (BlockRef, error)

	// GetBlock returns the main chain block at the passed height.
	GetBlock(ctx context.Context, height int32) (*wire.MsgBlock, error)

	// AddBlockListener registers fn to be called whenever the remote
	// chain gains a block.  The payload of the announcement is not
	// passed on; listeners re-fetch the tip.  The returned function
	// removes the listener and is safe to call more than once.
	AddBlockListener(fn func()) (remove func())
}
