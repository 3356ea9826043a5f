// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package historysync keeps a local block, transaction and address history
store consistent with an authoritative remote chain.

The engine tracks two tips: the local tip, which is the highest block in the
store, and the remote tip, which is refreshed from the network whenever it
announces a new block.  Each iteration of the catch-up loop runs in a single
storage transaction and either connects the block following the local tip or
rewinds the store when the chains diverged:

  - A remote tip below the next height rewinds the store to one below the
    remote tip.
  - A block whose parent is not the local tip rewinds the local tip itself.

The local tip only changes once the transaction committed.  A failed
iteration changes nothing and is retried after Config.RetryDelay.

# Events

Subscribers receive an EventStart when Run starts the loop, an EventProgress
each time the local tip advanced by the progress step (one thousandth of the
initial distance, but at least ten blocks) or reads as complete, and a single
EventFinish once the local tip hash equals the remote tip hash.  The network
listener is released before EventFinish is delivered.

# Usage

	engine := historysync.New(&historysync.Config{
		Storage: db,
		Network: client,
	})
	if err := engine.Init(ctx); err != nil {
		return err
	}
	sub := engine.Subscribe()
	defer sub.Unsubscribe()
	if err := engine.Run(); err != nil {
		return err
	}
	<-engine.Done()
*/
package historysync
