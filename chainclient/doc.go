// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package chainclient provides the remote chain view used by the history
synchronizer on top of a btcd compatible JSON-RPC server.

Against btcd the client uses a websocket connection and registers for block
notifications.  Servers that only speak HTTP POST, such as bitcoind, are
polled for their best block hash instead.  Either way, registered block
listeners are invoked from a single dispatch goroutine, and announcements
arriving faster than listeners run are coalesced.
*/
package chainclient
