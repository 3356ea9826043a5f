// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package historydb implements the SQLite backed storage used by the history
synchronizer.

The database holds three tables: blocks, keyed by height; transactions, keyed
by txid with a NULL height for unconfirmed entries; and history, one row per
(address, output) pair carrying the output height and, once spent, the
spending transaction and its height.

Callers interact with the database through three primitives:

  - ExecuteQuery runs a single statement and returns its rows with named
    columns.
  - ExecuteQueries runs a batch of statements with a concurrency bound,
    optionally inside an open transaction.
  - ExecuteTransaction runs a function with a transaction bound Client and
    commits only when the function returns nil.

The statement text used by the synchronizer lives in this package so the
schema and the statements that depend on it are maintained together.
*/
package historydb
