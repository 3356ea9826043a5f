// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historydb

const (
	dbVersion = 1
)

var buildTables = []string{
	"CREATE TABLE dbversion (version INTEGER NOT NULL);",
	"CREATE TABLE blocks (" +
		"height INTEGER PRIMARY KEY, " +
		"hash TEXT NOT NULL UNIQUE, " +
		"header TEXT NOT NULL, " +
		"txids TEXT NOT NULL);",
	"CREATE TABLE transactions (" +
		"txid TEXT PRIMARY KEY, " +
		"height INTEGER, " +
		"tx TEXT NOT NULL);",
	"CREATE INDEX transactions_height ON transactions (height);",
	"CREATE TABLE history (" +
		"address TEXT NOT NULL, " +
		"otxid TEXT NOT NULL, " +
		"oindex INTEGER NOT NULL, " +
		"ovalue INTEGER NOT NULL, " +
		"oscript TEXT NOT NULL, " +
		"oheight INTEGER, " +
		"itxid TEXT, " +
		"iheight INTEGER, " +
		"PRIMARY KEY (address, otxid, oindex));",
	"CREATE INDEX history_outpoint ON history (otxid, oindex);",
	"CREATE INDEX history_oheight ON history (oheight);",
	"CREATE INDEX history_iheight ON history (iheight);",
}

// Statements removing data that is not anchored to a confirmed block, along
// with any spend links pointing at such data.  They must run in order.
const (
	DeleteUnconfirmedTransactions = "DELETE FROM transactions WHERE height IS NULL;"

	DeleteUnconfirmedHistory = "DELETE FROM history WHERE oheight IS NULL;"

	DeleteUnconfirmedInputs = "UPDATE history SET itxid = NULL, iheight = NULL " +
		"WHERE itxid IS NOT NULL AND iheight IS NULL;"

	DeleteUnconfirmedOutputs = "UPDATE history SET itxid = NULL, iheight = NULL " +
		"WHERE itxid IS NOT NULL AND NOT EXISTS " +
		"(SELECT 1 FROM transactions WHERE transactions.txid = history.itxid);"
)

// Statements rewinding confirmed data.  Each takes the first height to remove
// as its only argument except DeleteOutputsFromHeight which clears any spend
// link left pointing at a removed transaction.  They must run in order.
const (
	DeleteBlocksFromHeight = "DELETE FROM blocks WHERE height >= ?;"

	DeleteTransactionsFromHeight = "DELETE FROM transactions WHERE height >= ?;"

	DeleteHistoryFromHeight = "DELETE FROM history WHERE oheight >= ?;"

	DeleteInputsFromHeight = "UPDATE history SET itxid = NULL, iheight = NULL " +
		"WHERE iheight >= ?;"

	DeleteOutputsFromHeight = DeleteUnconfirmedOutputs
)

// Select statements.
const (
	SelectLatestBlock = "SELECT hash, height FROM blocks ORDER BY height DESC LIMIT 1;"

	SelectBlockByHeight = "SELECT hash, height, header, txids FROM blocks WHERE height = ?;"

	SelectTransaction = "SELECT txid, height, tx FROM transactions WHERE txid = ?;"

	SelectHistoryByAddress = "SELECT address, otxid, oindex, ovalue, oscript, " +
		"oheight, itxid, iheight FROM history WHERE address = ? " +
		"ORDER BY oheight, otxid, oindex;"

	SelectCounts = "SELECT " +
		"(SELECT COUNT(*) FROM blocks) AS blocks, " +
		"(SELECT COUNT(*) FROM transactions) AS transactions, " +
		"(SELECT COUNT(*) FROM history) AS history;"
)

// Insert and update statements used when connecting a block.
const (
	InsertBlock = "INSERT INTO blocks (height, hash, header, txids) VALUES (?, ?, ?, ?);"

	InsertTransaction = "INSERT OR REPLACE INTO transactions (txid, height, tx) " +
		"VALUES (?, ?, ?);"

	InsertHistoryOutput = "INSERT OR REPLACE INTO history " +
		"(address, otxid, oindex, ovalue, oscript, oheight) " +
		"VALUES (?, ?, ?, ?, ?, ?);"

	UpdateHistoryInput = "UPDATE history SET itxid = ?, iheight = ? " +
		"WHERE otxid = ? AND oindex = ?;"
)
