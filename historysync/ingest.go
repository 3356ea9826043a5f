// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btchistd/historydb"
)

// unconfirmedQueries discards transactions and history not anchored to a
// confirmed block.  Later statements depend on the earlier ones.
var unconfirmedQueries = []historydb.Query{
	historydb.NewQuery(historydb.DeleteUnconfirmedTransactions),
	historydb.NewQuery(historydb.DeleteUnconfirmedHistory),
	historydb.NewQuery(historydb.DeleteUnconfirmedInputs),
	historydb.NewQuery(historydb.DeleteUnconfirmedOutputs),
}

// rewindQueries returns the statements removing every confirmed block,
// transaction and history row at or above height and clearing the spend
// links into that range.  They must run sequentially.
func rewindQueries(height int32) []historydb.Query {
	return []historydb.Query{
		historydb.NewQuery(historydb.DeleteBlocksFromHeight, height),
		historydb.NewQuery(historydb.DeleteTransactionsFromHeight, height),
		historydb.NewQuery(historydb.DeleteHistoryFromHeight, height),
		historydb.NewQuery(historydb.DeleteInputsFromHeight, height),
		historydb.NewQuery(historydb.DeleteOutputsFromHeight),
	}
}

// isCoinBaseTx determines whether or not a transaction is a coinbase.  A
// coinbase has exactly one input whose previous outpoint has a zero hash and
// the maximum index.
func isCoinBaseTx(msgTx *wire.MsgTx) bool {
	if len(msgTx.TxIn) != 1 {
		return false
	}
	prevOut := &msgTx.TxIn[0].PreviousOutPoint
	return prevOut.Index == math.MaxUint32 && prevOut.Hash == (chainhash.Hash{})
}

// blockQueries returns the statements persisting block at height: the block
// row, a row per transaction, a history row per (output, address) pair and a
// spend link update per non-coinbase input.  Outputs are inserted before the
// inputs of later transactions in the same block so intra-block spends link.
func blockQueries(block *wire.MsgBlock, height int32, params *chaincfg.Params) ([]historydb.Query, error) {
	var header bytes.Buffer
	if err := block.Header.Serialize(&header); err != nil {
		return nil, err
	}

	txids := make([]string, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		txids = append(txids, tx.TxHash().String())
	}

	blockHash := block.BlockHash()
	queries := make([]historydb.Query, 0, 1+len(block.Transactions)*3)
	queries = append(queries, historydb.NewQuery(historydb.InsertBlock,
		height, blockHash.String(), hex.EncodeToString(header.Bytes()),
		strings.Join(txids, ",")))

	for i, tx := range block.Transactions {
		var raw bytes.Buffer
		raw.Grow(tx.SerializeSize())
		if err := tx.Serialize(&raw); err != nil {
			return nil, err
		}
		txid := txids[i]
		queries = append(queries, historydb.NewQuery(
			historydb.InsertTransaction, txid, height,
			hex.EncodeToString(raw.Bytes())))

		for outIdx, txOut := range tx.TxOut {
			// Scripts that fail to parse carry no address and are
			// not part of any history.
			_, addrs, _, err := txscript.ExtractPkScriptAddrs(
				txOut.PkScript, params)
			if err != nil {
				continue
			}
			script := hex.EncodeToString(txOut.PkScript)
			for _, addr := range addrs {
				queries = append(queries, historydb.NewQuery(
					historydb.InsertHistoryOutput,
					addr.EncodeAddress(), txid, int64(outIdx),
					txOut.Value, script, height))
			}
		}

		if isCoinBaseTx(tx) {
			continue
		}
		for _, txIn := range tx.TxIn {
			prevOut := &txIn.PreviousOutPoint
			queries = append(queries, historydb.NewQuery(
				historydb.UpdateHistoryInput, txid, height,
				prevOut.Hash.String(), int64(prevOut.Index)))
		}
	}

	return queries, nil
}

// blockRefFromResult converts the result of the latest block query into a
// BlockRef.  Anything other than exactly one row means the store is empty.
func blockRefFromResult(res *historydb.Result) (BlockRef, error) {
	if res == nil || res.RowCount() != 1 {
		return EmptyBlockRef, nil
	}

	row := res.Rows[0]
	hashStr, err := row.String("hash")
	if err != nil {
		return BlockRef{}, err
	}
	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return BlockRef{}, fmt.Errorf("malformed block hash %q: %w", hashStr, err)
	}
	height, err := row.Int64("height")
	if err != nil {
		return BlockRef{}, err
	}
	return BlockRef{Hash: *hash, Height: int32(height)}, nil
}

// connectBlock fetches the block at height from the network and persists it
// through client.  The block must build on local unless the store is empty;
// otherwise an ErrOrphanBlock error is returned and nothing is written.
func (e *Engine) connectBlock(ctx context.Context, client historydb.Client,
	local BlockRef, height int32) (BlockRef, *wire.MsgBlock, error) {

	block, err := e.network.GetBlock(ctx, height)
	if err != nil {
		return BlockRef{}, nil, fmt.Errorf("unable to fetch block at "+
			"height %d: %w", height, err)
	}

	blockHash := block.BlockHash()
	if !local.IsEmpty() && block.Header.PrevBlock != local.Hash {
		str := fmt.Sprintf("block %v at height %d builds on %v, not "+
			"the local tip %v", blockHash, height,
			block.Header.PrevBlock, local.Hash)
		return BlockRef{}, nil, syncError(ErrOrphanBlock, str, nil)
	}

	queries, err := blockQueries(block, height, e.chainParams)
	if err != nil {
		return BlockRef{}, nil, err
	}
	err = e.storage.ExecuteQueries(ctx, queries, historydb.ExecOptions{
		Client:      client,
		Concurrency: 1,
	})
	if err != nil {
		return BlockRef{}, nil, err
	}

	log.Debugf("Connected block %v (height %d, %d transactions)",
		blockHash, height, len(block.Transactions))
	return BlockRef{Hash: blockHash, Height: height}, block, nil
}

// rewind removes all confirmed data at or above height through client and
// returns the new local tip read back inside the same transaction.
func (e *Engine) rewind(ctx context.Context, client historydb.Client,
	height int32) (BlockRef, error) {

	if height < 0 {
		height = 0
	}
	err := e.storage.ExecuteQueries(ctx, rewindQueries(height),
		historydb.ExecOptions{Client: client, Concurrency: 1})
	if err != nil {
		return BlockRef{}, err
	}

	res, err := client.ExecuteQuery(ctx, historydb.SelectLatestBlock)
	if err != nil {
		return BlockRef{}, err
	}
	return blockRefFromResult(res)
}
