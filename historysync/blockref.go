// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockRef identifies a block by its hash and height.  It is a value type;
// copies never alias the engine's state.
type BlockRef struct {
	Hash   chainhash.Hash
	Height int32
}

// emptyStoreHeight is the height reported for a store with no blocks.
const emptyStoreHeight = -1

// EmptyBlockRef is the sentinel used for a store with no confirmed blocks.
// Its hash renders as 64 zeros.
var EmptyBlockRef = BlockRef{Height: emptyStoreHeight}

// IsEmpty reports whether the ref is the empty store sentinel.
func (b BlockRef) IsEmpty() bool {
	return b.Height == emptyStoreHeight && b.Hash == (chainhash.Hash{})
}

// String returns the ref as "hash (height)".
func (b BlockRef) String() string {
	return fmt.Sprintf("%v (%d)", b.Hash, b.Height)
}
