package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

// ErrUnknownParent is returned when a block is inserted before its parent.
var ErrUnknownParent = errors.New("parent block is unknown")

// =============================================================================

// Ledger is an append-only, content addressed store of blocks keyed by hash.
// It tracks the height of every block and the tip of the longest chain. A
// Ledger is not safe for concurrent use, access it through a Database.
type Ledger struct {
	blocks  map[hash.H256]Block
	heights map[hash.H256]uint64
	tip     hash.H256
}

// newLedger constructs a ledger holding only the genesis block at height 0.
func newLedger(genesis Block) *Ledger {
	h := genesis.Hash()

	return &Ledger{
		blocks:  map[hash.H256]Block{h: genesis},
		heights: map[hash.H256]uint64{h: 0},
		tip:     h,
	}
}

// Insert adds the block one above its parent. The tip moves only when the
// new height is strictly greater than the height of the current tip, so the
// first block seen at a height wins ties. Inserting a known block again
// changes nothing.
func (l *Ledger) Insert(block Block) error {
	h := block.Hash()
	if _, exists := l.blocks[h]; exists {
		return nil
	}

	parentHeight, exists := l.heights[block.Header.Parent]
	if !exists {
		return fmt.Errorf("blk[%s]: prevBlk[%s]: %w", h, block.Header.Parent, ErrUnknownParent)
	}

	height := parentHeight + 1

	l.blocks[h] = block
	l.heights[h] = height

	if height > l.heights[l.tip] {
		l.tip = h
	}

	return nil
}

// Tip returns the hash of the last block in the longest chain.
func (l *Ledger) Tip() hash.H256 {
	return l.tip
}

// TipHeight returns the height of the last block in the longest chain.
func (l *Ledger) TipHeight() uint64 {
	return l.heights[l.tip]
}

// Get returns the block for the specified hash.
func (l *Ledger) Get(h hash.H256) (Block, bool) {
	block, exists := l.blocks[h]
	return block, exists
}

// Find reports whether the block for the specified hash is in the ledger.
func (l *Ledger) Find(h hash.H256) bool {
	_, exists := l.blocks[h]
	return exists
}

// Height returns the height of the block for the specified hash.
func (l *Ledger) Height(h hash.H256) (uint64, bool) {
	height, exists := l.heights[h]
	return height, exists
}

// Len returns the number of blocks in the ledger.
func (l *Ledger) Len() int {
	return len(l.blocks)
}

// LongestChain walks the parent links from the tip back to genesis and
// returns the hashes, tip first.
func (l *Ledger) LongestChain() []hash.H256 {
	chain := make([]hash.H256, 0, l.TipHeight()+1)

	current := l.tip
	for {
		chain = append(chain, current)

		if l.heights[current] == 0 {
			return chain
		}
		current = l.blocks[current].Header.Parent
	}
}
