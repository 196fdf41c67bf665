// Package database maintains the in memory ledger of blocks for the node,
// including the fork choice rule and buffering of blocks that arrive
// before their parent.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

// maxOrphans represents the max number of blocks waiting on a parent that
// can be held before new orphans are rejected.
const maxOrphans = 1024

// ErrOrphanPoolFull is returned when an orphan block can't be buffered.
var ErrOrphanPoolFull = errors.New("orphan pool is full")

// OrphanError is returned when a block was buffered because its parent is
// not in the ledger yet. The caller is expected to request the parent.
type OrphanError struct {
	Hash   hash.H256
	Parent hash.H256
}

// Error implements the error interface.
func (oe *OrphanError) Error() string {
	return fmt.Sprintf("blk[%s]: waiting on prevBlk[%s]", oe.Hash, oe.Parent)
}

// Unwrap allows errors.Is to match ErrUnknownParent.
func (oe *OrphanError) Unwrap() error {
	return ErrUnknownParent
}

// IsOrphan checks if an error of type OrphanError exists.
func IsOrphan(err error) bool {
	var oe *OrphanError
	return errors.As(err, &oe)
}

// =============================================================================

// Database manages exclusive access to the ledger that is shared between the
// miner and the network workers.
type Database struct {
	mu      sync.RWMutex
	genesis genesis.Genesis
	ledger  *Ledger

	// Blocks waiting on a parent, keyed by the missing parent hash.
	orphans     map[hash.H256][]Block
	orphanCount int

	evHandler func(v string, args ...any)
}

// New constructs a database holding the genesis block built from the
// specified genesis information.
func New(gen genesis.Genesis, evHandler func(v string, args ...any)) (*Database, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	block, err := GenesisBlock(gen)
	if err != nil {
		return nil, fmt.Errorf("building genesis block: %w", err)
	}

	db := Database{
		genesis:   gen,
		ledger:    newLedger(block),
		orphans:   make(map[hash.H256][]Block),
		evHandler: ev,
	}

	ev("database: New: genesis blk[%s]", block.Hash())

	return &db, nil
}

// GenesisBlock constructs the genesis block. It has the zero parent and a
// single placeholder transaction.
func GenesisBlock(gen genesis.Genesis) (Block, error) {
	return NewBlock(BlockArgs{
		Parent:     hash.Zero,
		Difficulty: gen.Difficulty,
		Nonce:      gen.Nonce,
		TimeStamp:  gen.Date,
		Trans:      []Tx{NewTx(gen.Input, gen.Output)},
	})
}

// Genesis returns the genesis information the database was built from.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// =============================================================================

// Update runs the function with exclusive access to the ledger. Blocks
// inserted directly into the ledger here do not release orphans, use
// Insert for blocks that may have descendants waiting.
func (db *Database) Update(fn func(l *Ledger) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return fn(db.ledger)
}

// View runs the function with shared read access to the ledger.
func (db *Database) View(fn func(l *Ledger) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return fn(db.ledger)
}

// Insert adds the block to the ledger and then connects any buffered blocks
// that were waiting on it. The hashes of every block that was connected are
// returned in insertion order. If the parent is unknown the block is
// buffered and an *OrphanError is returned. A block that is already in the
// ledger connects nothing and returns no hashes.
func (db *Database) Insert(block Block) ([]hash.H256, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.ledger.Find(block.Hash()) {
		return nil, nil
	}

	err := db.ledger.Insert(block)
	switch {
	case errors.Is(err, ErrUnknownParent):
		return nil, db.addOrphan(block)
	case err != nil:
		return nil, err
	}

	connected := []hash.H256{block.Hash()}
	db.evHandler("database: Insert: connected: %s", block)

	// Walk the descendants that were waiting on this block.
	for queue := []hash.H256{block.Hash()}; len(queue) > 0; {
		parent := queue[0]
		queue = queue[1:]

		children := db.orphans[parent]
		delete(db.orphans, parent)
		db.orphanCount -= len(children)

		for _, child := range children {
			if err := db.ledger.Insert(child); err != nil {
				return connected, err
			}

			db.evHandler("database: Insert: orphan connected: %s", child)
			connected = append(connected, child.Hash())
			queue = append(queue, child.Hash())
		}
	}

	return connected, nil
}

// addOrphan buffers the block until its parent arrives.
func (db *Database) addOrphan(block Block) error {
	h := block.Hash()
	parent := block.Header.Parent

	for _, orphan := range db.orphans[parent] {
		if orphan.Hash() == h {
			return &OrphanError{Hash: h, Parent: parent}
		}
	}

	if db.orphanCount >= maxOrphans {
		db.evHandler("database: Insert: WARNING: orphan pool full: %s", block)
		return fmt.Errorf("blk[%s]: %w", h, ErrOrphanPoolFull)
	}

	db.orphans[parent] = append(db.orphans[parent], block)
	db.orphanCount++

	db.evHandler("database: Insert: orphan buffered: %s", block)

	return &OrphanError{Hash: h, Parent: parent}
}

// =============================================================================

// Tip returns the hash of the last block in the longest chain.
func (db *Database) Tip() hash.H256 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.ledger.Tip()
}

// TipHeight returns the height of the last block in the longest chain.
func (db *Database) TipHeight() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.ledger.TipHeight()
}

// Get returns the block for the specified hash.
func (db *Database) Get(h hash.H256) (Block, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.ledger.Get(h)
}

// Find reports whether the block for the specified hash is in the ledger.
func (db *Database) Find(h hash.H256) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.ledger.Find(h)
}

// Height returns the height of the block for the specified hash.
func (db *Database) Height(h hash.H256) (uint64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.ledger.Height(h)
}

// Len returns the number of blocks in the ledger, not counting orphans.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.ledger.Len()
}

// OrphanCount returns the number of blocks waiting on a parent.
func (db *Database) OrphanCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.orphanCount
}

// LongestChain returns the hashes of the blocks in the longest chain, tip
// first.
func (db *Database) LongestChain() []hash.H256 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.ledger.LongestChain()
}
