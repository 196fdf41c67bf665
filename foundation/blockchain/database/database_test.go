package database_test

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var nonce uint32

// generateBlock constructs a new block on top of the specified parent. Each
// call produces a distinct block.
func generateBlock(t *testing.T, parent hash.H256) database.Block {
	nonce++

	block, err := database.NewBlock(database.BlockArgs{
		Parent:     parent,
		Difficulty: genesis.DefaultDifficulty(),
		Nonce:      nonce,
		TimeStamp:  time.Now(),
		Trans:      []database.Tx{database.NewTx("in", "out")},
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a block: %v", failed, err)
	}

	return block
}

func newDatabase(t *testing.T) *database.Database {
	db, err := database.New(genesis.Default(), nil)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the database: %v", failed, err)
	}

	return db
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to start every node from the same genesis block.")
	{
		db1 := newDatabase(t)
		db2 := newDatabase(t)

		if db1.Len() != 1 {
			t.Fatalf("\t%s\tShould hold exactly one block, got %d.", failed, db1.Len())
		}
		t.Logf("\t%s\tShould hold exactly one block.", success)

		tip := db1.Tip()
		if height, exists := db1.Height(tip); !exists || height != 0 {
			t.Fatalf("\t%s\tShould have the tip at height 0, got %d.", failed, height)
		}
		t.Logf("\t%s\tShould have the tip at height 0.", success)

		block, exists := db1.Get(tip)
		if !exists || block.Header.Parent != hash.Zero {
			t.Fatalf("\t%s\tShould have a genesis block with the zero parent.", failed)
		}
		t.Logf("\t%s\tShould have a genesis block with the zero parent.", success)

		if db1.Find(hash.Zero) {
			t.Fatalf("\t%s\tShould not store the zero parent.", failed)
		}
		t.Logf("\t%s\tShould not store the zero parent.", success)

		if db1.Tip() != db2.Tip() {
			t.Fatalf("\t%s\tShould produce the same genesis hash on every node.", failed)
		}
		t.Logf("\t%s\tShould produce the same genesis hash on every node.", success)

		chain := db1.LongestChain()
		if len(chain) != 1 || chain[0] != tip {
			t.Fatalf("\t%s\tShould get back only genesis as the longest chain.", failed)
		}
		t.Logf("\t%s\tShould get back only genesis as the longest chain.", success)
	}
}

func Test_InsertOne(t *testing.T) {
	db := newDatabase(t)
	genesisHash := db.Tip()

	block := generateBlock(t, genesisHash)
	connected, err := db.Insert(block)
	if err != nil {
		t.Fatalf("Should be able to insert a block: %s", err)
	}

	if len(connected) != 1 || connected[0] != block.Hash() {
		t.Fatalf("Should get back the inserted block as connected.")
	}

	if db.Tip() != block.Hash() {
		t.Fatalf("Should move the tip to the new block.")
	}

	if height, _ := db.Height(block.Hash()); height != 1 {
		t.Fatalf("Should insert the block at height 1, got %d.", height)
	}
}

func Test_ForkChoice(t *testing.T) {
	db := newDatabase(t)
	genesisHash := db.Tip()

	block1 := generateBlock(t, genesisHash)
	block2 := generateBlock(t, genesisHash)
	block3 := generateBlock(t, block2.Hash())
	block4 := generateBlock(t, block2.Hash())
	block5 := generateBlock(t, block4.Hash())
	block6 := generateBlock(t, block1.Hash())

	type table struct {
		name  string
		block database.Block
		tip   hash.H256
	}

	tt := []table{
		{name: "first-child", block: block1, tip: block1.Hash()},
		{name: "tie-keeps-first", block: block2, tip: block1.Hash()},
		{name: "longer-fork", block: block3, tip: block3.Hash()},
		{name: "tie-on-fork", block: block4, tip: block3.Hash()},
		{name: "longest", block: block5, tip: block5.Hash()},
		{name: "shorter-fork", block: block6, tip: block5.Hash()},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if _, err := db.Insert(tst.block); err != nil {
				t.Fatalf("Test %s:\tShould be able to insert the block: %s", tst.name, err)
			}

			if got := db.Tip(); got != tst.tip {
				t.Logf("Test %s:\tgot: %s", tst.name, got)
				t.Logf("Test %s:\texp: %s", tst.name, tst.tip)
				t.Fatalf("Test %s:\tShould get back the right tip.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}

	exp := []hash.H256{block5.Hash(), block4.Hash(), block2.Hash(), genesisHash}
	chain := db.LongestChain()
	if len(chain) != len(exp) {
		t.Fatalf("Should get back %d blocks in the longest chain, got %d.", len(exp), len(chain))
	}
	for i := range exp {
		if chain[i] != exp[i] {
			t.Fatalf("Should get back block %d of the longest chain tip first.", i)
		}
	}
}

func Test_InsertIdempotent(t *testing.T) {
	db := newDatabase(t)

	block := generateBlock(t, db.Tip())
	if _, err := db.Insert(block); err != nil {
		t.Fatalf("Should be able to insert a block: %s", err)
	}

	tip, length := db.Tip(), db.Len()

	if _, err := db.Insert(block); err != nil {
		t.Fatalf("Should be able to insert the block again: %s", err)
	}

	if db.Tip() != tip || db.Len() != length {
		t.Fatalf("Should leave the ledger unchanged on a second insert.")
	}

	if height, _ := db.Height(block.Hash()); height != 1 {
		t.Fatalf("Should keep the height of the block, got %d.", height)
	}
}

func Test_InsertGenesisAgain(t *testing.T) {
	db := newDatabase(t)

	gen, err := database.GenesisBlock(genesis.Default())
	if err != nil {
		t.Fatalf("Should be able to construct the genesis block: %s", err)
	}

	connected, err := db.Insert(gen)
	if err != nil {
		t.Fatalf("Should be able to insert the genesis block again: %s", err)
	}

	if len(connected) != 0 {
		t.Fatalf("Should connect nothing for a known block, got %d.", len(connected))
	}

	if db.OrphanCount() != 0 {
		t.Fatalf("Should not buffer a known block as an orphan, got %d.", db.OrphanCount())
	}

	err = db.Update(func(l *database.Ledger) error {
		return l.Insert(gen)
	})
	if err != nil {
		t.Fatalf("Should be able to insert the genesis block into the ledger again: %s", err)
	}

	if db.Len() != 1 || db.Tip() != gen.Hash() {
		t.Fatalf("Should leave the ledger holding only genesis.")
	}
}

func Test_TipMonotonic(t *testing.T) {
	db := newDatabase(t)
	rnd := rand.New(rand.NewSource(42))

	known := []hash.H256{db.Tip()}
	heights := map[hash.H256]uint64{db.Tip(): 0}

	var lastTipHeight uint64
	for i := 0; i < 200; i++ {
		parent := known[rnd.Intn(len(known))]
		block := generateBlock(t, parent)

		if _, err := db.Insert(block); err != nil {
			t.Fatalf("Should be able to insert block %d: %s", i, err)
		}

		known = append(known, block.Hash())
		heights[block.Hash()] = heights[parent] + 1

		var max uint64
		for _, h := range heights {
			if h > max {
				max = h
			}
		}

		tipHeight := db.TipHeight()
		if tipHeight < lastTipHeight {
			t.Fatalf("Should never decrease the tip height, got %d after %d.", tipHeight, lastTipHeight)
		}
		if tipHeight != max {
			t.Fatalf("Should keep the tip at the max height %d, got %d.", max, tipHeight)
		}
		lastTipHeight = tipHeight
	}
}

func Test_Orphans(t *testing.T) {
	db := newDatabase(t)
	genesisHash := db.Tip()

	block1 := generateBlock(t, genesisHash)
	block2 := generateBlock(t, block1.Hash())
	block3 := generateBlock(t, block2.Hash())

	_, err := db.Insert(block3)
	var oe *database.OrphanError
	if !errors.As(err, &oe) {
		t.Fatalf("Should get back an orphan error: %v", err)
	}
	if oe.Parent != block2.Hash() {
		t.Fatalf("Should report the missing parent.")
	}
	if !errors.Is(err, database.ErrUnknownParent) {
		t.Fatalf("Should match the unknown parent error.")
	}

	if _, err := db.Insert(block2); !database.IsOrphan(err) {
		t.Fatalf("Should buffer the second orphan: %v", err)
	}

	if _, err := db.Insert(block3); !database.IsOrphan(err) {
		t.Fatalf("Should report a duplicate orphan without buffering it twice: %v", err)
	}

	if db.OrphanCount() != 2 || db.Len() != 1 {
		t.Fatalf("Should hold two orphans outside the ledger, got %d/%d.", db.OrphanCount(), db.Len())
	}

	connected, err := db.Insert(block1)
	if err != nil {
		t.Fatalf("Should be able to insert the missing parent: %s", err)
	}

	exp := []hash.H256{block1.Hash(), block2.Hash(), block3.Hash()}
	if len(connected) != len(exp) {
		t.Fatalf("Should connect the waiting descendants, got %d.", len(connected))
	}
	for i := range exp {
		if connected[i] != exp[i] {
			t.Fatalf("Should connect block %d in order.", i)
		}
	}

	if db.Tip() != block3.Hash() || db.OrphanCount() != 0 {
		t.Fatalf("Should move the tip to the deepest connected block.")
	}
}

func Test_Concurrent(t *testing.T) {
	db := newDatabase(t)
	genesisHash := db.Tip()

	const g = 8
	blocks := make([]database.Block, g)
	for i := range blocks {
		blocks[i] = generateBlock(t, genesisHash)
	}

	var wg sync.WaitGroup
	wg.Add(g)
	for i := 0; i < g; i++ {
		go func(block database.Block) {
			defer wg.Done()
			db.Insert(block)
			db.LongestChain()
		}(blocks[i])
	}
	wg.Wait()

	if db.Len() != g+1 || db.TipHeight() != 1 {
		t.Fatalf("Should apply every insert atomically, got %d blocks at height %d.", db.Len(), db.TipHeight())
	}
}

func Test_Update(t *testing.T) {
	db := newDatabase(t)

	var block database.Block
	err := db.Update(func(l *database.Ledger) error {
		block = generateBlock(t, l.Tip())
		return l.Insert(block)
	})
	if err != nil {
		t.Fatalf("Should be able to insert inside an update: %s", err)
	}

	err = db.View(func(l *database.Ledger) error {
		if l.Tip() != block.Hash() {
			return errors.New("tip not moved")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Should see the insert inside a view: %s", err)
	}

	err = db.Update(func(l *database.Ledger) error {
		return l.Insert(generateBlock(t, hash.Sum([]byte("unknown"))))
	})
	if !errors.Is(err, database.ErrUnknownParent) {
		t.Fatalf("Should reject an unknown parent in the ledger: %v", err)
	}
}
