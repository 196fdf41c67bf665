package database

import (
	"fmt"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ardanlabs/powchain/foundation/blockchain/merkle"
)

// BlockHeader represents common information required for each block. The
// header, not the content, is hashed to produce the identity of a block.
type BlockHeader struct {
	Parent     hash.H256 `json:"parent"`      // Bitcoin: Hash of the previous block in the chain.
	Nonce      uint32    `json:"nonce"`       // Bitcoin: Value identified to solve the hash solution.
	Difficulty hash.H256 `json:"difficulty"`  // Target the header hash must be less than or equal to.
	TimeStamp  uint64    `json:"timestamp"`   // Bitcoin: Time the block was mined in unix nanoseconds.
	MerkleRoot hash.H256 `json:"merkle_root"` // Bitcoin: Represents the merkle tree root hash for the transactions in this block.
}

// BlockContent represents the transactions carried by a block.
type BlockContent struct {
	Transactions []Tx      `json:"transactions"`
	MerkleRoot   hash.H256 `json:"merkle_root"`
}

// Block represents a group of transactions batched together. A block is
// never modified once it is constructed.
type Block struct {
	Header  BlockHeader  `json:"header"`
	Content BlockContent `json:"content"`
}

// BlockArgs contains the values required to construct a new block.
type BlockArgs struct {
	Parent     hash.H256
	Difficulty hash.H256
	Nonce      uint32
	TimeStamp  time.Time
	Trans      []Tx
}

// NewBlock constructs a block over the specified transactions. The merkle
// root of the transactions is committed to in both the header and content.
func NewBlock(args BlockArgs) (Block, error) {
	tree, err := merkle.NewTree(args.Trans)
	if err != nil {
		return Block{}, fmt.Errorf("building merkle tree: %w", err)
	}

	nb := Block{
		Header: BlockHeader{
			Parent:     args.Parent,
			Nonce:      args.Nonce,
			Difficulty: args.Difficulty,
			TimeStamp:  uint64(args.TimeStamp.UnixNano()),
			MerkleRoot: tree.MerkleRoot(),
		},
		Content: BlockContent{
			Transactions: tree.Values(),
			MerkleRoot:   tree.MerkleRoot(),
		},
	}

	return nb, nil
}

// Hash returns the header hash of the block.
func (b Block) Hash() hash.H256 {
	return b.Header.Hash()
}

// Hash implements the hash.Hashable interface for the header.
func (bh BlockHeader) Hash() hash.H256 {
	return hash.Of(bh)
}

// SolvesTarget reports whether the header hash is less than or equal to
// the difficulty target recorded in the header.
func (b Block) SolvesTarget() bool {
	return b.Hash().Meets(b.Header.Difficulty)
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("blk[%s]: prevBlk[%s]: numTrans[%d]", b.Hash(), b.Header.Parent, len(b.Content.Transactions))
}
