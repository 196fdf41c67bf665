// Package merkle provides an implementation of a merkle tree for committing
// to the ordered set of transactions in a block and proving inclusion of any
// one of them.
package merkle

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	bchash "github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

// Set of error variables for building trees and proofs.
var (
	ErrNoContent       = errors.New("cannot construct tree with no content")
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)

// =============================================================================

// Tree represents a merkle tree built once over an ordered set of values of
// some type T that can produce a digest of itself. The tree is immutable
// after construction.
type Tree[T bchash.Hashable] struct {
	Root         *Node
	values       []T
	depth        int
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T bchash.Hashable](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree over the specified values. When a level
// holds an odd number of nodes, the last node is duplicated to form its own
// sibling.
func NewTree[T bchash.Hashable](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	if len(values) == 0 {
		return nil, ErrNoContent
	}

	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	level := make([]*Node, len(values))
	for i, value := range values {
		level[i] = &Node{Hash: value.Hash()}
	}

	var depth int
	for len(level) > 1 {
		level = buildIntermediate(level, t.hashStrategy)
		depth++
	}

	t.Root = level[0]
	t.values = append([]T(nil), values...)
	t.depth = depth

	return &t, nil
}

// MerkleRoot returns the root commitment of the tree.
func (t *Tree[T]) MerkleRoot() bchash.H256 {
	return t.Root.Hash
}

// Values returns a copy of the values the tree was built from in order.
func (t *Tree[T]) Values() []T {
	return append([]T(nil), t.values...)
}

// Len returns the number of leaves the tree was built from, not counting
// duplicates.
func (t *Tree[T]) Len() int {
	return len(t.values)
}

// Depth returns the number of levels between the root and the leaves.
func (t *Tree[T]) Depth() int {
	return t.depth
}

// Proof returns the sibling commitments encountered walking from the root
// down to the leaf at the specified index, in root to leaf order. The path is
// the binary expansion of the index, most significant bit first, where a 0
// bit descends left and captures the right sibling.
//
// Given the proof for leaf 2 of a four leaf tree:
//
//	proof = [h(l0|l1), l3]
//
// Verification consumes the proof from the end:
//
//	n1   = h(l2 | l3)        -- index 2 is even, the leaf goes first.
//	root = h(h(l0|l1) | n1)  -- index 1 is odd, the proof goes first.
func (t *Tree[T]) Proof(index int) ([]bchash.H256, error) {
	if index < 0 || index >= len(t.values) {
		return nil, fmt.Errorf("index %d, leafs %d: %w", index, len(t.values), ErrIndexOutOfRange)
	}

	proof := make([]bchash.H256, 0, t.depth)
	node := t.Root

	for level := t.depth - 1; level >= 0; level-- {
		if (index>>level)&1 == 0 {
			proof = append(proof, node.Right.Hash)
			node = node.Left
			continue
		}

		proof = append(proof, node.Left.Hash)
		node = node.Right
	}

	return proof, nil
}

// String returns the root of the tree and the number of leaves.
func (t *Tree[T]) String() string {
	return fmt.Sprintf("root[%s] leafs[%d] depth[%d]", t.Root.Hash, len(t.values), t.depth)
}

// =============================================================================

// Verify reports whether the leaf digest at the specified index, combined
// with the proof, reproduces the root of a sha256 tree with leafCount leaves.
// It does not require access to the tree.
func Verify(root bchash.H256, leaf bchash.H256, proof []bchash.H256, index int, leafCount int) bool {
	return VerifyWithHashStrategy(sha256.New, root, leaf, proof, index, leafCount)
}

// VerifyWithHashStrategy is Verify for trees built with a custom hash strategy.
//
// The last node of an odd level is paired with itself, so its proof entry
// must equal the value being carried up. A leaf count only changes the
// outcome where it moves that right edge: a tree of n leaves and a tree of
// n+1 leaves whose last leaf repeats the one before it share a root.
func VerifyWithHashStrategy(hashStrategy func() hash.Hash, root bchash.H256, leaf bchash.H256, proof []bchash.H256, index int, leafCount int) bool {
	if index < 0 || index >= leafCount {
		return false
	}

	current := leaf
	used := 0

	for n := leafCount; n > 1; n = (n + 1) / 2 {
		if used == len(proof) {
			return false
		}
		sibling := proof[len(proof)-1-used]
		used++

		if n%2 == 1 && index == n-1 && sibling != current {
			return false
		}

		if index%2 == 0 {
			current = combine(hashStrategy, current, sibling)
		} else {
			current = combine(hashStrategy, sibling, current)
		}
		index /= 2
	}

	return used == len(proof) && current == root
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. Internal nodes own both
// of their children exclusively. Leaves have no children.
type Node struct {
	Hash  bchash.H256
	Left  *Node
	Right *Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// clone performs a deep copy of the node and everything below it so a
// duplicated node never shares structure with the original.
func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}

	return &Node{
		Hash:  n.Hash,
		Left:  n.Left.clone(),
		Right: n.Right.clone(),
	}
}

// buildIntermediate constructs the next level up from the specified level.
// The last node of an odd level is paired with a copy of itself.
func buildIntermediate(nl []*Node, hashStrategy func() hash.Hash) []*Node {
	nodes := make([]*Node, 0, (len(nl)+1)/2)

	for i := 0; i < len(nl); i += 2 {
		left := nl[i]

		right := left.clone()
		if i+1 < len(nl) {
			right = nl[i+1]
		}

		nodes = append(nodes, &Node{
			Hash:  combine(hashStrategy, left.Hash, right.Hash),
			Left:  left,
			Right: right,
		})
	}

	return nodes
}

// combine hashes the concatenation of the left and right digests. Digests
// shorter than 32 bytes, such as md5, are right padded with zeros.
func combine(hashStrategy func() hash.Hash, left bchash.H256, right bchash.H256) bchash.H256 {
	h := hashStrategy()
	h.Write(left[:])
	h.Write(right[:])

	var out bchash.H256
	copy(out[:], h.Sum(nil))
	return out
}
