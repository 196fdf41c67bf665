package merkle_test

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ardanlabs/powchain/foundation/blockchain/merkle"
)

// Data is a string value that can be placed in a tree.
type Data struct {
	x string
}

// Hash hashes the value using sha256.
func (d Data) Hash() hash.H256 {
	return hash.Sum([]byte(d.x))
}

func genData(n int) []Data {
	data := make([]Data, n)
	for i := range data {
		data[i] = Data{x: fmt.Sprintf("Hello %d", i)}
	}
	return data
}

// =============================================================================

func Test_GoldenRoot(t *testing.T) {
	leafs := []hash.H256{
		hash.MustFromHex("0x0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d"),
		hash.MustFromHex("0x0101010101010101010101010101010101010101010101010101010101010202"),
	}

	tree, err := merkle.NewTree(leafs)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	exp := hash.MustFromHex("0x6b787718210e0b3b608814e04e61fde06d0df794319a12162f287412df3ec920")
	if got := tree.MerkleRoot(); got != exp {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should get back the golden root.")
	}

	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("Should be able to get a proof: %s", err)
	}

	expProof := hash.MustFromHex("0x965b093a75a75895a351786dd7a188515173f6928a8af8c9baa4dcff268a4f0f")
	if len(proof) != 1 || proof[0] != expProof {
		t.Logf("got: %v", proof)
		t.Logf("exp: [%s]", expProof)
		t.Fatalf("Should get back the golden proof.")
	}

	if !merkle.Verify(tree.MerkleRoot(), leafs[0].Hash(), proof, 0, len(leafs)) {
		t.Fatalf("Should be able to verify the golden proof.")
	}
}

func Test_SingleLeaf(t *testing.T) {
	data := genData(1)

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	if tree.MerkleRoot() != data[0].Hash() {
		t.Fatalf("Should have a root equal to the only leaf.")
	}

	if !tree.Root.IsLeaf() {
		t.Fatalf("Should not have any internal nodes.")
	}

	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("Should be able to get a proof: %s", err)
	}

	if len(proof) != 0 {
		t.Fatalf("Should get back an empty proof, got %d entries.", len(proof))
	}

	if !merkle.Verify(tree.MerkleRoot(), data[0].Hash(), proof, 0, 1) {
		t.Fatalf("Should be able to verify a single leaf.")
	}
}

func Test_OddLeafCount(t *testing.T) {
	data := genData(3)

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	h0, h1, h2 := data[0].Hash(), data[1].Hash(), data[2].Hash()
	n01 := hash.Sum(h0[:], h1[:])
	n22 := hash.Sum(h2[:], h2[:])
	exp := hash.Sum(n01[:], n22[:])

	if got := tree.MerkleRoot(); got != exp {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should duplicate the last leaf to form a pair.")
	}

	proof, err := tree.Proof(2)
	if err != nil {
		t.Fatalf("Should be able to get a proof: %s", err)
	}

	if len(proof) != 2 || proof[0] != n01 || proof[1] != h2 {
		t.Fatalf("Should get back the root to leaf siblings for the last leaf: %v", proof)
	}

	if tree.Root.Right.Left == tree.Root.Right.Right {
		t.Fatalf("Should not share the duplicated node.")
	}
}

func Test_RoundTrip(t *testing.T) {
	for n := 1; n <= 17; n++ {
		f := func(t *testing.T) {
			data := genData(n)

			tree, err := merkle.NewTree(data)
			if err != nil {
				t.Fatalf("Should be able to construct a tree: %s", err)
			}

			for i := range data {
				proof, err := tree.Proof(i)
				if err != nil {
					t.Fatalf("Should be able to get a proof for %d: %s", i, err)
				}

				if len(proof) != tree.Depth() {
					t.Fatalf("Should get back %d entries for %d, got %d.", tree.Depth(), i, len(proof))
				}

				if !merkle.Verify(tree.MerkleRoot(), data[i].Hash(), proof, i, n) {
					t.Fatalf("Should be able to verify leaf %d.", i)
				}
			}
		}

		t.Run(fmt.Sprintf("leafs-%d", n), f)
	}
}

func Test_Tamper(t *testing.T) {
	const n = 7
	data := genData(n)

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	root := tree.MerkleRoot()

	for i := range data {
		proof, err := tree.Proof(i)
		if err != nil {
			t.Fatalf("Should be able to get a proof: %s", err)
		}

		for p := range proof {
			for b := 0; b < hash.Size; b++ {
				bad := append([]hash.H256(nil), proof...)
				bad[p][b] ^= 0xff
				if merkle.Verify(root, data[i].Hash(), bad, i, n) {
					t.Fatalf("Should fail with byte %d of entry %d flipped for leaf %d.", b, p, i)
				}
			}
		}

		if merkle.Verify(root, data[i].Hash(), proof, (i+1)%n, n) {
			t.Fatalf("Should fail with the wrong index for leaf %d.", i)
		}

		if merkle.Verify(root, data[i].Hash(), proof, i, 2*n) {
			t.Fatalf("Should fail with the wrong leaf count for leaf %d.", i)
		}

		if merkle.Verify(root, data[i].Hash(), proof[1:], i, n) {
			t.Fatalf("Should fail with a short proof for leaf %d.", i)
		}
	}
}

func Test_RightEdgeLeafCount(t *testing.T) {
	const n = 7
	data := genData(n)

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	root := tree.MerkleRoot()

	tt := []struct {
		index int
		count int
	}{
		{4, 5},
		{4, 6},
		{5, 6},
		{6, 7},
	}

	for _, tst := range tt {
		proof, err := tree.Proof(tst.index)
		if err != nil {
			t.Fatalf("Should be able to get a proof: %s", err)
		}

		got := merkle.Verify(root, data[tst.index].Hash(), proof, tst.index, tst.count)
		exp := tst.count == n

		if got != exp {
			t.Logf("got: %v", got)
			t.Logf("exp: %v", exp)
			t.Fatalf("Should check leaf %d against a count of %d.", tst.index, tst.count)
		}
	}
}

func Test_Errors(t *testing.T) {
	if _, err := merkle.NewTree([]Data{}); !errors.Is(err, merkle.ErrNoContent) {
		t.Fatalf("Should not construct a tree with no content: %v", err)
	}

	tree, err := merkle.NewTree(genData(4))
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	for _, index := range []int{-1, 4, 100} {
		if _, err := tree.Proof(index); !errors.Is(err, merkle.ErrIndexOutOfRange) {
			t.Fatalf("Should reject index %d: %v", index, err)
		}
	}

	if merkle.Verify(tree.MerkleRoot(), genData(1)[0].Hash(), nil, 4, 4) {
		t.Fatalf("Should not verify an index outside the leaf count.")
	}
}

func Test_Values(t *testing.T) {
	data := genData(5)

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	values := tree.Values()
	if len(values) != len(data) || tree.Len() != len(data) {
		t.Fatalf("Should get back the original values without duplicates, got %d.", len(values))
	}

	for i := range data {
		if values[i] != data[i] {
			t.Fatalf("Should get back value %d in order.", i)
		}
	}
}

func Test_DefaultStrategyIsSHA256(t *testing.T) {
	data := genData(2)

	def, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	explicit, err := merkle.NewTree(data, merkle.WithHashStrategy[Data](sha256.New))
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %s", err)
	}

	if def.MerkleRoot() != explicit.MerkleRoot() {
		t.Fatalf("Should use sha256 by default.")
	}
}
