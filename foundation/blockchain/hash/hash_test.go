package hash_test

import (
	"encoding/json"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

func Test_Compare(t *testing.T) {
	low := hash.MustFromHex("0x00000000000000000000000000000000000000000000000000000000000000ff")
	high := hash.MustFromHex("0x0100000000000000000000000000000000000000000000000000000000000000")

	type table struct {
		name   string
		h      hash.H256
		target hash.H256
		cmp    int
		meets  bool
	}

	tt := []table{
		{name: "less", h: low, target: high, cmp: -1, meets: true},
		{name: "equal", h: high, target: high, cmp: 0, meets: true},
		{name: "greater", h: high, target: low, cmp: 1, meets: false},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if got := tst.h.Compare(tst.target); got != tst.cmp {
				t.Logf("Test %s:\tgot: %d", tst.name, got)
				t.Logf("Test %s:\texp: %d", tst.name, tst.cmp)
				t.Fatalf("Test %s:\tShould compare lexicographically.", tst.name)
			}

			if got := tst.h.Meets(tst.target); got != tst.meets {
				t.Fatalf("Test %s:\tShould get back %t for meets.", tst.name, tst.meets)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Hash(t *testing.T) {
	h := hash.MustFromHex("0x0101010101010101010101010101010101010101010101010101010101010202")
	exp := "0x965b093a75a75895a351786dd7a188515173f6928a8af8c9baa4dcff268a4f0f"

	if got := h.Hash().String(); got != exp {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should hash the bytes of the digest.")
	}

	if hash.Sum(h[:]) != h.Hash() {
		t.Fatalf("Should get back the same digest from Sum.")
	}
}

func Test_Of(t *testing.T) {
	type value struct {
		Name  string
		Count uint64
	}

	v := value{Name: "block", Count: 7}
	if hash.Of(v) != hash.Of(v) {
		t.Fatalf("Should get back the same digest for the same value.")
	}

	if hash.Of(v) == hash.Zero {
		t.Fatalf("Should not get back the zero digest for an encodable value.")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("Should panic for a value that can't be encoded.")
		}
	}()

	hash.Of(-1)
}

func Test_Text(t *testing.T) {
	h := hash.Sum([]byte("Bill"))

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Should be able to marshal a digest: %s", err)
	}

	var back hash.H256
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Should be able to unmarshal a digest: %s", err)
	}

	if back != h {
		t.Fatalf("Should get back the same digest.")
	}

	if _, err := hash.FromHex("0x0102"); err == nil {
		t.Fatalf("Should reject a short digest.")
	}

	if !hash.Zero.IsZero() || h.IsZero() {
		t.Fatalf("Should detect the zero digest.")
	}
}
