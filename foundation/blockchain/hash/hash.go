// Package hash provides the fixed width digest used to identify and commit to
// every hashed entity in the blockchain.
package hash

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// Size is the number of bytes in a digest.
const Size = 32

// Zero represents a digest of all zeros. It is the parent of the genesis
// block and is never a key in the ledger.
var Zero H256

// =============================================================================

// Hashable represents the behavior of any value that can produce a digest
// of itself.
type Hashable interface {
	Hash() H256
}

// H256 is a 256 bit digest. Equality is byte-wise and ordering is
// lexicographic over the bytes.
type H256 [Size]byte

// Sum returns the sha256 digest of the specified data.
func Sum(data ...[]byte) H256 {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}

	var out H256
	copy(out[:], h.Sum(nil))
	return out
}

// Of returns the digest of the RLP encoding of the specified value. Only the
// fixed block and transaction types are hashed this way, so a value that
// can't be encoded is a programming error and Of panics.
func Of(value any) H256 {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		panic(fmt.Sprintf("hash: Of: %T: %s", value, err))
	}

	return Sum(data)
}

// FromBytes converts a slice of exactly Size bytes into a digest.
func FromBytes(b []byte) (H256, error) {
	if len(b) != Size {
		return Zero, fmt.Errorf("invalid digest length, got %d, exp %d", len(b), Size)
	}

	var h H256
	copy(h[:], b)
	return h, nil
}

// FromHex converts a 0x prefixed hex string into a digest.
func FromHex(s string) (H256, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("decoding digest: %w", err)
	}

	return FromBytes(b)
}

// MustFromHex is FromHex for constants. It panics on a bad value.
func MustFromHex(s string) H256 {
	h, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Hash implements the Hashable interface. A digest used as a leaf hashes
// its own bytes.
func (h H256) Hash() H256 {
	return Sum(h[:])
}

// Bytes returns a copy of the digest as a slice.
func (h H256) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

// Compare returns -1, 0 or +1 comparing the digests lexicographically.
func (h H256) Compare(other H256) int {
	return bytes.Compare(h[:], other[:])
}

// Meets reports whether the digest is less than or equal to the target.
func (h H256) Meets(target H256) bool {
	return h.Compare(target) <= 0
}

// IsZero reports whether this is the zero digest.
func (h H256) IsZero() bool {
	return h == Zero
}

// String implements the fmt.Stringer interface.
func (h H256) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h H256) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *H256) UnmarshalText(text []byte) error {
	v, err := FromHex(string(text))
	if err != nil {
		return err
	}

	*h = v
	return nil
}
