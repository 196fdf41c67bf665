package database

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrAlreadySigned is returned when a signature is set on a transaction
// that is already signed. The existing signature is kept.
var ErrAlreadySigned = errors.New("transaction is already signed")

// =============================================================================

// Tx is an opaque signed input/output record. The signature starts absent
// and can be set once.
type Tx struct {
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Signature hexutil.Bytes `json:"signature,omitempty"`
}

// NewTx constructs a new unsigned transaction.
func NewTx(input string, output string) Tx {
	return Tx{
		Input:  input,
		Output: output,
	}
}

// IsSigned reports whether a signature has been set.
func (tx Tx) IsSigned() bool {
	return len(tx.Signature) > 0
}

// Unsigned returns a copy of the transaction with the signature absent.
func (tx Tx) Unsigned() Tx {
	return Tx{
		Input:  tx.Input,
		Output: tx.Output,
	}
}

// Hash implements the hash.Hashable interface. The digest is taken over the
// unsigned form so the identity of a transaction, and the merkle root of any
// block holding it, does not depend on who signed it.
func (tx Tx) Hash() hash.H256 {
	return hash.Of(tx.Unsigned())
}

// Sign uses the specified private key to produce a detached signature of
// the transaction. The transaction is not modified.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) ([]byte, error) {
	return signature.Sign(tx.Hash(), privateKey)
}

// Verify checks the detached signature against the transaction and the
// public key. A mismatch is reported as false.
func (tx Tx) Verify(publicKey *ecdsa.PublicKey, sig []byte) (bool, error) {
	return signature.Verify(tx.Hash(), publicKey, sig)
}

// SetSignature attaches the signature to the transaction. A transaction
// that is already signed keeps its signature and ErrAlreadySigned is
// returned.
func (tx *Tx) SetSignature(sig []byte) error {
	if tx.IsSigned() {
		return ErrAlreadySigned
	}

	tx.Signature = append([]byte(nil), sig...)
	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%t", tx.Input, tx.Output, tx.IsSigned())
}
