// Package signature provides helper functions for handling the blockchain
// signature needs. Signatures are detached secp256k1 signatures over a
// 32 byte digest, produced with deterministic nonces.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignatureLength is returned when the signature bytes are not
// in the [R|S] or [R|S|V] format.
var ErrInvalidSignatureLength = errors.New("invalid signature length")

// =============================================================================

// Sign uses the specified private key to sign the digest. The signature is
// returned in the 65 byte [R|S|V] format.
func Sign(digest hash.H256, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], privateKey)
	if err != nil {
		return nil, err
	}

	// Check the public key extracted from the data and the signature.
	publicKey, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return nil, err
	}

	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest[:], sig[:crypto.RecoveryIDOffset]) {
		return nil, errors.New("invalid signature")
	}

	return sig, nil
}

// Verify checks the signature of the digest against the public key. A
// signature that doesn't match is reported as false. Only a signature with a
// malformed length returns an error.
func Verify(digest hash.H256, publicKey *ecdsa.PublicKey, sig []byte) (bool, error) {
	switch len(sig) {
	case crypto.SignatureLength, crypto.SignatureLength - 1:
	default:
		return false, fmt.Errorf("got %d bytes: %w", len(sig), ErrInvalidSignatureLength)
	}

	if publicKey == nil {
		return false, nil
	}

	return crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest[:], sig[:crypto.RecoveryIDOffset]), nil
}

// FromAddress extracts the address for the account that signed the digest.
func FromAddress(digest hash.H256, sig []byte) (string, error) {
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("got %d bytes: %w", len(sig), ErrInvalidSignatureLength)
	}

	publicKey, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// SignatureString returns the signature as a string.
func SignatureString(sig []byte) string {
	return hexutil.Encode(sig)
}

// FromSignatureString converts a hex representation of the signature back
// into bytes.
func FromSignatureString(sigStr string) ([]byte, error) {
	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return nil, err
	}

	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("got %d bytes: %w", len(sig), ErrInvalidSignatureLength)
	}

	return sig, nil
}
