package signer

import (
	"context"
	"crypto/sha256"
	"errors"

	"github.com/AlexZinkM/duo-wallet/internal/model"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Secp256k1 signs SHA-256(txData) and returns a 65 byte compact signature
// from which the public key can be recovered.
type Secp256k1 struct{}

// Name returns "secp256k1"
func (Secp256k1) Name() string { return "secp256k1" }

// Sign signs txData with key
func (Secp256k1) Sign(ctx context.Context, key [model.KeySize]byte, txData []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(txData) == 0 {
		return nil, errors.New("transaction data cannot be empty")
	}

	privKey := secp256k1.PrivKeyFromBytes(key[:])
	defer privKey.Zero()

	digest := sha256.Sum256(txData)
	return ecdsa.SignCompact(privKey, digest[:], true), nil
}
