// Package signer is the slot transaction signing plugs into.
package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexZinkM/duo-wallet/internal/model"
)

// ErrSigningUnavailable is returned for coins without a signing engine
var ErrSigningUnavailable = errors.New("signing unavailable")

// Signer signs transaction data with the key active for the current
// rotation. Implementations must not retain key.
type Signer interface {
	Name() string
	Sign(ctx context.Context, key [model.KeySize]byte, txData []byte) ([]byte, error)
}

// Unavailable is the signer of coins that have no engine wired in
type Unavailable struct{}

// Name returns "none"
func (Unavailable) Name() string { return "none" }

// Sign always fails with ErrSigningUnavailable
func (Unavailable) Sign(context.Context, [model.KeySize]byte, []byte) ([]byte, error) {
	return nil, ErrSigningUnavailable
}

// New returns the signer registered under name
func New(name string) (Signer, error) {
	switch name {
	case "", "none":
		return Unavailable{}, nil
	case "secp256k1":
		return Secp256k1{}, nil
	default:
		return nil, fmt.Errorf("unknown signer %q", name)
	}
}
