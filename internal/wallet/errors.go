package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by operations that need an initialized wallet
	ErrNotReady = errors.New("wallet not ready")

	// ErrUnknownCoin is returned for coins the wallet holds no key for
	ErrUnknownCoin = errors.New("unknown coin")

	// ErrRotationExhausted is returned instead of wrapping the counter
	ErrRotationExhausted = errors.New("rotation index exhausted")

	// ErrRotationMismatch is returned when a host supplied address does
	// not match the on-device derivation
	ErrRotationMismatch = errors.New("rotation does not match on-device derivation")

	// ErrExportNotArmed is returned for export attempts without a live
	// ticket from ArmExport
	ErrExportNotArmed = errors.New("export warning was not acknowledged")

	// ErrExportExpired is returned when the warning was shown too long ago
	ErrExportExpired = errors.New("export acknowledgement expired")

	// ErrNoSecret is returned for coins whose stored material is public
	// under the wallet's scheme
	ErrNoSecret = errors.New("coin holds no secret key")

	// ErrInvalidBalance is returned for non finite balances
	ErrInvalidBalance = errors.New("invalid balance")
)

// StorageError wraps key store failures. A failure while initializing is
// fatal: the wallet cannot run without a working key store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("key store %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// GenerationError is returned when no usable entropy is available
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("key generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err leaves the wallet unusable
func IsFatal(err error) bool {
	var se *StorageError
	var ge *GenerationError
	return errors.As(err, &se) || errors.As(err, &ge)
}
