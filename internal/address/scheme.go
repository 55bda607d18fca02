package address

import (
	"fmt"

	"github.com/AlexZinkM/duo-wallet/internal/model"
)

// Scheme selects the derivation algorithm a wallet was created with. It is
// persisted with the keys so a reload derives the same addresses.
type Scheme uint8

const (
	// SchemeLegacy matches the original firmware: the rotation index does
	// not take part in derivation, so every rotation of one key shares an
	// address. YadaCoin addresses are the hex encoded key itself.
	SchemeLegacy Scheme = 0

	// SchemeRotating derives a dedicated key per rotation index with
	// HKDF-SHA256 and hashes that key into the address body.
	SchemeRotating Scheme = 1
)

// String returns the config name of the scheme
func (s Scheme) String() string {
	switch s {
	case SchemeLegacy:
		return "legacy"
	case SchemeRotating:
		return "rotating"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Known reports whether s is a scheme this build can derive
func (s Scheme) Known() bool {
	return s == SchemeLegacy || s == SchemeRotating
}

// HoldsSecret reports whether the stored 32 bytes of coin are secret under
// s. Legacy YadaCoin material is the public address, so it can neither sign
// nor be exported.
func (s Scheme) HoldsSecret(coin model.Coin) bool {
	return !(s == SchemeLegacy && coin == model.CoinYadaCoin)
}

// RotationChangesAddress reports whether bumping the rotation index yields a
// new address under s.
func (s Scheme) RotationChangesAddress() bool {
	return s == SchemeRotating
}

// ParseScheme parses a scheme name from configuration
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "legacy":
		return SchemeLegacy, nil
	case "rotating":
		return SchemeRotating, nil
	default:
		return 0, fmt.Errorf("unknown derivation scheme %q", name)
	}
}
