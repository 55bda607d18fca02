// Package address maps private keys to public address strings.
//
// Derivation is a pure function of (scheme, coin, key, rotation). Addresses
// are never persisted, they are recomputed after every load.
package address

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AlexZinkM/duo-wallet/internal/model"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/hkdf"
)

const (
	// Alphabet is the Bitcoin base58 alphabet (no 0, O, I, l)
	Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	// BodyLength is the number of characters after the coin prefix
	BodyLength = 92

	// PrefixLength is the length of every coin prefix
	PrefixLength = 3
)

var (
	// ErrUnknownScheme is returned for schemes this build cannot derive
	ErrUnknownScheme = errors.New("unknown derivation scheme")

	// ErrUnknownCoin is returned for coins without an address prefix
	ErrUnknownCoin = errors.New("unknown coin")
)

// Derive returns the address of key at rotation for coin
func Derive(scheme Scheme, coin model.Coin, key [model.KeySize]byte, rotation uint32) (string, error) {
	info, ok := coin.Info()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCoin, coin)
	}

	switch scheme {
	case SchemeLegacy:
		if coin == model.CoinYadaCoin {
			// The legacy YadaCoin slot holds the address body itself.
			return info.AddressPrefix + hex.EncodeToString(key[:]), nil
		}
		// The firmware hashed the hex text of the key, not the raw bytes.
		digest := sha256.Sum256([]byte(hex.EncodeToString(key[:])))
		return info.AddressPrefix + body(digest), nil

	case SchemeRotating:
		rk, err := RotationKey(scheme, coin, key, rotation)
		if err != nil {
			return "", err
		}
		defer clear(rk[:])
		digest := sha256.Sum256(rk[:])
		return info.AddressPrefix + body(digest), nil

	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownScheme, uint8(scheme))
	}
}

// RotationKey returns the key that is active at rotation. Under the legacy
// scheme that is the master key itself. Callers must clear the result.
func RotationKey(scheme Scheme, coin model.Coin, key [model.KeySize]byte, rotation uint32) ([model.KeySize]byte, error) {
	var out [model.KeySize]byte

	switch scheme {
	case SchemeLegacy:
		out = key
		return out, nil

	case SchemeRotating:
		info := []byte(string(coin) + "/rotation/" + strconv.FormatUint(uint64(rotation), 10))
		r := hkdf.New(sha256.New, key[:], nil, info)
		if _, err := io.ReadFull(r, out[:]); err != nil {
			return out, fmt.Errorf("failed to derive rotation key: %w", err)
		}
		return out, nil

	default:
		return out, fmt.Errorf("%w: %d", ErrUnknownScheme, uint8(scheme))
	}
}

// body cycles through the digest, mapping each byte onto the alphabet
func body(digest [sha256.Size]byte) string {
	var sb strings.Builder
	sb.Grow(BodyLength)
	for i := 0; i < BodyLength; i++ {
		sb.WriteByte(Alphabet[int(digest[i%len(digest)])%len(Alphabet)])
	}
	return sb.String()
}

// SplitPrefix splits an address into its coin and body
func SplitPrefix(addr string) (model.Coin, string, bool) {
	if len(addr) <= PrefixLength {
		return "", "", false
	}
	prefix := addr[:PrefixLength]
	for _, coin := range model.Coins() {
		info, _ := coin.Info()
		if info.AddressPrefix == prefix {
			return coin, addr[PrefixLength:], true
		}
	}
	return "", "", false
}

// ValidBody reports whether body has the shape scheme derives for coin.
// Legacy YadaCoin bodies are 64 hex characters.
func ValidBody(scheme Scheme, coin model.Coin, body string) bool {
	if body == "" {
		return false
	}
	if scheme == SchemeLegacy && coin == model.CoinYadaCoin {
		_, err := hex.DecodeString(body)
		return err == nil && len(body) == 2*model.KeySize
	}
	if len(body) != BodyLength {
		return false
	}
	decoded, err := base58.Decode(body)
	return err == nil && len(decoded) > 0
}

// Valid reports whether addr is a well formed address for coin under scheme
func Valid(scheme Scheme, coin model.Coin, addr string) bool {
	c, b, ok := SplitPrefix(addr)
	if !ok || c != coin {
		return false
	}
	return ValidBody(scheme, coin, b)
}
