package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrInvalidPasswordOrCorrupt is returned for any sealed blob that cannot
	// be opened: failed authentication, an unknown version or unusable cost
	// parameters. Keep this generic to avoid leaking details.
	ErrInvalidPasswordOrCorrupt = errors.New("invalid password or corrupted image")

	// ErrNotSealed is returned when a blob does not start with the seal header
	ErrNotSealed = errors.New("image is not sealed")
)

// IsSealed reports whether blob carries the seal header
func IsSealed(blob []byte) bool {
	return len(blob) >= 2 && binary.LittleEndian.Uint16(blob) == sealMagic
}

// Open authenticates and decrypts a blob produced by Seal. Trailing bytes
// after the ciphertext (region padding) are ignored.
// password must be []byte for security (caller should zero it after use)
func Open(blob, password []byte) ([]byte, error) {
	if !IsSealed(blob) {
		return nil, ErrNotSealed
	}
	if len(blob) < Overhead {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidPasswordOrCorrupt)
	}
	if blob[2] != sealVersion {
		return nil, fmt.Errorf("%w: unsupported seal version %d", ErrInvalidPasswordOrCorrupt, blob[2])
	}

	params := Params{LogN: blob[3], R: blob[4], P: blob[5]}
	salt := blob[6 : 6+saltLen]
	nonce := blob[6+saltLen : 6+saltLen+nonceLen]
	size := int(binary.LittleEndian.Uint16(blob[headerLen-2 : headerLen]))

	end := headerLen + size + 16
	if len(blob) < end {
		return nil, fmt.Errorf("%w: truncated ciphertext", ErrInvalidPasswordOrCorrupt)
	}

	aesGCM, err := newGCM(password, salt, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPasswordOrCorrupt, err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, blob[headerLen:end], blob[:headerLen])
	if err != nil {
		return nil, ErrInvalidPasswordOrCorrupt
	}
	return plaintext, nil
}
