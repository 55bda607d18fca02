package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// sealMagic marks a sealed image. It differs from every record magic so
	// an unsealed reader never mistakes a sealed blob for a key record.
	sealMagic   uint16 = 0xCA5E
	sealVersion byte   = 1

	saltLen   = 32
	nonceLen  = 12
	keyLen    = 32
	headerLen = 2 + 1 + 1 + 1 + 1 + saltLen + nonceLen + 2

	// Overhead is the number of bytes Seal adds to a plaintext
	Overhead = headerLen + 16
)

// Params are the scrypt cost parameters written into every sealed blob
type Params struct {
	LogN uint8 // N = 1 << LogN
	R    uint8
	P    uint8
}

// DefaultParams keep the local wallet defaults: security is prioritized
// over performance.
//
// N=2^18 (~256MB RAM, 0.5-2s) works on desktops and phones alike while
// keeping brute-force attacks expensive.
var DefaultParams = Params{LogN: 18, R: 8, P: 1}

// Seal encrypts plaintext with a key derived from password.
// password must be []byte for security (caller should zero it after use)
func Seal(plaintext, password []byte, params Params) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if len(plaintext) > 0xFFFF {
		return nil, fmt.Errorf("plaintext too large: %d bytes", len(plaintext))
	}

	// Generate salt and nonce
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(password, salt, params)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, headerLen)
	header = binary.LittleEndian.AppendUint16(header, sealMagic)
	header = append(header, sealVersion, params.LogN, params.R, params.P)
	header = append(header, salt...)
	header = append(header, nonce...)
	header = binary.LittleEndian.AppendUint16(header, uint16(len(plaintext)))

	// The header is authenticated so its cost parameters cannot be swapped.
	return aesGCM.Seal(header, nonce, plaintext, header), nil
}

// newGCM derives the AES key from password and wraps it in GCM
func newGCM(password, salt []byte, params Params) (cipher.AEAD, error) {
	if params.LogN == 0 || params.LogN > 30 || params.R == 0 || params.P == 0 {
		return nil, fmt.Errorf("invalid scrypt parameters %+v", params)
	}

	// Derive key from password
	key, err := scrypt.Key(password, salt, 1<<params.LogN, int(params.R), int(params.P), keyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	// Create AES cipher
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	// Create GCM
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
