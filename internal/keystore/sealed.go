package keystore

import (
	"errors"
	"fmt"

	"github.com/AlexZinkM/duo-wallet/internal/crypto"
)

// ErrUnsealedImage is returned when a sealed region holds a plain image.
// Plain images are converted with cmd/migrate_image, never adopted on load.
var ErrUnsealedImage = errors.New("region holds an unsealed image")

// SealedRegion encrypts images with a password before handing them to the
// wrapped region.
type SealedRegion struct {
	inner    Region
	password []byte
	params   crypto.Params
}

// NewSealedRegion wraps inner. The password is copied, call Close to wipe it.
func NewSealedRegion(inner Region, password []byte, params crypto.Params) *SealedRegion {
	pw := make([]byte, len(password))
	copy(pw, password)
	return &SealedRegion{inner: inner, password: pw, params: params}
}

// Load opens the sealed image. An erased region reads as blank; any other
// image without the seal header is rejected with ErrUnsealedImage.
func (s *SealedRegion) Load() ([]byte, error) {
	blob, err := s.inner.Load()
	if err != nil {
		return nil, err
	}
	if !crypto.IsSealed(blob) {
		if erased(blob) {
			return nil, ErrBlank
		}
		log.Errorf("Sealed region holds an unsealed image")
		return nil, fmt.Errorf("%w: convert it with migrate_image -sealed", ErrUnsealedImage)
	}
	return crypto.Open(blob, s.password)
}

func erased(image []byte) bool {
	for _, b := range image {
		if b != 0 {
			return false
		}
	}
	return true
}

// Store seals image and stores the blob
func (s *SealedRegion) Store(image []byte) error {
	blob, err := crypto.Seal(image, s.password, s.params)
	if err != nil {
		return err
	}
	return s.inner.Store(blob)
}

// Erase erases the wrapped region
func (s *SealedRegion) Erase() error {
	return s.inner.Erase()
}

// Close wipes the password and closes the wrapped region
func (s *SealedRegion) Close() error {
	clear(s.password)
	return s.inner.Close()
}
