package keystore

import (
	"errors"
	"fmt"
	"sync"
)

// Capacity is the size of the persistent region in bytes
const Capacity = 512

// ErrBlank is returned by a Region that has never been written
var ErrBlank = errors.New("storage region is blank")

// Region is a small byte-addressed persistent area, the equivalent of the
// device EEPROM. Store replaces the whole image.
type Region interface {
	// Load returns the current image or ErrBlank
	Load() ([]byte, error)

	// Store persists image. Implementations either persist all of it or
	// leave the previous image in place.
	Store(image []byte) error

	// Erase drops the image so the next Load reports blank or garbage
	Erase() error

	Close() error
}

// MemRegion keeps the image in memory. It backs tests and the memory backend.
type MemRegion struct {
	mu    sync.Mutex
	image []byte

	// FailStore, when set, is returned by Store without touching the image.
	FailStore error
}

// NewMemRegion returns a blank memory region
func NewMemRegion() *MemRegion {
	return &MemRegion{}
}

// Load returns a copy of the image
func (m *MemRegion) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.image == nil {
		return nil, ErrBlank
	}
	out := make([]byte, len(m.image))
	copy(out, m.image)
	return out, nil
}

// Store copies image into the region
func (m *MemRegion) Store(image []byte) error {
	if len(image) > Capacity {
		return fmt.Errorf("image of %d bytes exceeds region capacity %d", len(image), Capacity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailStore != nil {
		return m.FailStore
	}
	clear(m.image)
	m.image = make([]byte, Capacity)
	copy(m.image, image)
	return nil
}

// Erase zeroes the image in place
func (m *MemRegion) Erase() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.image)
	return nil
}

// Poke overwrites raw bytes at offset, growing a blank region. Tests use it
// to simulate corruption.
func (m *MemRegion) Poke(offset int, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.image == nil {
		m.image = make([]byte, Capacity)
	}
	copy(m.image[offset:], data)
}

// Close is a no-op
func (m *MemRegion) Close() error {
	return nil
}
