// Package keystore owns the persistent wallet record.
//
// The region either holds a complete record that passes the magic and
// checksum checks, or it is treated as empty. New records are written in
// the typed, versioned layout; images in the original fixed-offset layout
// are still readable.
package keystore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AlexZinkM/duo-wallet/internal/crypto"
	"github.com/AlexZinkM/duo-wallet/internal/model"
)

// Store reads and writes the wallet record through a Region
type Store struct {
	mu     sync.Mutex
	region Region
}

// New returns a store on region
func New(region Region) *Store {
	return &Store{region: region}
}

// Load returns the stored wallet. It returns ErrNoRecord when the region is
// blank, unreadable or holds anything but a valid record. A sealed region
// that cannot be opened reports crypto.ErrInvalidPasswordOrCorrupt or
// ErrUnsealedImage instead, so a wrong password or a damaged seal never
// looks like an empty device.
func (s *Store) Load() (*model.WalletState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	image, err := s.region.Load()
	switch {
	case errors.Is(err, ErrBlank):
		log.Infof("No wallet record: region is blank")
		return nil, fmt.Errorf("%w: region is blank", ErrNoRecord)

	case errors.Is(err, crypto.ErrInvalidPasswordOrCorrupt),
		errors.Is(err, ErrUnsealedImage):
		return nil, err

	case err != nil:
		log.Warnf("Unable to read region, treating it as empty: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrNoRecord, err)
	}
	defer clear(image)

	state, err := DecodeImage(image)
	if err != nil {
		log.Infof("No wallet record: %v", err)
		return nil, err
	}

	log.Debugf("Loaded wallet record (scheme=%d, %d keys)", state.Scheme, len(state.Keys))
	return state, nil
}

// Save writes state as a typed record
func (s *Store) Save(state *model.WalletState) error {
	image, err := encodeRecord(state)
	if err != nil {
		return err
	}
	defer clear(image)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.region.Store(image); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}

	log.Debugf("Saved wallet record (%d bytes)", len(image))
	return nil
}

// Reset erases the record. This is a logical wipe: depending on the region
// the old bytes may survive on the medium.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.region.Erase(); err != nil {
		return fmt.Errorf("failed to erase region: %w", err)
	}
	log.Infof("Wallet record erased")
	return nil
}

// Close closes the region
func (s *Store) Close() error {
	return s.region.Close()
}
