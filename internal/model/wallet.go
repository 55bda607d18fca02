package model

import "fmt"

// KeySize is the length of a private key in bytes
const KeySize = 32

// KeyRecord is the stored unit of secret material for one coin
type KeyRecord struct {
	PrivateKey [KeySize]byte
	Rotation   uint32
}

// String never prints key material
func (r KeyRecord) String() string {
	return fmt.Sprintf("KeyRecord{rotation=%d, key=<redacted>}", r.Rotation)
}

// Wipe zeroes the private key
func (r *KeyRecord) Wipe() {
	clear(r.PrivateKey[:])
}

// WalletState is everything the key store persists.
type WalletState struct {
	Scheme    uint8 // address derivation scheme the keys were created under
	Keys      map[Coin]KeyRecord
	CreatedAt int64 // unix seconds, 0 when unknown (legacy images)
}

// NewWalletState returns an empty state for the given scheme
func NewWalletState(scheme uint8) *WalletState {
	return &WalletState{
		Scheme: scheme,
		Keys:   make(map[Coin]KeyRecord, len(coinInfos)),
	}
}

// Wipe zeroes every key held by the state
func (s *WalletState) Wipe() {
	for coin, rec := range s.Keys {
		rec.Wipe()
		s.Keys[coin] = rec
	}
}
