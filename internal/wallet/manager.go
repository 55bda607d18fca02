// Package wallet owns the in-memory wallet and every operation on it.
//
// All reads and writes go through Manager's mutex, so a host command and a
// local rotation can never interleave inside a read-modify-write.
package wallet

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/address"
	"github.com/AlexZinkM/duo-wallet/internal/keystore"
	"github.com/AlexZinkM/duo-wallet/internal/model"
	"github.com/AlexZinkM/duo-wallet/internal/monitoring"
	"github.com/AlexZinkM/duo-wallet/internal/signer"
)

// DefaultExportTimeout bounds how long an acknowledged export warning stays valid
const DefaultExportTimeout = 2 * time.Minute

// State is the lifecycle state of the manager
type State int

const (
	StateUninitialized State = iota
	StateLoaded
	StateGenerated
	StateReady
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateGenerated:
		return "generated"
	case StateReady:
		return "ready"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// KeyStore is the persistence the manager needs
type KeyStore interface {
	Load() (*model.WalletState, error)
	Save(state *model.WalletState) error
	Reset() error
}

// Config holds the manager collaborators
type Config struct {
	Store KeyStore

	// Entropy is the CSPRNG used for key generation. Defaults to crypto/rand.
	Entropy io.Reader

	// Scheme is used for newly generated wallets. Loaded wallets keep the
	// scheme they were created with.
	Scheme address.Scheme

	// Signers maps coins to signing engines. Missing coins are unavailable.
	Signers map[model.Coin]signer.Signer

	// ExportTimeout defaults to DefaultExportTimeout
	ExportTimeout time.Duration

	// Now defaults to time.Now
	Now func() time.Time
}

// Manager orchestrates the key store and the address codec
type Manager struct {
	cfg Config

	mu        sync.Mutex
	state     State
	wallet    *model.WalletState
	addresses map[model.Coin]string
	balances  map[model.Coin]float64
	fault     error
	armed     *ExportTicket
}

// NewManager creates an uninitialized manager
func NewManager(cfg Config) *Manager {
	if cfg.Entropy == nil {
		cfg.Entropy = rand.Reader
	}
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = DefaultExportTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Signers == nil {
		cfg.Signers = make(map[model.Coin]signer.Signer)
	}

	return &Manager{
		cfg:       cfg,
		state:     StateUninitialized,
		addresses: make(map[model.Coin]string),
		balances:  make(map[model.Coin]float64),
	}
}

// Initialize loads the wallet from the key store, or generates and persists
// a fresh one when the store holds no valid record.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateReady {
		return nil
	}

	loaded, err := m.cfg.Store.Load()
	switch {
	case err == nil:
		if !address.Scheme(loaded.Scheme).Known() {
			loaded.Wipe()
			return m.faultLocked(&StorageError{
				Op:  "load",
				Err: fmt.Errorf("%w: %d", address.ErrUnknownScheme, loaded.Scheme),
			})
		}
		m.state = StateLoaded
		m.wallet = loaded
		log.Infof("Wallet loaded (scheme=%v)", address.Scheme(loaded.Scheme))

	case errors.Is(err, keystore.ErrNoRecord):
		log.Infof("No existing keys, generating new wallet: %v", err)
		if err := m.generateLocked(); err != nil {
			return m.faultLocked(err)
		}

	default:
		return m.faultLocked(&StorageError{Op: "load", Err: err})
	}

	// Addresses are always recomputed from the stored keys.
	if err := m.deriveAllLocked(); err != nil {
		return m.faultLocked(err)
	}

	m.state = StateReady
	m.fault = nil
	monitoring.WalletReady.Set(1)

	for _, coin := range model.Coins() {
		log.Infof("%s: %s... rotation %d", coin.Name(), truncate(m.addresses[coin], 30),
			m.wallet.Keys[coin].Rotation)
	}
	return nil
}

// generateLocked creates keys for every coin and persists them
func (m *Manager) generateLocked() error {
	state := model.NewWalletState(uint8(m.cfg.Scheme))
	state.CreatedAt = m.cfg.Now().Unix()

	for _, coin := range model.Coins() {
		var rec model.KeyRecord
		if err := m.readKey(&rec.PrivateKey); err != nil {
			state.Wipe()
			return err
		}
		state.Keys[coin] = rec
	}

	if err := m.cfg.Store.Save(state); err != nil {
		state.Wipe()
		monitoring.StoreWritesTotal.WithLabelValues("error").Inc()
		return &StorageError{Op: "save", Err: err}
	}
	monitoring.StoreWritesTotal.WithLabelValues("ok").Inc()

	if m.wallet != nil {
		m.wallet.Wipe()
	}
	m.wallet = state
	m.state = StateGenerated
	log.Infof("New wallet generated (scheme=%v)", m.cfg.Scheme)
	return nil
}

// readKey fills key from the entropy source
func (m *Manager) readKey(key *[model.KeySize]byte) error {
	if _, err := io.ReadFull(m.cfg.Entropy, key[:]); err != nil {
		return &GenerationError{Err: err}
	}
	var zero [model.KeySize]byte
	if *key == zero {
		return &GenerationError{Err: errors.New("entropy source returned all zero bytes")}
	}
	return nil
}

func (m *Manager) deriveAllLocked() error {
	for _, coin := range model.Coins() {
		if err := m.deriveLocked(coin); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) deriveLocked(coin model.Coin) error {
	rec, ok := m.wallet.Keys[coin]
	if !ok {
		return &StorageError{Op: "load", Err: fmt.Errorf("record has no %s key", coin)}
	}
	addr, err := address.Derive(address.Scheme(m.wallet.Scheme), coin, rec.PrivateKey, rec.Rotation)
	if err != nil {
		return err
	}
	m.addresses[coin] = addr
	return nil
}

func (m *Manager) faultLocked(err error) error {
	m.state = StateFaulted
	m.fault = err
	m.armed = nil
	monitoring.WalletReady.Set(0)
	log.Criticalf("Wallet halted: %v", err)
	return err
}

func (m *Manager) requireReadyLocked(coin model.Coin) (model.KeyRecord, error) {
	if m.state != StateReady {
		return model.KeyRecord{}, ErrNotReady
	}
	rec, ok := m.wallet.Keys[coin]
	if !ok {
		return model.KeyRecord{}, fmt.Errorf("%w: %s", ErrUnknownCoin, coin)
	}
	return rec, nil
}

// State returns the lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fault returns the error that halted the wallet, if any
func (m *Manager) Fault() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fault
}

// Scheme returns the derivation scheme of the active wallet
func (m *Manager) Scheme() address.Scheme {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wallet == nil {
		return m.cfg.Scheme
	}
	return address.Scheme(m.wallet.Scheme)
}

// Address returns the current address of coin
func (m *Manager) Address(coin model.Coin) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requireReadyLocked(coin); err != nil {
		return "", err
	}
	return m.addresses[coin], nil
}

// Rotation returns the current rotation index of coin
func (m *Manager) Rotation(coin model.Coin) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.requireReadyLocked(coin)
	if err != nil {
		return 0, err
	}
	return rec.Rotation, nil
}

// Rotate advances the rotation index of coin, persists it and re-derives
// the address. It returns the new index.
func (m *Manager) Rotate(coin model.Coin) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rotateLocked(coin, "device")
}

func (m *Manager) rotateLocked(coin model.Coin, origin string) (uint32, error) {
	rec, err := m.requireReadyLocked(coin)
	if err != nil {
		return 0, err
	}
	if rec.Rotation == math.MaxUint32 {
		return 0, ErrRotationExhausted
	}

	prev := rec
	rec.Rotation++
	m.wallet.Keys[coin] = rec

	if err := m.cfg.Store.Save(m.wallet); err != nil {
		m.wallet.Keys[coin] = prev
		monitoring.StoreWritesTotal.WithLabelValues("error").Inc()
		return 0, m.faultLocked(&StorageError{Op: "save", Err: err})
	}
	monitoring.StoreWritesTotal.WithLabelValues("ok").Inc()
	monitoring.RotationsTotal.WithLabelValues(string(coin), origin).Inc()

	if err := m.deriveLocked(coin); err != nil {
		return 0, m.faultLocked(err)
	}
	m.armed = nil

	log.Infof("%s rotation incremented to %d", coin.Name(), rec.Rotation)
	if !address.Scheme(m.wallet.Scheme).RotationChangesAddress() {
		log.Debugf("%s address unchanged under %v scheme", coin.Name(),
			address.Scheme(m.wallet.Scheme))
	}
	return rec.Rotation, nil
}

// NextAddress returns the address coin would have after one more rotation,
// without rotating.
func (m *Manager) NextAddress(coin model.Coin) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.requireReadyLocked(coin)
	if err != nil {
		return "", err
	}
	if rec.Rotation == math.MaxUint32 {
		return "", ErrRotationExhausted
	}
	return address.Derive(address.Scheme(m.wallet.Scheme), coin, rec.PrivateKey, rec.Rotation+1)
}

// ApplyRotationFromHost rotates coin on behalf of the host. The host only
// proposes: oldAddr must be the current address and newAddr must equal the
// on-device derivation for the next rotation index, otherwise nothing
// changes and ErrRotationMismatch is returned.
func (m *Manager) ApplyRotationFromHost(coin model.Coin, oldAddr, newAddr string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.requireReadyLocked(coin)
	if err != nil {
		return 0, err
	}
	if oldAddr != m.addresses[coin] {
		return 0, fmt.Errorf("%w: old address is not the current address", ErrRotationMismatch)
	}
	if !address.Valid(address.Scheme(m.wallet.Scheme), coin, newAddr) {
		return 0, fmt.Errorf("%w: new address is malformed", ErrRotationMismatch)
	}
	if rec.Rotation == math.MaxUint32 {
		return 0, ErrRotationExhausted
	}
	expected, err := address.Derive(address.Scheme(m.wallet.Scheme), coin, rec.PrivateKey, rec.Rotation+1)
	if err != nil {
		return 0, err
	}
	if newAddr != expected {
		return 0, fmt.Errorf("%w: new address differs", ErrRotationMismatch)
	}

	return m.rotateLocked(coin, "host")
}

// RecordBalance caches the display balance of coin. It is a hint shown on
// screen, not a ledger entry.
func (m *Manager) RecordBalance(coin model.Coin, amount float64) error {
	if !coin.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCoin, coin)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidBalance
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[coin] = amount
	return nil
}

// Balance returns the cached display balance of coin
func (m *Manager) Balance(coin model.Coin) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[coin]
}

// Sign signs txData with the key active for the current rotation of coin
func (m *Manager) Sign(ctx context.Context, coin model.Coin, txData []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.requireReadyLocked(coin)
	if err != nil {
		return nil, err
	}

	scheme := address.Scheme(m.wallet.Scheme)
	s, ok := m.cfg.Signers[coin]
	if !ok || !scheme.HoldsSecret(coin) {
		return nil, signer.ErrSigningUnavailable
	}

	key, err := address.RotationKey(scheme, coin, rec.PrivateKey, rec.Rotation)
	if err != nil {
		return nil, err
	}
	defer clear(key[:])

	return s.Sign(ctx, key, txData)
}

// Regenerate erases the stored wallet and creates a new one. This is the
// only operation that resets rotation indices to zero.
func (m *Manager) Regenerate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady && m.state != StateFaulted {
		return ErrNotReady
	}
	m.armed = nil

	if err := m.cfg.Store.Reset(); err != nil {
		return m.faultLocked(&StorageError{Op: "reset", Err: err})
	}
	if m.wallet != nil {
		m.wallet.Wipe()
		m.wallet = nil
	}
	m.balances = make(map[model.Coin]float64)

	if err := m.generateLocked(); err != nil {
		return m.faultLocked(err)
	}
	if err := m.deriveAllLocked(); err != nil {
		return m.faultLocked(err)
	}

	m.state = StateReady
	m.fault = nil
	monitoring.WalletReady.Set(1)
	log.Infof("Wallet regenerated")
	return nil
}

// Snapshot returns a copy of the UI visible state
func (m *Manager) Snapshot() model.WalletSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := model.WalletSnapshot{
		State:  m.state.String(),
		Scheme: m.cfg.Scheme.String(),
	}
	if m.fault != nil {
		snap.Fault = m.fault.Error()
	}
	if m.wallet == nil || m.state != StateReady {
		return snap
	}

	snap.Scheme = address.Scheme(m.wallet.Scheme).String()
	for _, coin := range model.Coins() {
		snap.Coins = append(snap.Coins, model.CoinSnapshot{
			Coin:     coin,
			Name:     coin.Name(),
			Address:  m.addresses[coin],
			Rotation: m.wallet.Keys[coin].Rotation,
			Balance:  m.balances[coin],
		})
	}
	return snap
}

// Close wipes key material from memory
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.wallet != nil {
		m.wallet.Wipe()
		m.wallet = nil
	}
	m.armed = nil
	m.state = StateUninitialized
	monitoring.WalletReady.Set(0)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
