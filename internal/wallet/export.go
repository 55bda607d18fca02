package wallet

import (
	"fmt"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/address"
	"github.com/AlexZinkM/duo-wallet/internal/model"
	"github.com/AlexZinkM/duo-wallet/internal/monitoring"
)

// ExportTicket is issued when the export warning is put on screen. It is
// the only way to reach ExportPrivateKey and can be redeemed once.
type ExportTicket struct {
	coin     model.Coin
	rotation uint32
	expires  time.Time
}

// Coin returns the coin the warning was shown for
func (t *ExportTicket) Coin() model.Coin {
	return t.coin
}

// ArmExport issues a ticket for coin. Any previously armed ticket is void.
// Call it while the export warning is the screen in front of the user.
func (m *Manager) ArmExport(coin model.Coin) (*ExportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.requireReadyLocked(coin)
	if err != nil {
		return nil, err
	}
	if !address.Scheme(m.wallet.Scheme).HoldsSecret(coin) {
		return nil, fmt.Errorf("%w: %s", ErrNoSecret, coin)
	}

	m.armed = &ExportTicket{
		coin:     coin,
		rotation: rec.Rotation,
		expires:  m.cfg.Now().Add(m.cfg.ExportTimeout),
	}
	log.Debugf("Export warning armed for %s", coin.Name())
	return m.armed, nil
}

// DisarmExport voids the armed ticket. The UI calls it on every navigation
// away from the warning screen.
func (m *Manager) DisarmExport() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = nil
}

// ExportPrivateKey redeems ticket and returns the export payload of its coin.
// It fails unless ticket is the armed one, has not expired, and the coin has
// not rotated since the warning was shown.
func (m *Manager) ExportPrivateKey(ticket *ExportTicket) (model.ExportPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ticket == nil || ticket != m.armed {
		return model.ExportPayload{}, ErrExportNotArmed
	}
	m.armed = nil

	if m.cfg.Now().After(ticket.expires) {
		return model.ExportPayload{}, ErrExportExpired
	}

	rec, err := m.requireReadyLocked(ticket.coin)
	if err != nil {
		return model.ExportPayload{}, err
	}
	if rec.Rotation != ticket.rotation {
		return model.ExportPayload{}, fmt.Errorf("%w: rotation changed", ErrExportNotArmed)
	}

	monitoring.ExportsTotal.WithLabelValues(string(ticket.coin)).Inc()
	log.Warnf("Private key of %s exported for display (rotation %d)", ticket.coin.Name(), rec.Rotation)
	return model.NewExportPayload(ticket.coin, rec), nil
}
