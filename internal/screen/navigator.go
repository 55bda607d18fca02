package screen

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AlexZinkM/duo-wallet/internal/common"
	"github.com/AlexZinkM/duo-wallet/internal/model"
	"github.com/AlexZinkM/duo-wallet/internal/wallet"
)

// ErrInvalidTransition is returned for input that does nothing on the
// current screen
var ErrInvalidTransition = errors.New("invalid screen transition")

// Action is a kind of local user input
type Action int

const (
	// ActionSelect opens Event.Target from the current screen
	ActionSelect Action = iota

	// ActionBack returns to the parent screen
	ActionBack

	// ActionButton is a short press: next menu item, or back to the menu
	ActionButton

	// ActionButtonHold is a long press: open the highlighted menu item
	ActionButtonHold

	// ActionRequestExport shows the export warning for Event.Coin
	ActionRequestExport

	// ActionConfirmExport acknowledges the warning and shows the key
	ActionConfirmExport

	// ActionNextKey rotates the exported coin
	ActionNextKey

	// ActionResetWallet replaces the wallet with a new one
	ActionResetWallet
)

// Event is one local input
type Event struct {
	Action Action
	Target ID
	Coin   model.Coin
}

// Wallet is what the UI needs from the wallet manager
type Wallet interface {
	Snapshot() model.WalletSnapshot
	Rotate(coin model.Coin) (uint32, error)
	ArmExport(coin model.Coin) (*wallet.ExportTicket, error)
	DisarmExport()
	ExportPrivateKey(ticket *wallet.ExportTicket) (model.ExportPayload, error)
	Regenerate() error
}

// Config holds the navigator collaborators
type Config struct {
	Wallet   Wallet
	Display  Display
	QR       QREncoder
	DeviceID string
	Touch    bool
}

// Navigator tracks the visible screen and applies local input to it
type Navigator struct {
	cfg Config

	mu         sync.Mutex
	current    ID
	selection  int
	exportCoin model.Coin
	ticket     *wallet.ExportTicket
}

// NewNavigator returns a navigator showing the splash screen
func NewNavigator(cfg Config) *Navigator {
	if cfg.QR == nil {
		cfg.QR = NewQREncoder()
	}
	return &Navigator{cfg: cfg, current: Splash}
}

// Current returns the visible screen
func (n *Navigator) Current() ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Start draws the splash screen and then the main menu
func (n *Navigator) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.renderLocked(); err != nil {
		return err
	}
	n.current = Menu
	return n.renderLocked()
}

// Handle applies ev to the current screen and redraws
func (n *Navigator) Handle(ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	from := n.current
	var err error
	switch ev.Action {
	case ActionSelect:
		err = n.selectLocked(ev.Target)
	case ActionBack:
		n.goLocked(n.parentLocked())
	case ActionButton:
		if n.current == Menu {
			n.selection = (n.selection + 1) % len(menuItems)
		} else {
			n.goLocked(Menu)
		}
	case ActionButtonHold:
		if n.current != Menu {
			return ErrInvalidTransition
		}
		n.goLocked(menuItems[n.selection])
	case ActionRequestExport:
		err = n.requestExportLocked(ev.Coin)
	case ActionConfirmExport:
		return n.confirmExportLocked()
	case ActionNextKey:
		err = n.nextKeyLocked()
	case ActionResetWallet:
		err = n.resetLocked()
	default:
		err = fmt.Errorf("%w: unknown action %d", ErrInvalidTransition, ev.Action)
	}
	if err != nil {
		return err
	}

	if from != n.current {
		log.Debugf("Screen %v -> %v", from, n.current)
	}
	return n.renderLocked()
}

// CoinChanged redraws the visible screen when it shows coin. A host
// rotation while the export path is open closes it.
func (n *Navigator) CoinChanged(coin model.Coin) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if (n.current == Export || n.current == ExportWarning) && n.exportCoin == coin {
		n.goLocked(byCoin[coin].home)
	}
	if c, ok := coinOf(n.current); !ok || c != coin {
		return
	}
	if err := n.renderLocked(); err != nil {
		log.Errorf("Unable to redraw %v: %v", n.current, err)
	}
}

func (n *Navigator) selectLocked(target ID) error {
	if !canSelect(n.current, target) {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, n.current, target)
	}
	n.goLocked(target)
	return nil
}

func (n *Navigator) parentLocked() ID {
	switch n.current {
	case Export, ExportWarning:
		return byCoin[n.exportCoin].home
	case Splash, Menu, YadaCoin, Salvium, Settings:
		return Menu
	}
	if coin, ok := coinOf(n.current); ok {
		return byCoin[coin].home
	}
	return Menu
}

// goLocked moves to id. Leaving the export path voids the armed ticket.
func (n *Navigator) goLocked(id ID) {
	if id != Export && id != ExportWarning && n.exportCoin != "" {
		n.cfg.Wallet.DisarmExport()
		n.ticket = nil
		n.exportCoin = ""
	}
	if id == Menu && n.current != Menu {
		n.selection = 0
	}
	n.current = id
}

func (n *Navigator) requestExportLocked(coin model.Coin) error {
	screens, ok := byCoin[coin]
	if !ok || n.current != screens.home {
		return fmt.Errorf("%w: export %s from %v", ErrInvalidTransition, coin, n.current)
	}

	ticket, err := n.cfg.Wallet.ArmExport(coin)
	if err != nil {
		return err
	}
	n.ticket = ticket
	n.exportCoin = coin
	n.current = ExportWarning
	return nil
}

// confirmExportLocked is the only path to the export screen and it starts
// from the warning screen with a live ticket.
func (n *Navigator) confirmExportLocked() error {
	if n.current != ExportWarning || n.ticket == nil {
		return fmt.Errorf("%w: confirm export from %v", ErrInvalidTransition, n.current)
	}

	ticket := n.ticket
	n.ticket = nil
	payload, err := n.cfg.Wallet.ExportPrivateKey(ticket)
	if err != nil {
		n.goLocked(byCoin[n.exportCoin].home)
		if rerr := n.renderLocked(); rerr != nil {
			log.Errorf("Unable to redraw %v: %v", n.current, rerr)
		}
		return err
	}
	defer payload.Wipe()

	encoded := []byte(payload.Encode())
	defer clear(encoded)

	matrix, err := n.cfg.QR.Encode(encoded)
	if err != nil {
		n.goLocked(byCoin[n.exportCoin].home)
		return err
	}

	n.current = Export
	log.Infof("Showing %s export screen", n.exportCoin.Name())
	return n.cfg.Display.Render(Frame{
		Screen: Export,
		Title:  n.exportCoin.Name() + " Private Key",
		Lines: []string{
			fmt.Sprintf("Rotation: %d", payload.Rotation),
			"Scan to import. Keep it secret.",
			"[Next key]  [Back]",
		},
		QR:      matrix,
		Warning: true,
	})
}

// nextKeyLocked rotates the exported coin and returns to the warning, so
// the new key is only shown after a fresh acknowledgement.
func (n *Navigator) nextKeyLocked() error {
	if n.current != Export {
		return fmt.Errorf("%w: next key from %v", ErrInvalidTransition, n.current)
	}

	coin := n.exportCoin
	if _, err := n.cfg.Wallet.Rotate(coin); err != nil {
		n.goLocked(byCoin[coin].home)
		return err
	}

	ticket, err := n.cfg.Wallet.ArmExport(coin)
	if err != nil {
		n.goLocked(byCoin[coin].home)
		return err
	}
	n.ticket = ticket
	n.current = ExportWarning
	return nil
}

func (n *Navigator) resetLocked() error {
	if n.current != Settings {
		return fmt.Errorf("%w: reset from %v", ErrInvalidTransition, n.current)
	}
	if err := n.cfg.Wallet.Regenerate(); err != nil {
		return err
	}
	n.goLocked(Menu)
	return nil
}

func (n *Navigator) renderLocked() error {
	frame, err := n.frameLocked()
	if err != nil {
		return err
	}
	return n.cfg.Display.Render(frame)
}

func (n *Navigator) frameLocked() (Frame, error) {
	snap := n.cfg.Wallet.Snapshot()
	if snap.Fault != "" && n.current != Splash {
		return Frame{
			Screen:  n.current,
			Title:   "WALLET ERROR",
			Lines:   []string{snap.Fault, "Keys are unavailable."},
			Warning: true,
		}, nil
	}

	switch n.current {
	case Splash:
		return Frame{Screen: Splash, Title: "Dual Wallet", Lines: []string{"YadaCoin + Salvium"}}, nil

	case Menu:
		lines := make([]string, len(menuItems))
		for i, id := range menuItems {
			marker := "  "
			if i == n.selection {
				marker = "> "
			}
			lines[i] = marker + menuTitle(id)
		}
		return Frame{Screen: Menu, Title: "Main Menu", Lines: lines}, nil

	case Settings:
		touch := "NO"
		if n.cfg.Touch {
			touch = "YES"
		}
		return Frame{Screen: Settings, Title: "Settings", Lines: []string{
			"Device: " + n.cfg.DeviceID,
			"Touch: " + touch,
			"Derivation: " + snap.Scheme,
			"[Reset wallet]",
		}}, nil

	case ExportWarning:
		name := n.exportCoin.Name()
		return Frame{Screen: ExportWarning, Title: "WARNING", Warning: true, Lines: []string{
			"The next screen shows your " + name,
			"private key. Anyone who sees it",
			"can spend your funds.",
			"[Show key]  [Back]",
		}}, nil
	}

	coin, ok := coinOf(n.current)
	if !ok {
		return Frame{}, fmt.Errorf("no frame for %v", n.current)
	}
	cs, ok := snap.Coin(coin)
	if !ok {
		return Frame{Screen: n.current, Title: coin.Name(), Lines: []string{"Wallet not ready"}}, nil
	}

	screens := byCoin[coin]
	switch n.current {
	case screens.receive:
		matrix, err := n.cfg.QR.Encode([]byte(cs.Address))
		if err != nil {
			return Frame{}, err
		}
		return Frame{Screen: n.current, Title: coin.Name() + " Receive", Lines: wrap(cs.Address, consoleWidth-2), QR: matrix}, nil

	case screens.send:
		return Frame{Screen: n.current, Title: coin.Name() + " Send", Lines: []string{
			"Build the transaction in the",
			"companion app, then approve",
			"signing here.",
		}}, nil
	}

	return Frame{Screen: n.current, Title: coin.Name() + " Wallet", Lines: []string{
		"Balance: " + common.FormatBalance(cs.Balance),
		fmt.Sprintf("Rotation: %d", cs.Rotation),
		truncate(cs.Address, consoleWidth-2),
		"[Receive]  [Send]  [Export]",
	}}, nil
}

func menuTitle(id ID) string {
	switch id {
	case YadaCoin:
		return "YadaCoin Wallet"
	case Salvium:
		return "Salvium Wallet"
	case Settings:
		return "Settings"
	}
	return id.String()
}

func wrap(s string, width int) []string {
	var lines []string
	for len(s) > width {
		lines = append(lines, s[:width])
		s = s[width:]
	}
	if s != "" {
		lines = append(lines, s)
	}
	return lines
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return strings.TrimSpace(s[:width-3]) + "..."
}
