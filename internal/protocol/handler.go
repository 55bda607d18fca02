package protocol

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/AlexZinkM/duo-wallet/internal/common"
	"github.com/AlexZinkM/duo-wallet/internal/model"
	"github.com/AlexZinkM/duo-wallet/internal/monitoring"
	"github.com/AlexZinkM/duo-wallet/internal/screen"
	"github.com/AlexZinkM/duo-wallet/internal/signer"
	"github.com/AlexZinkM/duo-wallet/internal/wallet"
)

// Response lines and prefixes
const (
	RespPong             = "PONG"
	RespStatusReady      = "STATUS:READY"
	RespStatusError      = "STATUS:ERROR"
	RespRotationSuccess  = "ROTATION:SUCCESS"
	RespRotationRejected = "ROTATION:REJECTED"
	RespNotReady         = "ERROR:NOT_READY"

	prefixAddress     = "ADDRESS:"
	prefixNextAddress = "NEXT_ADDRESS:"
	prefixExhausted   = "ERROR:ROTATION_EXHAUSTED:"
	prefixSignature   = "SIGNATURE:"
	prefixUnavailable = "ERROR:SIGNING_UNAVAILABLE:"
	prefixSignFailed  = "ERROR:SIGNING_FAILED:"
)

// Wallet is what the protocol needs from the wallet manager. Nothing in it
// returns key material.
type Wallet interface {
	Snapshot() model.WalletSnapshot
	RecordBalance(coin model.Coin, amount float64) error
	NextAddress(coin model.Coin) (string, error)
	ApplyRotationFromHost(coin model.Coin, oldAddr, newAddr string) (uint32, error)
	Sign(ctx context.Context, coin model.Coin, txData []byte) ([]byte, error)
}

// Notifier is told when a coin's visible state changed
type Notifier interface {
	CoinChanged(coin model.Coin)
}

// ScreenSource reports the visible screen
type ScreenSource interface {
	Current() screen.ID
}

// Config holds the handler collaborators
type Config struct {
	Wallet   Wallet
	Notifier Notifier
	Screen   ScreenSource
	DeviceID string
	Touch    bool
}

// Handler executes command lines. It is not safe for concurrent use; the
// transport loop is its only caller.
type Handler struct {
	cfg Config
}

// NewHandler returns a handler
func NewHandler(cfg Config) *Handler {
	return &Handler{cfg: cfg}
}

// Handle executes one line and returns the response lines. Malformed
// lines produce no response.
func (h *Handler) Handle(ctx context.Context, line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	cmd, err := Parse(line)
	if err != nil {
		log.Debugf("Dropping line: %v", err)
		monitoring.CommandsTotal.WithLabelValues(commandLabel(err), "dropped").Inc()
		return nil
	}

	var (
		resp   []string
		result string
	)
	switch cmd.Name {
	case CmdBalance:
		resp, result = h.balance(cmd)
	case CmdGetAddresses:
		resp, result = h.addresses()
	case CmdPing:
		resp, result = []string{RespPong}, "ok"
	case CmdGetStatus:
		resp, result = h.status(), "ok"
	case CmdGetNextAddress:
		resp, result = h.nextAddress(cmd)
	case CmdRotateKey:
		resp, result = h.rotate(cmd)
	case CmdSignTx:
		resp, result = h.sign(ctx, cmd)
	}

	monitoring.CommandsTotal.WithLabelValues(cmd.Name, result).Inc()
	return resp
}

func commandLabel(err error) string {
	if errors.Is(err, ErrUnknownCommand) {
		return "unknown"
	}
	return "malformed"
}

func (h *Handler) balance(cmd Command) ([]string, string) {
	amount, err := common.ParseBalance(cmd.Args[0])
	if err != nil {
		log.Debugf("Dropping balance for %s: %v", cmd.Coin, err)
		return nil, "dropped"
	}
	if err := h.cfg.Wallet.RecordBalance(cmd.Coin, amount); err != nil {
		log.Debugf("Dropping balance for %s: %v", cmd.Coin, err)
		return nil, "dropped"
	}
	h.notify(cmd.Coin)

	return []string{fmt.Sprintf("[OK] %s balance updated: %s", cmd.Coin.Name(), common.FormatBalance(amount))}, "ok"
}

func (h *Handler) addresses() ([]string, string) {
	snap := h.cfg.Wallet.Snapshot()
	if len(snap.Coins) == 0 {
		return []string{RespNotReady}, "not_ready"
	}

	resp := make([]string, 0, len(snap.Coins))
	for _, c := range snap.Coins {
		resp = append(resp, prefixAddress+string(c.Coin)+":"+c.Address)
	}
	return resp, "ok"
}

func (h *Handler) status() []string {
	state := RespStatusReady
	if h.cfg.Wallet.Snapshot().State != wallet.StateReady.String() {
		state = RespStatusError
	}
	touch := "NO"
	if h.cfg.Touch {
		touch = "YES"
	}
	id := screen.Splash
	if h.cfg.Screen != nil {
		id = h.cfg.Screen.Current()
	}

	return []string{
		state,
		"DEVICE:" + h.cfg.DeviceID,
		"TOUCH:" + touch,
		fmt.Sprintf("SCREEN:%d", int(id)),
	}
}

// nextAddress answers the address the coin takes after one more rotation.
// A host needs it to propose ROTATE_KEY since the derivation is keyed.
func (h *Handler) nextAddress(cmd Command) ([]string, string) {
	next, err := h.cfg.Wallet.NextAddress(cmd.Coin)
	switch {
	case errors.Is(err, wallet.ErrNotReady):
		return []string{RespNotReady}, "not_ready"

	case errors.Is(err, wallet.ErrRotationExhausted):
		return []string{prefixExhausted + string(cmd.Coin)}, "exhausted"

	case err != nil:
		log.Warnf("Unable to derive next address for %s: %v", cmd.Coin, err)
		return nil, "error"
	}

	return []string{prefixNextAddress + string(cmd.Coin) + ":" + next}, "ok"
}

func (h *Handler) rotate(cmd Command) ([]string, string) {
	oldAddr, newAddr := cmd.Args[0], cmd.Args[1]
	log.Infof("Rotation request for %s: old=%s new=%s", cmd.Coin, truncate(oldAddr, 16), truncate(newAddr, 16))

	rotation, err := h.cfg.Wallet.ApplyRotationFromHost(cmd.Coin, oldAddr, newAddr)
	switch {
	case errors.Is(err, wallet.ErrNotReady):
		return []string{RespNotReady}, "not_ready"

	case err != nil:
		log.Warnf("Rejected rotation for %s: %v", cmd.Coin, err)
		return []string{RespRotationRejected}, "rejected"
	}

	log.Infof("%s address rotated (rotation %d)", cmd.Coin.Name(), rotation)
	h.notify(cmd.Coin)
	return []string{RespRotationSuccess}, "ok"
}

func (h *Handler) sign(ctx context.Context, cmd Command) ([]string, string) {
	txData := cmd.Args[0]
	log.Debugf("Signing request for %s (%d bytes)", cmd.Coin, len(txData))

	sig, err := h.cfg.Wallet.Sign(ctx, cmd.Coin, []byte(txData))
	switch {
	case errors.Is(err, wallet.ErrNotReady):
		return []string{RespNotReady}, "not_ready"

	case errors.Is(err, signer.ErrSigningUnavailable):
		return []string{prefixUnavailable + string(cmd.Coin)}, "unavailable"

	case err != nil:
		log.Warnf("Signing failed for %s: %v", cmd.Coin, err)
		return []string{prefixSignFailed + string(cmd.Coin)}, "error"
	}

	return []string{prefixSignature + hex.EncodeToString(sig)}, "ok"
}

func (h *Handler) notify(coin model.Coin) {
	if h.cfg.Notifier != nil {
		h.cfg.Notifier.CoinChanged(coin)
	}
}
