package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/model"
	"github.com/AlexZinkM/duo-wallet/internal/screen"
	"github.com/AlexZinkM/duo-wallet/internal/wallet"
)

// maxBodyBytes bounds POST /device/command bodies
const maxBodyBytes = 128 * 1024

// qrSize is the edge of address QR images in pixels
const qrSize = 256

// Submitter runs a command line through the device loop
type Submitter interface {
	Submit(ctx context.Context, line string) ([]string, error)
}

// WalletReader exposes the read-only wallet state
type WalletReader interface {
	Snapshot() model.WalletSnapshot
}

// ScreenReader reports the visible screen
type ScreenReader interface {
	Current() screen.ID
}

// DeviceHandler serves the HTTP bridge to the device
type DeviceHandler struct {
	loop     Submitter
	wallet   WalletReader
	screen   ScreenReader
	deviceID string
	touch    bool
	timeout  time.Duration
}

// NewDeviceHandler creates a DeviceHandler
func NewDeviceHandler(loop Submitter, w WalletReader, s ScreenReader, deviceID string, touch bool) *DeviceHandler {
	return &DeviceHandler{
		loop:     loop,
		wallet:   w,
		screen:   s,
		deviceID: deviceID,
		touch:    touch,
		timeout:  10 * time.Second,
	}
}

// Command handles POST /device/command
// @Summary      Run a protocol command
// @Description  Runs one line of the host protocol (PING, GET_STATUS, GET_ADDRESSES, GET_NEXT_ADDRESS, BALANCE, ROTATE_KEY, SIGN_TX) through the device loop. Malformed lines return no responses.
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        request  body      model.CommandRequest  true  "Command line"
// @Success      200      {object}  model.CommandResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      503      {object}  model.ErrorResponse
// @Router       /device/command [post]
func (h *DeviceHandler) Command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Line) == "" || strings.ContainsAny(req.Line, "\r\n") {
		writeError(w, http.StatusBadRequest, "invalid_line", errors.New("line must be a single non-empty line"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.loop.Submit(ctx, req.Line)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "device_busy", err)
		return
	}
	if resp == nil {
		resp = []string{}
	}

	writeJSON(w, http.StatusOK, model.CommandResponse{Responses: resp})
}

// Addresses handles GET /device/addresses
// @Summary      Get addresses
// @Description  Returns the current address of every coin with a base64 PNG QR code
// @Tags         device
// @Produce      json
// @Success      200  {object}  model.AddressesResponse
// @Failure      503  {object}  model.ErrorResponse
// @Router       /device/addresses [get]
func (h *DeviceHandler) Addresses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	snap := h.wallet.Snapshot()
	if len(snap.Coins) == 0 {
		writeError(w, http.StatusServiceUnavailable, "not_ready", wallet.ErrNotReady)
		return
	}

	resp := model.AddressesResponse{Addresses: make([]model.AddressEntry, 0, len(snap.Coins))}
	for _, c := range snap.Coins {
		png, err := screen.PNG(c.Address, qrSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "qr_failed", err)
			return
		}
		resp.Addresses = append(resp.Addresses, model.AddressEntry{
			Coin:     c.Coin,
			Address:  c.Address,
			Rotation: c.Rotation,
			QR:       base64.StdEncoding.EncodeToString(png),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /device/status
// @Summary      Get device status
// @Description  Returns readiness, device id, visible screen and the wallet snapshot
// @Tags         device
// @Produce      json
// @Success      200  {object}  model.StatusResponse
// @Router       /device/status [get]
func (h *DeviceHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	snap := h.wallet.Snapshot()
	writeJSON(w, http.StatusOK, model.StatusResponse{
		Ready:    snap.State == wallet.StateReady.String(),
		DeviceID: h.deviceID,
		Touch:    h.touch,
		Screen:   int(h.screen.Current()),
		Wallet:   snap,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("Unable to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	log.Debugf("Request failed (%s): %v", code, err)
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: code})
}
