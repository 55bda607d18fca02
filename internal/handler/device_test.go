package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AlexZinkM/duo-wallet/internal/address"
	"github.com/AlexZinkM/duo-wallet/internal/keystore"
	"github.com/AlexZinkM/duo-wallet/internal/model"
	"github.com/AlexZinkM/duo-wallet/internal/screen"
	"github.com/AlexZinkM/duo-wallet/internal/wallet"

	"github.com/stretchr/testify/require"
)

type fakeLoop struct {
	lines []string
	resp  []string
	err   error
}

func (f *fakeLoop) Submit(_ context.Context, line string) ([]string, error) {
	f.lines = append(f.lines, line)
	return f.resp, f.err
}

type fixedScreen screen.ID

func (f fixedScreen) Current() screen.ID { return screen.ID(f) }

func newTestHandler(t *testing.T, loop *fakeLoop, ready bool) *DeviceHandler {
	t.Helper()

	m := wallet.NewManager(wallet.Config{
		Store:  keystore.New(keystore.NewMemRegion()),
		Scheme: address.SchemeRotating,
	})
	if ready {
		require.NoError(t, m.Initialize())
	}
	return NewDeviceHandler(loop, m, fixedScreen(screen.Salvium), "ESP32-2432S028", false)
}

func TestCommand(t *testing.T) {
	loop := &fakeLoop{resp: []string{"PONG"}}
	h := newTestHandler(t, loop, true)

	req := httptest.NewRequest(http.MethodPost, "/device/command", strings.NewReader(`{"line":"PING"}`))
	rec := httptest.NewRecorder()
	h.Command(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.CommandResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, []string{"PONG"}, resp.Responses)
	require.Equal(t, []string{"PING"}, loop.lines)
}

func TestCommandDroppedLine(t *testing.T) {
	h := newTestHandler(t, &fakeLoop{}, true)

	rec := httptest.NewRecorder()
	h.Command(rec, httptest.NewRequest(http.MethodPost, "/device/command", strings.NewReader(`{"line":"GARBAGE:::"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"responses":[]}`, rec.Body.String())
}

func TestCommandRejectsBadRequests(t *testing.T) {
	loop := &fakeLoop{}
	h := newTestHandler(t, loop, true)

	for _, body := range []string{`not json`, `{"line":""}`, `{"line":"PING\nPING"}`} {
		rec := httptest.NewRecorder()
		h.Command(rec, httptest.NewRequest(http.MethodPost, "/device/command", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	require.Empty(t, loop.lines)

	rec := httptest.NewRecorder()
	h.Command(rec, httptest.NewRequest(http.MethodGet, "/device/command", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCommandLoopUnavailable(t *testing.T) {
	h := newTestHandler(t, &fakeLoop{err: errors.New("stopped")}, true)

	rec := httptest.NewRecorder()
	h.Command(rec, httptest.NewRequest(http.MethodPost, "/device/command", strings.NewReader(`{"line":"PING"}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "device_busy", resp.Code)
}

func TestAddresses(t *testing.T) {
	h := newTestHandler(t, &fakeLoop{}, true)

	rec := httptest.NewRecorder()
	h.Addresses(rec, httptest.NewRequest(http.MethodGet, "/device/addresses", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.AddressesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Addresses, 2)
	require.Equal(t, model.CoinYadaCoin, resp.Addresses[0].Coin)
	require.True(t, strings.HasPrefix(resp.Addresses[1].Address, "SC1"))

	png, err := base64.StdEncoding.DecodeString(resp.Addresses[0].QR)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestAddressesNotReady(t *testing.T) {
	h := newTestHandler(t, &fakeLoop{}, false)

	rec := httptest.NewRecorder()
	h.Addresses(rec, httptest.NewRequest(http.MethodGet, "/device/addresses", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatus(t *testing.T) {
	h := newTestHandler(t, &fakeLoop{}, true)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/device/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Ready)
	require.Equal(t, "ESP32-2432S028", resp.DeviceID)
	require.Equal(t, int(screen.Salvium), resp.Screen)
	require.Len(t, resp.Wallet.Coins, 2)
	require.Equal(t, "rotating", resp.Wallet.Scheme)
}
