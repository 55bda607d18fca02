package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlexZinkM/duo-wallet/internal/model"
)

// ErrRotationRejected is returned when the device refuses a rotation
var ErrRotationRejected = errors.New("rotation rejected by device")

// NextAddress asks the device for the address coin takes after one more
// rotation. Nothing changes on the device.
func NextAddress(ctx context.Context, c Commander, coin model.Coin) (string, error) {
	resp, err := c.Command(ctx, "GET_NEXT_ADDRESS:"+string(coin))
	if err != nil {
		return "", err
	}
	if len(resp) != 1 {
		return "", fmt.Errorf("unexpected next address response %q", resp)
	}
	addr, ok := strings.CutPrefix(resp[0], "NEXT_ADDRESS:"+string(coin)+":")
	if !ok || addr == "" {
		return "", fmt.Errorf("unexpected next address response %q", resp[0])
	}
	return addr, nil
}

// Rotate proposes moving coin from oldAddr to newAddr
func Rotate(ctx context.Context, c Commander, coin model.Coin, oldAddr, newAddr string) error {
	resp, err := c.Command(ctx, fmt.Sprintf("ROTATE_KEY:%s:%s:%s", coin, oldAddr, newAddr))
	if err != nil {
		return err
	}
	switch {
	case len(resp) == 1 && resp[0] == "ROTATION:SUCCESS":
		return nil
	case len(resp) == 1 && resp[0] == "ROTATION:REJECTED":
		return ErrRotationRejected
	default:
		return fmt.Errorf("unexpected rotation response %q", resp)
	}
}

// RotateNext reads the current and next address of coin from the device
// and rotates to the next one. It returns both addresses.
func RotateNext(ctx context.Context, c Commander, coin model.Coin) (string, string, error) {
	entries, err := addresses(ctx, c)
	if err != nil {
		return "", "", err
	}
	var current string
	for _, e := range entries {
		if e.Coin == coin {
			current = e.Address
		}
	}
	if current == "" {
		return "", "", fmt.Errorf("device reported no %s address", coin)
	}

	next, err := NextAddress(ctx, c, coin)
	if err != nil {
		return "", "", err
	}
	if err := Rotate(ctx, c, coin, current, next); err != nil {
		return "", "", err
	}
	return current, next, nil
}
