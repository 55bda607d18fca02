package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/model"
)

const (
	// DefaultIdleTimeout is how long to wait for more response lines
	DefaultIdleTimeout = 500 * time.Millisecond

	dialTimeout = 5 * time.Second
)

// DeviceClient speaks the line protocol to a device over a TCP link
type DeviceClient struct {
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
	idle time.Duration
}

// Dial connects to the device link at addr ("host:port" or "tcp://host:port")
func Dial(ctx context.Context, addr string, idle time.Duration) (*DeviceClient, error) {
	addr = strings.TrimPrefix(addr, "tcp://")

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}
	return NewDeviceClient(conn, idle), nil
}

// NewDeviceClient wraps an established connection
func NewDeviceClient(conn net.Conn, idle time.Duration) *DeviceClient {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &DeviceClient{conn: conn, r: bufio.NewReader(conn), idle: idle}
}

// Close closes the connection
func (c *DeviceClient) Close() error {
	return c.conn.Close()
}

// Command sends one line and collects response lines until the device has
// been quiet for the idle timeout. Dropped lines yield no responses.
func (c *DeviceClient) Command(ctx context.Context, line string) ([]string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return nil, errors.New("command must be a single line")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var resp []string
	for {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(c.idle))
		text, err := c.r.ReadString('\n')
		if text = strings.TrimRight(text, "\r\n"); text != "" && err == nil {
			resp = append(resp, text)
			continue
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			if text != "" {
				return resp, fmt.Errorf("incomplete response line %q", text)
			}
			return resp, nil
		}
		if err != nil {
			return resp, fmt.Errorf("failed to read response: %w", err)
		}
	}
}

// Ping checks the device answers
func (c *DeviceClient) Ping(ctx context.Context) error {
	return ping(ctx, c)
}

// Addresses returns the device addresses in protocol order
func (c *DeviceClient) Addresses(ctx context.Context) ([]model.AddressEntry, error) {
	return addresses(ctx, c)
}

// Commander runs protocol lines. DeviceClient and BridgeClient implement it.
type Commander interface {
	Command(ctx context.Context, line string) ([]string, error)
}

func ping(ctx context.Context, c Commander) error {
	resp, err := c.Command(ctx, "PING")
	if err != nil {
		return err
	}
	if len(resp) != 1 || resp[0] != "PONG" {
		return fmt.Errorf("unexpected ping response %q", resp)
	}
	return nil
}

func addresses(ctx context.Context, c Commander) ([]model.AddressEntry, error) {
	resp, err := c.Command(ctx, "GET_ADDRESSES")
	if err != nil {
		return nil, err
	}
	return ParseAddresses(resp)
}

// ParseAddresses parses ADDRESS:<COIN>:<addr> lines
func ParseAddresses(lines []string) ([]model.AddressEntry, error) {
	entries := make([]model.AddressEntry, 0, len(lines))
	for _, line := range lines {
		rest, ok := strings.CutPrefix(line, "ADDRESS:")
		if !ok {
			return nil, fmt.Errorf("unexpected response %q", line)
		}
		coin, addr, ok := strings.Cut(rest, ":")
		if !ok || addr == "" {
			return nil, fmt.Errorf("malformed address line %q", line)
		}
		entries = append(entries, model.AddressEntry{Coin: model.Coin(coin), Address: addr})
	}
	return entries, nil
}
