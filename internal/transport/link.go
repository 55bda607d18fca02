package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
)

// ErrLinkClosed is returned by Accept after Close
var ErrLinkClosed = errors.New("link closed")

// Link hands out host connections, one at a time
type Link interface {
	// Accept blocks until a host connects
	Accept(ctx context.Context) (io.ReadWriteCloser, error)
	Close() error
}

// Open opens a link from its config value: "stdio", "tcp://host:port", or
// the path of a serial device.
func Open(target string) (Link, error) {
	switch {
	case target == "stdio":
		return newSingleLink(stdio{}), nil

	case strings.HasPrefix(target, "tcp://"):
		addr := strings.TrimPrefix(target, "tcp://")
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		log.Infof("Waiting for host on tcp://%s", ln.Addr())
		return &TCPLink{ln: ln}, nil

	case target == "":
		return nil, errors.New("link not configured")
	}

	// The serial line is expected to be configured (baud rate, raw mode)
	// before the daemon starts.
	f, err := os.OpenFile(target, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", target, err)
	}
	return newSingleLink(f), nil
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }

// singleLink is a link with exactly one connection, like a serial port
type singleLink struct {
	mu     sync.Mutex
	conn   io.ReadWriteCloser
	closed chan struct{}
	once   sync.Once
}

func newSingleLink(conn io.ReadWriteCloser) *singleLink {
	return &singleLink{conn: conn, closed: make(chan struct{})}
}

func (s *singleLink) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		return conn, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, ErrLinkClosed
	}
}

func (s *singleLink) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// TCPLink accepts hosts on a TCP listener
type TCPLink struct {
	ln net.Listener
}

// Addr returns the listening address
func (t *TCPLink) Addr() net.Addr {
	return t.ln.Addr()
}

// Accept waits for the next host
func (t *TCPLink) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	conn, err := t.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrLinkClosed
		}
		return nil, err
	}
	log.Infof("Host connected from %s", conn.RemoteAddr())
	return conn, nil
}

// Close stops listening
func (t *TCPLink) Close() error {
	return t.ln.Close()
}
