// Package transport moves command lines between the host link and the
// protocol handler.
//
// Loop.Run is the only goroutine that executes commands and UI input.
// Readers and the HTTP bridge hand their work to it through channels, so
// the wallet sees one operation at a time, in arrival order.
package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/screen"
)

// MaxLineLength is the longest accepted command line, newline included
const MaxLineLength = 64 * 1024

// writeTimeout bounds how long a host that stopped reading can stall the loop
const writeTimeout = 5 * time.Second

// LineHandler executes one command line
type LineHandler interface {
	Handle(ctx context.Context, line string) []string
}

// EventHandler applies local UI input
type EventHandler interface {
	Handle(ev screen.Event) error
}

type request struct {
	line string

	// Exactly one of w and reply is set
	w     io.Writer
	reply chan []string
}

// Loop serializes host commands and UI input
type Loop struct {
	lines  LineHandler
	events EventHandler

	requests chan request
	inputs   chan screen.Event
}

// NewLoop returns a loop dispatching to lines and events
func NewLoop(lines LineHandler, events EventHandler) *Loop {
	return &Loop{
		lines:    lines,
		events:   events,
		requests: make(chan request),
		inputs:   make(chan screen.Event, 16),
	}
}

// Run dispatches until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	log.Debugf("Dispatch loop started")
	defer log.Debugf("Dispatch loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil

		case req := <-l.requests:
			resp := l.lines.Handle(ctx, req.line)
			if req.reply != nil {
				req.reply <- resp
				continue
			}
			if err := writeLines(req.w, resp); err != nil {
				log.Warnf("Unable to write response: %v", err)
			}

		case ev := <-l.inputs:
			if l.events == nil {
				continue
			}
			if err := l.events.Handle(ev); err != nil {
				if errors.Is(err, screen.ErrInvalidTransition) {
					log.Debugf("Ignoring input: %v", err)
				} else {
					log.Errorf("Input failed: %v", err)
				}
			}
		}
	}
}

// Submit runs line through the loop and returns its response lines
func (l *Loop) Submit(ctx context.Context, line string) ([]string, error) {
	if len(line) >= MaxLineLength {
		return nil, errors.New("line too long")
	}

	reply := make(chan []string, 1)
	select {
	case l.requests <- request{line: line, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Input queues local UI input
func (l *Loop) Input(ctx context.Context, ev screen.Event) error {
	select {
	case l.inputs <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve accepts hosts from link and feeds their lines to the loop. A new
// host replaces the previous one, like re-plugging a cable.
func (l *Loop) Serve(ctx context.Context, link Link) error {
	stop := context.AfterFunc(ctx, func() { _ = link.Close() })
	defer stop()

	var current io.Closer
	defer func() {
		if current != nil {
			_ = current.Close()
		}
	}()

	for {
		conn, err := link.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrLinkClosed) {
				return nil
			}
			return err
		}

		if current != nil {
			log.Infof("New host connected, dropping previous connection")
			_ = current.Close()
		}
		current = conn
		go l.readLines(ctx, conn)
	}
}

// readLines submits every complete line read from conn. Responses are
// written back to conn by the loop.
func (l *Loop) readLines(ctx context.Context, conn io.ReadWriter) {
	r := bufio.NewReaderSize(conn, MaxLineLength)
	for {
		raw, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			log.Warnf("Dropping line longer than %d bytes", MaxLineLength)
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = r.ReadSlice('\n')
			}
			if err != nil {
				l.readDone(err)
				return
			}
			continue
		}

		if line := strings.TrimSpace(string(raw)); line != "" {
			select {
			case l.requests <- request{line: line, w: conn}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			l.readDone(err)
			return
		}
	}
}

func (l *Loop) readDone(err error) {
	if errors.Is(err, io.EOF) {
		log.Infof("Host disconnected")
		return
	}
	log.Debugf("Host connection closed: %v", err)
}

func writeLines(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	if d, ok := w.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = d.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
