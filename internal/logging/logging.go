// Package logging builds the btclog backend shared by every subsystem.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/btcsuite/btclog"
)

// Subsystem tags
const (
	SubsystemDaemon    = "WLTD"
	SubsystemWallet    = "WALT"
	SubsystemKeyStore  = "KSTR"
	SubsystemProtocol  = "PROT"
	SubsystemTransport = "LINK"
	SubsystemScreen    = "SCRN"
	SubsystemHTTP      = "HTTP"
)

// Root owns the backend and every sub-logger created from it
type Root struct {
	backend *btclog.Backend
	writer  *RotatingLogWriter
	level   btclog.Level
	loggers map[string]btclog.Logger
}

// New creates a backend writing to stderr and, when logFile is not empty,
// to a rotating file.
func New(logFile string, maxSizeKB, maxFiles int) (*Root, error) {
	writer := NewRotatingLogWriter()
	var out io.Writer = os.Stderr
	if logFile != "" {
		if err := writer.InitLogRotator(logFile, maxSizeKB, maxFiles); err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stderr, writer)
	}

	return &Root{
		backend: btclog.NewBackend(out),
		writer:  writer,
		level:   btclog.LevelInfo,
		loggers: make(map[string]btclog.Logger),
	}, nil
}

// NewWithWriter creates a backend writing only to w
func NewWithWriter(w io.Writer) *Root {
	return &Root{
		backend: btclog.NewBackend(w),
		writer:  NewRotatingLogWriter(),
		level:   btclog.LevelInfo,
		loggers: make(map[string]btclog.Logger),
	}
}

// Logger returns the sub-logger for tag, creating it on first use
func (r *Root) Logger(tag string) btclog.Logger {
	if l, ok := r.loggers[tag]; ok {
		return l
	}
	l := r.backend.Logger(tag)
	l.SetLevel(r.level)
	r.loggers[tag] = l
	return l
}

// SetLevel applies level to every sub-logger created so far and to the ones
// created later through Logger.
func (r *Root) SetLevel(level string) error {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("invalid log level %q", level)
	}
	r.level = lvl
	tags := make([]string, 0, len(r.loggers))
	for tag := range r.loggers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		r.loggers[tag].SetLevel(lvl)
	}
	return nil
}

// Close flushes and closes the rotating file, if any
func (r *Root) Close() error {
	return r.writer.Close()
}
