// Package file delivers formatted walk results to an io.Writer: standard
// output by default, or a size-rotated file.
//
//	format/json → transport/file
//
// Each Send writes one JSON document followed by a newline, so repeated
// walks produce JSON Lines.
package file

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Transport delivers one formatted message per Send.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Config controls WriterTransport behaviour.
type Config struct {
	// Writer is the destination. nil defaults to os.Stdout. A Writer that is
	// also an io.Closer (other than stdout or stderr) is closed by Close.
	Writer io.Writer

	// Newline appended after each message. Default "\n".
	Newline string
}

// WriterTransport writes each message and a newline under a mutex, so
// concurrent senders never interleave.
type WriterTransport struct {
	mu     sync.Mutex
	w      io.Writer
	nl     []byte
	closer io.Closer
	logger *slog.Logger
}

// New constructs a WriterTransport.
func New(cfg Config, logger *slog.Logger) *WriterTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	nl := cfg.Newline
	if nl == "" {
		nl = "\n"
	}
	return &WriterTransport{
		w:      w,
		nl:     []byte(nl),
		closer: ownedCloser(w),
		logger: logger,
	}
}

// Send writes data followed by the newline.
func (t *WriterTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := writeLine(t.w, data, t.nl); err != nil {
		t.logger.Error("transport/file: write failed", "error", err.Error(), "bytes", len(data))
		return err
	}
	t.logger.Debug("transport/file: sent message", "bytes", len(data))
	return nil
}

// Close closes the destination when it is a file this transport may own.
func (t *WriterTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func writeLine(w io.Writer, data, nl []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("transport/file: write: %w", err)
	}
	if _, err := w.Write(nl); err != nil {
		return fmt.Errorf("transport/file: write newline: %w", err)
	}
	return nil
}

// ownedCloser returns w as an io.Closer unless it is a standard stream.
func ownedCloser(w io.Writer) io.Closer {
	if w == os.Stdout || w == os.Stderr {
		return nil
	}
	c, _ := w.(io.Closer)
	return c
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
