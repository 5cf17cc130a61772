package file

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tidwall/gjson"
)

// SplitConfig controls SplitWriterTransport behaviour.
type SplitConfig struct {
	// ResultWriter receives walks whose metadata.status is "success".
	// nil defaults to os.Stdout.
	ResultWriter io.Writer

	// FailureWriter receives every other walk ("partial", "error", or a
	// document without a status). nil defaults to os.Stderr.
	FailureWriter io.Writer

	// Newline appended after each message. Default "\n".
	Newline string
}

// SplitWriterTransport routes each formatted walk by its metadata.status, so
// a long-running stpwalk keeps clean results apart from failed walks. It is
// safe for concurrent use.
type SplitWriterTransport struct {
	resultMu  sync.Mutex
	failureMu sync.Mutex
	resultW   io.Writer
	failureW  io.Writer
	nl        []byte
	closers   []io.Closer
	logger    *slog.Logger
}

// NewSplit constructs a SplitWriterTransport.
func NewSplit(cfg SplitConfig, logger *slog.Logger) *SplitWriterTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	rw := cfg.ResultWriter
	if rw == nil {
		rw = os.Stdout
	}
	fw := cfg.FailureWriter
	if fw == nil {
		fw = os.Stderr
	}
	nl := cfg.Newline
	if nl == "" {
		nl = "\n"
	}

	st := &SplitWriterTransport{resultW: rw, failureW: fw, nl: []byte(nl), logger: logger}
	for _, w := range []io.Writer{rw, fw} {
		if c := ownedCloser(w); c != nil {
			st.closers = append(st.closers, c)
		}
	}
	return st
}

// Send writes data to the result or failure writer.
func (st *SplitWriterTransport) Send(data []byte) error {
	status := gjson.GetBytes(data, "metadata.status").String()
	if status == "success" {
		return st.write(&st.resultMu, st.resultW, data, "result")
	}
	return st.write(&st.failureMu, st.failureW, data, "failure")
}

// Close closes owned writers and returns the first error.
func (st *SplitWriterTransport) Close() error {
	var firstErr error
	for _, c := range st.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	st.closers = nil
	return firstErr
}

func (st *SplitWriterTransport) write(mu *sync.Mutex, w io.Writer, data []byte, kind string) error {
	mu.Lock()
	defer mu.Unlock()
	if err := writeLine(w, data, st.nl); err != nil {
		st.logger.Error("transport/file: write failed", "kind", kind, "error", err.Error(), "bytes", len(data))
		return err
	}
	st.logger.Debug("transport/file: sent message", "kind", kind, "bytes", len(data))
	return nil
}
