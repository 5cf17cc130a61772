package file_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vpbank/stp_agent/transport/file"
)

func newBuf(t *testing.T) (*bytes.Buffer, *file.WriterTransport) {
	t.Helper()
	var buf bytes.Buffer
	return &buf, file.New(file.Config{Writer: &buf}, nil)
}

func TestSend_WritesJSONLines(t *testing.T) {
	buf, tr := newBuf(t)
	msgs := []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}
	for _, m := range msgs {
		if err := tr.Send([]byte(m)); err != nil {
			t.Fatalf("Send(%q): %v", m, err)
		}
	}

	want := strings.Join(msgs, "\n") + "\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestSend_CustomNewline(t *testing.T) {
	var buf bytes.Buffer
	tr := file.New(file.Config{Writer: &buf, Newline: "\r\n"}, nil)
	if err := tr.Send([]byte(`{"x":1}`)); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\"x\":1}\r\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSend_ConcurrentSendsDoNotInterleave(t *testing.T) {
	buf, tr := newBuf(t)
	const n = 100
	msg := `{"concurrent":true}`

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = tr.Send([]byte(msg))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != n {
		t.Fatalf("expected %d lines, got %d", n, len(lines))
	}
	for i, l := range lines {
		if l != msg {
			t.Fatalf("line %d = %q", i, l)
		}
	}
}

func TestSend_WriterError(t *testing.T) {
	tr := file.New(file.Config{Writer: errWriter{}}, nil)
	err := tr.Send([]byte(`{"x":1}`))
	if !errors.Is(err, errWrite) {
		t.Errorf("Send error = %v, want wrapped errWrite", err)
	}
}

func TestClose_ClosesOwnedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	tr := file.New(file.Config{Writer: f}, nil)
	if err := tr.Send([]byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := f.Write([]byte("x")); err == nil {
		t.Error("file should be closed")
	}
}

func TestClose_LeavesStdoutOpen(t *testing.T) {
	tr := file.New(file.Config{}, nil)
	if err := tr.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

var errWrite = errors.New("simulated write error")

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errWrite }

var _ file.Transport = (*file.WriterTransport)(nil)
