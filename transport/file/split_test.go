package file_test

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vpbank/stp_agent/transport/file"
)

const (
	okWalk      = `{"objects":[],"metadata":{"status":"success"}}`
	partialWalk = `{"objects":[],"metadata":{"status":"partial","error":"timeout"}}`
	failedWalk  = `{"objects":[],"metadata":{"status":"error","error":"timeout"}}`
)

// ─────────────────────────────────────────────────────────────────────────────
// SplitWriterTransport
// ─────────────────────────────────────────────────────────────────────────────

func TestSplit_RoutesByStatus(t *testing.T) {
	var results, failures bytes.Buffer
	st := file.NewSplit(file.SplitConfig{ResultWriter: &results, FailureWriter: &failures}, nil)

	for _, m := range []string{okWalk, partialWalk, failedWalk, `{"no":"status"}`, okWalk} {
		if err := st.Send([]byte(m)); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	if got := strings.Count(results.String(), "\n"); got != 2 {
		t.Errorf("result lines = %d, want 2", got)
	}
	if got := strings.Count(failures.String(), "\n"); got != 3 {
		t.Errorf("failure lines = %d, want 3", got)
	}
	if strings.Contains(results.String(), "timeout") {
		t.Error("failed walk routed to result writer")
	}
}

func TestSplit_WriterError(t *testing.T) {
	var results bytes.Buffer
	st := file.NewSplit(file.SplitConfig{ResultWriter: &results, FailureWriter: errWriter{}}, nil)
	if err := st.Send([]byte(okWalk)); err != nil {
		t.Fatalf("result Send: %v", err)
	}
	if err := st.Send([]byte(failedWalk)); !errors.Is(err, errWrite) {
		t.Errorf("failure Send error = %v", err)
	}
}

func TestSplit_DefaultsAndClose(t *testing.T) {
	st := file.NewSplit(file.SplitConfig{}, nil)
	if err := st.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

var _ file.Transport = (*file.SplitWriterTransport)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// RotatingFile
// ─────────────────────────────────────────────────────────────────────────────

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestRotatingFile_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.json")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rf, err := file.NewRotatingFile(file.RotateConfig{FilePath: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rf.Write([]byte("new\n")); err != nil {
		t.Fatal(err)
	}
	if err := rf.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "old\nnew\n" {
		t.Errorf("content = %q", got)
	}
}

func TestRotatingFile_RotatesWholeWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.json")
	rf, err := file.NewRotatingFile(file.RotateConfig{FilePath: path, MaxBytes: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	for _, w := range []string{"aaaaaa\n", "bbbbbb\n", "cccccc\n"} {
		if _, err := rf.Write([]byte(w)); err != nil {
			t.Fatal(err)
		}
	}

	if got := readFile(t, path); got != "cccccc\n" {
		t.Errorf("active = %q", got)
	}
	if got := readFile(t, path+".1"); got != "bbbbbb\n" {
		t.Errorf(".1 = %q", got)
	}
	if got := readFile(t, path+".2"); got != "aaaaaa\n" {
		t.Errorf(".2 = %q", got)
	}
}

func TestRotatingFile_OversizedWriteIsNotSplit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.json")
	rf, err := file.NewRotatingFile(file.RotateConfig{FilePath: path, MaxBytes: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	if _, err := rf.Write([]byte("0123456789\n")); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "0123456789\n" {
		t.Errorf("active = %q", got)
	}
	if _, err := os.Stat(path + ".1"); !errors.Is(err, fs.ErrNotExist) {
		t.Error("an empty file must not be rotated")
	}
}

func TestRotatingFile_PrunesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.json")
	rf, err := file.NewRotatingFile(file.RotateConfig{FilePath: path, MaxBytes: 5, MaxBackups: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	for _, w := range []string{"1111\n", "2222\n", "3333\n", "4444\n", "5555\n"} {
		if _, err := rf.Write([]byte(w)); err != nil {
			t.Fatal(err)
		}
	}

	if got := readFile(t, path); got != "5555\n" {
		t.Errorf("active = %q", got)
	}
	if got := readFile(t, path+".1"); got != "4444\n" {
		t.Errorf(".1 = %q", got)
	}
	if got := readFile(t, path+".2"); got != "3333\n" {
		t.Errorf(".2 = %q", got)
	}
	if _, err := os.Stat(path + ".3"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf(".3 should be pruned, stat err = %v", err)
	}
}

func TestRotatingFile_RequiresPathAndCreatesDirs(t *testing.T) {
	if _, err := file.NewRotatingFile(file.RotateConfig{}, nil); err == nil {
		t.Error("expected error for empty FilePath")
	}

	path := filepath.Join(t.TempDir(), "a", "b", "walk.json")
	rf, err := file.NewRotatingFile(file.RotateConfig{FilePath: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := rf.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := rf.Write([]byte("x")); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("write after close = %v, want fs.ErrClosed", err)
	}
}

func TestSplit_WithRotatingFiles(t *testing.T) {
	dir := t.TempDir()
	results, err := file.NewRotatingFile(file.RotateConfig{FilePath: filepath.Join(dir, "walks.json")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	failures, err := file.NewRotatingFile(file.RotateConfig{FilePath: filepath.Join(dir, "failures.json")}, nil)
	if err != nil {
		t.Fatal(err)
	}

	st := file.NewSplit(file.SplitConfig{ResultWriter: results, FailureWriter: failures}, nil)
	_ = st.Send([]byte(okWalk))
	_ = st.Send([]byte(failedWalk))
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	if got := readFile(t, filepath.Join(dir, "walks.json")); got != okWalk+"\n" {
		t.Errorf("walks.json = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "failures.json")); got != failedWalk+"\n" {
		t.Errorf("failures.json = %q", got)
	}
}
