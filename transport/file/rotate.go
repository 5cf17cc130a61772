package file

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// RotateConfig controls size-based rotation of an output file.
type RotateConfig struct {
	// FilePath is the active file (required).
	FilePath string

	// MaxBytes rotates the file before a write would take it past this size.
	// Zero disables rotation.
	MaxBytes int64

	// MaxBackups is how many rotated files (path.1 … path.N) to keep. Zero
	// keeps them all.
	MaxBackups int
}

// RotatingFile is an io.WriteCloser that renames the active file to path.1
// when it fills up, shifting older backups one number higher. A single write
// is never split across files. It is safe for concurrent use.
type RotatingFile struct {
	mu     sync.Mutex
	cfg    RotateConfig
	file   *os.File
	size   int64
	logger *slog.Logger
}

// NewRotatingFile opens cfg.FilePath for appending, creating parent
// directories as needed.
func NewRotatingFile(cfg RotateConfig, logger *slog.Logger) (*RotatingFile, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("transport/file: rotate: FilePath is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("transport/file: rotate: %w", err)
	}

	rf := &RotatingFile{cfg: cfg, logger: logger}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

// Write appends p, rotating first if p would overflow MaxBytes. A failed
// rotation is logged and the write goes to the current file.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return 0, fs.ErrClosed
	}

	if rf.cfg.MaxBytes > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.cfg.MaxBytes {
		if err := rf.rotate(); err != nil {
			rf.logger.Error("transport/file: rotate failed", "file", rf.cfg.FilePath, "error", err.Error())
			if rf.file == nil {
				return 0, err
			}
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// Close closes the active file. Further writes fail with fs.ErrClosed.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("transport/file: rotate: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("transport/file: rotate: %w", err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

// rotate closes the active file, shifts path.i → path.i+1 from the highest
// backup down, renames path → path.1, drops backups past MaxBackups, and
// reopens path. If the file cannot be reopened rf.file stays nil.
func (rf *RotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		rf.logger.Warn("transport/file: close before rotate", "error", err.Error())
	}
	rf.file = nil

	base := rf.cfg.FilePath
	highest := rf.highestBackup()
	for i := highest; i >= 1; i-- {
		if rf.cfg.MaxBackups > 0 && i >= rf.cfg.MaxBackups {
			_ = os.Remove(backupName(base, i))
			continue
		}
		_ = os.Rename(backupName(base, i), backupName(base, i+1))
	}
	if err := os.Rename(base, backupName(base, 1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		rf.logger.Warn("transport/file: rename active file", "error", err.Error())
	}
	rf.logger.Info("transport/file: rotated", "file", base)

	rf.size = 0
	return rf.open()
}

func (rf *RotatingFile) highestBackup() int {
	n := 0
	for {
		if _, err := os.Stat(backupName(rf.cfg.FilePath, n+1)); err != nil {
			return n
		}
		n++
	}
}

func backupName(base string, i int) string {
	return fmt.Sprintf("%s.%d", base, i)
}
