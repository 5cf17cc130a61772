// Package ports discovers the member interfaces of a Linux bridge and maps
// interface names to kernel interface indexes.
//
// Membership is read from the sysfs convention
//
//	/sys/class/net/<bridge>/brif/<port>
//
// and returned in strverscmp order, so that eth2 is listed before eth10.
package ports

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultSysfsRoot is where the kernel publishes network interfaces.
const DefaultSysfsRoot = "/sys/class/net"

// ErrBridgeNotFound is returned when the bridge has no brif directory, either
// because the interface does not exist or because it is not a bridge.
var ErrBridgeNotFound = errors.New("bridge not found")

// ─────────────────────────────────────────────────────────────────────────────
// Enumerator
// ─────────────────────────────────────────────────────────────────────────────

// Enumerator lists bridge member ports from a sysfs tree.
type Enumerator struct {
	root   string
	logger *slog.Logger
}

// NewEnumerator returns an Enumerator reading below root. An empty root means
// DefaultSysfsRoot; tests point it at a temporary directory.
func NewEnumerator(root string, logger *slog.Logger) *Enumerator {
	if root == "" {
		root = DefaultSysfsRoot
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Enumerator{root: root, logger: logger}
}

// List returns the names of the interfaces enslaved to bridge in version
// order. A bridge without ports yields an empty slice and no error; deciding
// whether that is acceptable is left to the caller.
func (e *Enumerator) List(bridge string) ([]string, error) {
	dir := filepath.Join(e.root, bridge, "brif")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ports: %s: %w", bridge, ErrBridgeNotFound)
		}
		return nil, fmt.Errorf("ports: read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		name := ent.Name()
		if name == "." || name == ".." {
			continue
		}
		names = append(names, name)
	}
	SortVersion(names)

	e.logger.Debug("ports: listed bridge members", "bridge", bridge, "count", len(names))
	return names, nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
