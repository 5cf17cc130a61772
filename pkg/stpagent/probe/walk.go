package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vpbank/stp_agent/models"
	"github.com/vpbank/stp_agent/snmp/decoder"
)

// DefaultRoot is the dot1dStp subtree.
const DefaultRoot = "1.3.6.1.2.1.17.2"

// Walker walks one target. Each Walk opens and closes its own session, so a
// Walker may be reused across runs but not concurrently.
type Walker struct {
	target Target
	logger *slog.Logger
}

// NewWalker validates t and returns a Walker for it.
func NewWalker(t Target, logger *slog.Logger) (*Walker, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if _, err := NewSession(t); err != nil {
		return nil, err
	}
	return &Walker{target: t, logger: logger}, nil
}

// Walk retrieves the subtree under root ("" means DefaultRoot). SNMPv1 uses
// GETNEXT; v2c and v3 use GETBULK. Whatever was collected before a failure
// is returned together with the error in RawWalkResult.Err.
func (w *Walker) Walk(ctx context.Context, root string) decoder.RawWalkResult {
	if root == "" {
		root = DefaultRoot
	}
	version := w.target.Version
	if version == "" {
		version = "2c"
	}
	raw := decoder.RawWalkResult{
		Target: models.Target{
			Address:     w.target.Address,
			SNMPVersion: version,
			Root:        root,
		},
		StartedAt: time.Now(),
	}

	g, err := NewSession(w.target)
	if err != nil {
		raw.Err = err
		raw.CollectedAt = time.Now()
		return raw
	}
	g.Context = ctx

	if err := g.Connect(); err != nil {
		raw.Err = fmt.Errorf("probe: connect %s: %w", w.target.Address, err)
		raw.CollectedAt = time.Now()
		return raw
	}
	defer func() { _ = g.Conn.Close() }()

	if version == "1" {
		raw.Varbinds, err = g.WalkAll(root)
	} else {
		raw.Varbinds, err = g.BulkWalkAll(root)
	}
	raw.CollectedAt = time.Now()
	if err != nil {
		raw.Err = fmt.Errorf("probe: walk %s %s: %w", w.target.Address, root, err)
	}

	w.logger.Debug("probe: walk completed",
		"target", w.target.Address,
		"root", root,
		"pdu_count", len(raw.Varbinds),
		"duration_ms", raw.CollectedAt.Sub(raw.StartedAt).Milliseconds(),
		"error", err,
	)
	return raw
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
