package mib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vpbank/stp_agent/models"
	"github.com/vpbank/stp_agent/pkg/stpagent/agent"
	"github.com/vpbank/stp_agent/pkg/stpagent/telemetry"
)

// ErrNoPorts is the load failure for a bridge with no member ports.
var ErrNoPorts = errors.New("mib: bridge has no ports")

// Row is one table row keyed by bridge port number.
type Row interface {
	Index() int
	// Column returns the value of column col, false when the table has no
	// such column.
	Column(col int) (agent.Value, bool)
}

// RowBuilder maps one port's status to a row.
type RowBuilder[R Row] func(bridge models.BridgeStatus, port models.PortStatus) R

// Config controls snapshot expiry.
type Config struct {
	// CacheTimeout is how long a snapshot stays fresh. Zero rebuilds once per
	// request PDU.
	CacheTimeout time.Duration

	// Now replaces time.Now. Used in tests.
	Now func() time.Time
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Now == nil {
		out.Now = time.Now
	}
	if out.CacheTimeout < 0 {
		out.CacheTimeout = 0
	}
	return out
}

// snapshot is an immutable table state. A failed load is a snapshot too, so
// a walk over a broken bridge does not re-query it for every varbind.
type snapshot[R Row] struct {
	rows    []R
	err     error
	builtAt time.Time
	seq     uint64
	tagged  bool
}

// Materializer rebuilds a port table from scratch whenever its snapshot
// expires. Readers never observe a partially built snapshot.
type Materializer[R Row] struct {
	name    string
	src     Source
	build   RowBuilder[R]
	cfg     Config
	logger  *slog.Logger
	metrics *telemetry.Metrics

	mu   sync.Mutex // serialises loads
	snap atomic.Pointer[snapshot[R]]
}

// NewMaterializer creates an idle materializer for the table called name.
func NewMaterializer[R Row](name string, src Source, build RowBuilder[R], cfg Config, logger *slog.Logger, metrics *telemetry.Metrics) *Materializer[R] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Materializer[R]{
		name:    name,
		src:     src,
		build:   build,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("table", name),
		metrics: metrics,
	}
}

// Name returns the table name used in logs and metrics.
func (m *Materializer[R]) Name() string { return m.name }

// Rows returns the current rows in ascending port order, loading a new
// snapshot first when the cached one is stale. The slice must not be
// modified.
func (m *Materializer[R]) Rows(ctx context.Context) ([]R, error) {
	if s := m.snap.Load(); !m.stale(ctx, s) {
		return s.rows, s.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.snap.Load(); !m.stale(ctx, s) {
		return s.rows, s.err
	}
	s := m.refreshLocked(ctx)
	return s.rows, s.err
}

// Refresh rebuilds the snapshot regardless of its age.
func (m *Materializer[R]) Refresh(ctx context.Context) ([]R, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.refreshLocked(ctx)
	return s.rows, s.err
}

// Invalidate drops the snapshot; the next read loads a new one.
func (m *Materializer[R]) Invalidate() {
	m.snap.Store(nil)
}

func (m *Materializer[R]) stale(ctx context.Context, s *snapshot[R]) bool {
	if s == nil {
		return true
	}
	if m.cfg.CacheTimeout > 0 {
		return m.cfg.Now().Sub(s.builtAt) >= m.cfg.CacheTimeout
	}
	seq, ok := agent.RequestSeq(ctx)
	return !ok || !s.tagged || s.seq != seq
}

func (m *Materializer[R]) refreshLocked(ctx context.Context) *snapshot[R] {
	start := m.cfg.Now()
	rows, err := m.load(ctx)
	m.metrics.ObserveRefresh(m.name, m.cfg.Now().Sub(start), len(rows), err)
	if err != nil {
		m.logger.Warn("mib: table load failed", "error", err)
		rows = nil
	} else {
		m.logger.Debug("mib: table loaded", "rows", len(rows))
	}

	s := &snapshot[R]{rows: rows, err: err, builtAt: m.cfg.Now()}
	s.seq, s.tagged = agent.RequestSeq(ctx)
	m.snap.Store(s)
	return s
}

func (m *Materializer[R]) load(ctx context.Context) ([]R, error) {
	bridgeIdx, err := m.src.bridgeIndex()
	if err != nil {
		return nil, err
	}
	bridge, err := m.src.Client.BridgeStatus(ctx, bridgeIdx)
	if err != nil {
		return nil, fmt.Errorf("mib: bridge status %s: %w", m.src.Bridge, err)
	}
	names, err := m.src.Enumerator.List(m.src.Bridge)
	if err != nil {
		return nil, fmt.Errorf("mib: list ports: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPorts, m.src.Bridge)
	}

	rows := make([]R, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		portIdx, err := m.src.Resolver.IndexByName(name)
		if err != nil {
			m.skip(name, err)
			continue
		}
		ps, err := m.src.Client.PortStatus(ctx, bridgeIdx, portIdx)
		if err != nil {
			m.skip(name, err)
			continue
		}

		row := m.build(bridge, ps)
		if first, dup := seen[row.Index()]; dup {
			m.logger.Warn("mib: duplicate port number, keeping first",
				"port", name, "number", row.Index(), "first", first)
			continue
		}
		seen[row.Index()] = name
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Index() < rows[j].Index() })
	return rows, nil
}

func (m *Materializer[R]) skip(port string, err error) {
	m.logger.Warn("mib: skipping port", "port", port, "error", err)
	m.metrics.ObserveSkippedPort(m.name)
}

// ─────────────────────────────────────────────────────────────────────────────
// Table handler
// ─────────────────────────────────────────────────────────────────────────────

// Table serves <table>.1.<column>.<port> from a Materializer.
type Table[R Row] struct {
	m       *Materializer[R]
	columns []int // ascending
}

// NewTable exposes m with the given columns.
func NewTable[R Row](m *Materializer[R], columns ...int) *Table[R] {
	cols := append([]int(nil), columns...)
	sort.Ints(cols)
	return &Table[R]{m: m, columns: cols}
}

func (t *Table[R]) hasColumn(col int) bool {
	i := sort.SearchInts(t.columns, col)
	return i < len(t.columns) && t.columns[i] == col
}

// Get resolves an exact table instance.
func (t *Table[R]) Get(ctx context.Context, suffix []int) (agent.Value, error) {
	if len(suffix) < 2 || suffix[0] != 1 || !t.hasColumn(suffix[1]) {
		return agent.Value{}, agent.ErrNoSuchObject
	}
	if len(suffix) != 3 {
		return agent.Value{}, agent.ErrNoSuchInstance
	}

	rows, err := t.m.Rows(ctx)
	if err != nil {
		return agent.Value{}, err
	}
	port := suffix[2]
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Index() >= port })
	if i == len(rows) || rows[i].Index() != port {
		return agent.Value{}, agent.ErrNoSuchInstance
	}
	v, _ := rows[i].Column(suffix[1])
	return v, nil
}

// Next walks the table column by column in ascending port order.
func (t *Table[R]) Next(ctx context.Context, suffix []int) ([]int, agent.Value, error) {
	rows, err := t.m.Rows(ctx)
	if err != nil {
		return nil, agent.Value{}, err
	}
	for _, col := range t.columns {
		for _, row := range rows {
			cand := []int{1, col, row.Index()}
			if agent.CompareSuffix(cand, suffix) > 0 {
				v, _ := row.Column(col)
				return cand, v, nil
			}
		}
	}
	return nil, agent.Value{}, agent.ErrEndOfView
}
