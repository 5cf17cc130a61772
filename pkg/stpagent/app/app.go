// Package app wires the stp_agent components together and manages their
// lifecycle.
//
// Request path:
//
//	UDP :161 → agent.Listener → agent.Dispatcher → agent.Registry →
//	mib (scalars, dot1dStpPortTable, dot1dStpExtPortTable) →
//	bridgectl.Client (mstpctl) + ports.Enumerator (sysfs)
//
// A Prometheus endpoint runs alongside when metrics are enabled. Reload
// re-reads the configuration file and swaps the MIB and community in place.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vpbank/stp_agent/pkg/stpagent/agent"
	"github.com/vpbank/stp_agent/pkg/stpagent/bridgectl"
	"github.com/vpbank/stp_agent/pkg/stpagent/config"
	"github.com/vpbank/stp_agent/pkg/stpagent/mib"
	"github.com/vpbank/stp_agent/pkg/stpagent/ports"
	"github.com/vpbank/stp_agent/pkg/stpagent/telemetry"
)

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config holds the settings App needs beyond the configuration file.
// Nil collaborators are built from the file.
type Config struct {
	// ConfigPath is the YAML configuration file. Use config.PathFromEnv().
	ConfigPath string

	// Client replaces the mstpctl backend.
	Client bridgectl.Client

	// Resolver replaces kernel interface index lookups.
	Resolver ports.Resolver

	// Enumerator replaces the sysfs port listing.
	Enumerator mib.PortLister

	// ShutdownTimeout bounds the metrics server shutdown. Default: 5 s.
	ShutdownTimeout time.Duration
}

func (c *Config) withDefaults() {
	if c.ConfigPath == "" {
		c.ConfigPath = config.DefaultPath
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// App
// ─────────────────────────────────────────────────────────────────────────────

// App runs the SNMP agent. Create one with New, start it with Start, and
// stop it with Stop.
type App struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	loaded    *config.Config
	metrics   *telemetry.Metrics
	mib       *mib.MIB
	listener  *agent.Listener
	metricSrv *telemetry.Server
	running   bool
}

// New constructs an App. It does not start anything.
func New(cfg Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	cfg.withDefaults()
	return &App{cfg: cfg, logger: logger}
}

// Start loads the configuration, builds the MIB, and binds the SNMP and
// metrics listeners. Any failure leaves nothing running.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return fmt.Errorf("app: already running")
	}

	// ── 1. Load configuration ───────────────────────────────────────────
	a.logger.Info("app: loading configuration", "file", a.cfg.ConfigPath)
	loaded, err := config.Load(a.cfg.ConfigPath, a.logger)
	if err != nil {
		return fmt.Errorf("app: load config: %w", err)
	}

	// ── 2. Build the MIB over the status backend ────────────────────────
	a.metrics = telemetry.New()
	m, reg, err := a.buildMIB(loaded)
	if err != nil {
		return err
	}

	// ── 3. Start the SNMP listener ──────────────────────────────────────
	listener := agent.New(agent.Config{
		ListenAddr:      loaded.Agent.Listen,
		Community:       loaded.Agent.Community,
		MaxBulkVarbinds: loaded.Agent.MaxBulkVarbinds,
		Metrics:         a.metrics,
	}, reg, a.logger)
	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("app: %w", err)
	}

	// ── 4. Optionally start the metrics endpoint ────────────────────────
	var srv *telemetry.Server
	if loaded.Metrics.Enabled {
		srv = telemetry.NewServer(loaded.Metrics.Listen, a.metrics, a.logger)
		if err := srv.Start(); err != nil {
			listener.Stop()
			return fmt.Errorf("app: %w", err)
		}
	}

	a.loaded = loaded
	a.mib = m
	a.listener = listener
	a.metricSrv = srv
	a.running = true

	a.logger.Info("app: agent running",
		"bridge", loaded.Bridge,
		"listen", listener.Addr(),
		"cache_timeout", loaded.Cache.Timeout.String(),
		"metrics", loaded.Metrics.Enabled,
	)
	return nil
}

// Stop shuts down the listeners in reverse start order. It is safe to call
// Stop more than once.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.logger.Info("app: shutting down")

	// 1. Stop answering SNMP requests.
	a.listener.Stop()

	// 2. Drain the metrics endpoint.
	if a.metricSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		a.metricSrv.Stop(ctx)
		cancel()
	}

	a.running = false
	a.logger.Info("app: shutdown complete")
}

// Reload re-reads the configuration file and swaps the MIB and community of
// the running listener. Listen addresses cannot change without a restart; a
// changed address is logged and ignored. An invalid file leaves the running
// configuration untouched.
func (a *App) Reload() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return fmt.Errorf("app: not running")
	}

	a.logger.Info("app: reloading configuration", "file", a.cfg.ConfigPath)
	next, err := config.Load(a.cfg.ConfigPath, a.logger)
	if err != nil {
		return fmt.Errorf("app: reload config: %w", err)
	}

	m, reg, err := a.buildMIB(next)
	if err != nil {
		return err
	}
	a.listener.Reconfigure(next.Agent.Community, reg)

	if next.Agent.Listen != a.loaded.Agent.Listen {
		a.logger.Warn("app: agent.listen changed, restart required",
			"running", a.loaded.Agent.Listen, "configured", next.Agent.Listen)
		next.Agent.Listen = a.loaded.Agent.Listen
	}
	if next.Agent.MaxBulkVarbinds != a.loaded.Agent.MaxBulkVarbinds {
		a.logger.Warn("app: agent.max_bulk_varbinds changed, restart required")
		next.Agent.MaxBulkVarbinds = a.loaded.Agent.MaxBulkVarbinds
	}
	if next.Metrics != a.loaded.Metrics {
		a.logger.Warn("app: metrics settings changed, restart required")
		next.Metrics = a.loaded.Metrics
	}

	a.loaded = next
	a.mib = m
	a.logger.Info("app: configuration reloaded", "bridge", next.Bridge)
	return nil
}

// Addr returns the bound SNMP address, or "" when not running.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return ""
	}
	return a.listener.Addr()
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (a *App) MetricsAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running || a.metricSrv == nil {
		return ""
	}
	return a.metricSrv.Addr()
}

// ─────────────────────────────────────────────────────────────────────────────
// Component construction
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) buildMIB(cfg *config.Config) (*mib.MIB, *agent.Registry, error) {
	resolver := a.cfg.Resolver
	if resolver == nil {
		resolver = ports.SystemResolver{}
	}
	enumerator := a.cfg.Enumerator
	if enumerator == nil {
		enumerator = ports.NewEnumerator(cfg.SysfsRoot, a.logger)
	}
	client := a.cfg.Client
	if client == nil {
		client = bridgectl.NewMSTPCtl(bridgectl.MSTPCtlConfig{
			Command:  cfg.Backend.Command,
			Timeout:  cfg.Backend.Timeout,
			Resolver: resolver,
		}, a.logger)
	}

	m := mib.New(mib.Source{
		Bridge:     cfg.Bridge,
		Resolver:   resolver,
		Client:     bridgectl.WithMetrics(client, a.metrics),
		Enumerator: enumerator,
	}, mib.Config{CacheTimeout: cfg.Cache.Timeout}, a.logger, a.metrics)

	reg, err := m.Registry()
	if err != nil {
		return nil, nil, fmt.Errorf("app: build registry: %w", err)
	}
	return m, reg, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
