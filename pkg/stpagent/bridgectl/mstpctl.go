package bridgectl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vpbank/stp_agent/models"
	"github.com/vpbank/stp_agent/pkg/stpagent/ports"
)

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Runner executes a command and returns its standard output. The error of a
// failed run should carry whatever the command printed on standard error.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// MSTPCtlConfig controls how mstpctl is invoked.
type MSTPCtlConfig struct {
	// Command is the mstpctl executable (default "mstpctl").
	Command string

	// Timeout bounds a single invocation (default 2 s).
	Timeout time.Duration

	// Resolver maps interface indexes back to names (default SystemResolver).
	Resolver ports.Resolver

	// Runner replaces process execution. Used in tests.
	Runner Runner
}

func (c *MSTPCtlConfig) withDefaults() MSTPCtlConfig {
	out := *c
	if out.Command == "" {
		out.Command = "mstpctl"
	}
	if out.Timeout <= 0 {
		out.Timeout = 2 * time.Second
	}
	if out.Resolver == nil {
		out.Resolver = ports.SystemResolver{}
	}
	if out.Runner == nil {
		out.Runner = execRunner
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// MSTPCtl
// ─────────────────────────────────────────────────────────────────────────────

// MSTPCtl reads CIST status from mstpd through "mstpctl --format=json".
type MSTPCtl struct {
	cfg    MSTPCtlConfig
	logger *slog.Logger
}

// NewMSTPCtl returns a Client backed by mstpctl.
func NewMSTPCtl(cfg MSTPCtlConfig, logger *slog.Logger) *MSTPCtl {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &MSTPCtl{cfg: cfg.withDefaults(), logger: logger}
}

// BridgeStatus implements Client. When the bridge is not the root, the root
// port is looked up with a second query to learn its port identifier.
func (m *MSTPCtl) BridgeStatus(ctx context.Context, bridgeIndex int) (models.BridgeStatus, error) {
	var st models.BridgeStatus

	bridge, err := m.cfg.Resolver.NameByIndex(bridgeIndex)
	if err != nil {
		return st, fmt.Errorf("bridgectl: bridge index %d: %w: %v", bridgeIndex, ErrNotFound, err)
	}

	doc, err := m.execute(ctx, "showbridge", bridge)
	if err != nil {
		return st, err
	}
	obj := selectObject(doc, "bridge", bridge)
	if !obj.Exists() {
		return st, fmt.Errorf("bridgectl: bridge %s: %w", bridge, ErrNotFound)
	}

	st, err = parseBridge(obj)
	if err != nil {
		return st, fmt.Errorf("bridgectl: bridge %s: %w", bridge, err)
	}

	if rootPort := portName(obj.Get("root-port").String()); rootPort != "" {
		ps, err := m.portDetail(ctx, bridge, rootPort)
		if err != nil {
			return st, fmt.Errorf("bridgectl: bridge %s: root port %s: %w", bridge, rootPort, err)
		}
		st.RootPortID = ps.PortID
	}
	return st, nil
}

// PortStatus implements Client.
func (m *MSTPCtl) PortStatus(ctx context.Context, bridgeIndex, portIndex int) (models.PortStatus, error) {
	bridge, err := m.cfg.Resolver.NameByIndex(bridgeIndex)
	if err != nil {
		return models.PortStatus{}, fmt.Errorf("bridgectl: bridge index %d: %w: %v", bridgeIndex, ErrNotFound, err)
	}
	port, err := m.cfg.Resolver.NameByIndex(portIndex)
	if err != nil {
		return models.PortStatus{}, fmt.Errorf("bridgectl: port index %d: %w: %v", portIndex, ErrNotFound, err)
	}
	return m.portDetail(ctx, bridge, port)
}

func (m *MSTPCtl) portDetail(ctx context.Context, bridge, port string) (models.PortStatus, error) {
	doc, err := m.execute(ctx, "showportdetail", bridge, port)
	if err != nil {
		return models.PortStatus{}, err
	}
	obj := selectObject(doc, "port", port)
	if !obj.Exists() {
		return models.PortStatus{}, fmt.Errorf("bridgectl: port %s/%s: %w", bridge, port, ErrNotFound)
	}
	ps, err := parsePort(obj)
	if err != nil {
		return ps, fmt.Errorf("bridgectl: port %s/%s: %w", bridge, port, err)
	}
	return ps, nil
}

// execute runs one mstpctl subcommand and returns its parsed JSON document.
func (m *MSTPCtl) execute(ctx context.Context, args ...string) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	argv := append([]string{"--format=json"}, args...)
	out, err := m.cfg.Runner(ctx, m.cfg.Command, argv...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return gjson.Result{}, fmt.Errorf("bridgectl: %s %s: timed out after %s", m.cfg.Command, strings.Join(args, " "), m.cfg.Timeout)
		}
		if looksNotFound(err.Error()) {
			return gjson.Result{}, fmt.Errorf("bridgectl: %s: %w", strings.Join(args, " "), ErrNotFound)
		}
		return gjson.Result{}, fmt.Errorf("bridgectl: %s %s: %w", m.cfg.Command, strings.Join(args, " "), err)
	}

	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return gjson.Result{}, fmt.Errorf("bridgectl: %s: %w", strings.Join(args, " "), ErrNotFound)
	}
	if !gjson.ValidBytes(out) {
		return gjson.Result{}, fmt.Errorf("bridgectl: %s: output is not valid JSON", strings.Join(args, " "))
	}

	m.logger.Debug("bridgectl: query completed", "args", args, "bytes", len(out))
	return gjson.ParseBytes(out), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Process execution
// ─────────────────────────────────────────────────────────────────────────────

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("'%s' execution failed: %w: %s", cmd, err, msg)
		}
		return out, fmt.Errorf("'%s' execution failed: %w", cmd, err)
	}
	return out, nil
}

func looksNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	for _, needle := range []string{"not found", "no such", "doesn't exist", "does not exist", "couldn't find"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
