// Package config loads the stp_agent configuration file.
//
// The file is YAML. It is decoded with yaml.v3, overlaid with environment
// overrides, then unified with the embedded CUE schema (schema.cue), which
// supplies every default and rejects unknown keys and out-of-range values.
//
//	STPAGENT_CONFIG_FILE  → config file path (default /etc/stp_agent/agent.yml)
//	STPAGENT_BRIDGE       → bridge
//	STPAGENT_LISTEN       → agent.listen
//	STPAGENT_COMMUNITY    → agent.community
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// DefaultPath is the config file location when STPAGENT_CONFIG_FILE is unset.
const DefaultPath = "/etc/stp_agent/agent.yml"

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the fully resolved agent configuration.
type Config struct {
	Bridge    string
	SysfsRoot string
	Agent     AgentConfig
	Cache     CacheConfig
	Backend   BackendConfig
	Metrics   MetricsConfig
}

// AgentConfig controls the SNMP listener.
type AgentConfig struct {
	Listen          string
	Community       string
	MaxBulkVarbinds int
}

// CacheConfig controls table snapshot expiry. A zero Timeout rebuilds the
// tables once per request.
type CacheConfig struct {
	Timeout time.Duration
}

// BackendConfig selects the spanning-tree status command.
type BackendConfig struct {
	Command string
	Timeout time.Duration
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Listen  string
}

// raw mirrors schema.cue; durations stay strings until resolve.
type raw struct {
	Bridge    string `json:"bridge"`
	SysfsRoot string `json:"sysfs_root"`
	Agent     struct {
		Listen          string `json:"listen"`
		Community       string `json:"community"`
		MaxBulkVarbinds int    `json:"max_bulk_varbinds"`
	} `json:"agent"`
	Cache struct {
		Timeout string `json:"timeout"`
	} `json:"cache"`
	Backend struct {
		Command string `json:"command"`
		Timeout string `json:"timeout"`
	} `json:"backend"`
	Metrics struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Paths and environment
// ─────────────────────────────────────────────────────────────────────────────

// PathFromEnv returns STPAGENT_CONFIG_FILE or DefaultPath.
func PathFromEnv() string {
	return envOr("STPAGENT_CONFIG_FILE", DefaultPath)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envOverrides maps environment variables to dotted config keys.
var envOverrides = []struct{ env, key string }{
	{"STPAGENT_BRIDGE", "bridge"},
	{"STPAGENT_LISTEN", "agent.listen"},
	{"STPAGENT_COMMUNITY", "agent.community"},
}

func applyEnv(doc map[string]any, logger *slog.Logger) {
	for _, o := range envOverrides {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		setPath(doc, o.key, v)
		logger.Debug("config: environment override", "key", o.key, "env", o.env)
	}
}

func setPath(doc map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// ─────────────────────────────────────────────────────────────────────────────
// Load
// ─────────────────────────────────────────────────────────────────────────────

// Load reads the YAML file at path and returns the resolved configuration.
// A missing file yields the defaults. Every schema and value error is
// reported together.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}

	doc := map[string]any{}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("config: file not found, using defaults", "file", path)
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}
	applyEnv(doc, logger)

	cfg, errs := resolve(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %d error(s) in %s:\n  %s", len(errs), path, strings.Join(errs, "\n  "))
	}
	logger.Debug("config: loaded", "file", path, "bridge", cfg.Bridge, "listen", cfg.Agent.Listen)
	return cfg, nil
}

// Parse resolves an in-memory YAML document; used by tests and tooling.
func Parse(content []byte) (*Config, error) {
	doc := map[string]any{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	cfg, errs := resolve(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %d error(s):\n  %s", len(errs), strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

func resolve(doc map[string]any) (*Config, []string) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []string{fmt.Sprintf("schema: %v", err)}
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueMessages(err)
	}

	var r raw
	if err := v.Decode(&r); err != nil {
		return nil, cueMessages(err)
	}
	return r.resolve()
}

func cueMessages(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, strings.TrimSpace(cueerrors.Details(e, nil)))
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}

func (r raw) resolve() (*Config, []string) {
	var errs []string
	cfg := &Config{
		Bridge:    r.Bridge,
		SysfsRoot: r.SysfsRoot,
		Agent: AgentConfig{
			Listen:          r.Agent.Listen,
			Community:       r.Agent.Community,
			MaxBulkVarbinds: r.Agent.MaxBulkVarbinds,
		},
		Backend: BackendConfig{Command: r.Backend.Command},
		Metrics: MetricsConfig{Enabled: r.Metrics.Enabled, Listen: r.Metrics.Listen},
	}

	var err error
	if cfg.Cache.Timeout, err = time.ParseDuration(r.Cache.Timeout); err != nil {
		errs = append(errs, fmt.Sprintf("cache.timeout: %v", err))
	}
	if cfg.Backend.Timeout, err = time.ParseDuration(r.Backend.Timeout); err != nil {
		errs = append(errs, fmt.Sprintf("backend.timeout: %v", err))
	} else if cfg.Backend.Timeout == 0 {
		errs = append(errs, "backend.timeout: must be positive")
	}
	if _, _, err := net.SplitHostPort(cfg.Agent.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("agent.listen: %v", err))
	}
	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("metrics.listen: %v", err))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return cfg, nil
}

type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }
