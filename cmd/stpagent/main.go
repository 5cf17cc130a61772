// Command stpagent serves the BRIDGE-MIB dot1dStp subtree for one Linux
// bridge over SNMPv1 and SNMPv2c.
//
// Spanning-tree status is read from mstpd through mstpctl. Configuration is
// a YAML file (see pkg/stpagent/config); it is reloaded on SIGHUP and, with
// -config.watch, whenever the file changes.
//
// Usage:
//
//	stpagent [-config /etc/stp_agent/agent.yml] [-log.level info] [-log.fmt json]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vpbank/stp_agent/pkg/stpagent/app"
	"github.com/vpbank/stp_agent/pkg/stpagent/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stpagent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Flags ────────────────────────────────────────────────────────────
	var (
		cfgPath  string
		watch    bool
		logLevel string
		logFmt   string
	)

	flag.StringVar(&cfgPath, "config", config.PathFromEnv(), "Configuration file (env STPAGENT_CONFIG_FILE)")
	flag.BoolVar(&watch, "config.watch", false, "Reload when the configuration file changes")
	flag.StringVar(&logLevel, "log.level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&logFmt, "log.fmt", "json", "Log format: json, text")
	flag.Parse()

	// ── Logger ───────────────────────────────────────────────────────────
	logger, err := buildLogger(logLevel, logFmt)
	if err != nil {
		return err
	}

	// ── Start ────────────────────────────────────────────────────────────
	application := app.New(app.Config{ConfigPath: cfgPath}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer application.Stop()

	reload := func() {
		if err := application.Reload(); err != nil {
			logger.Error("stpagent: reload failed", "error", err.Error())
		}
	}

	if watch {
		w := config.NewWatcher(cfgPath, 0, reload, logger)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		defer w.Stop()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	logger.Info("stpagent: running", "config", cfgPath)

	for {
		select {
		case <-hup:
			logger.Info("stpagent: received SIGHUP")
			reload()
		case <-ctx.Done():
			logger.Info("stpagent: received shutdown signal")
			return nil
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func buildLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json|text)", format)
	}
}
