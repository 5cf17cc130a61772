// Command stpwalk walks the dot1dStp subtree of an SNMP agent and prints the
// decoded objects as JSON.
//
// With -interval it keeps walking and appends one JSON document per walk,
// optionally to a size-rotated file and with failed walks split off.
//
// Usage:
//
//	stpwalk -target 10.0.0.1 [-version 2c] [-community public] [-format.pretty]
//	stpwalk -target 10.0.0.1 -version 3 -v3.user monitor -v3.auth.proto sha -v3.auth.pass …
//	stpwalk -target 10.0.0.1 -interval 30s -output /var/log/stp/walks.json -output.failures /var/log/stp/failed.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsonformat "github.com/vpbank/stp_agent/format/json"
	"github.com/vpbank/stp_agent/pkg/stpagent/mib"
	"github.com/vpbank/stp_agent/pkg/stpagent/probe"
	"github.com/vpbank/stp_agent/snmp/decoder"
	filetransport "github.com/vpbank/stp_agent/transport/file"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stpwalk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Flags ────────────────────────────────────────────────────────────
	var (
		target   probe.Target
		root     string
		pretty   bool
		interval time.Duration
		logLevel string
		logFmt   string

		// Output
		outPath     string
		failPath    string
		outMaxBytes int64
		outBackups  int
	)

	flag.StringVar(&target.Address, "target", "127.0.0.1:161", "Agent address, host or host:port")
	flag.StringVar(&target.Version, "version", "2c", "SNMP version: 1, 2c, 3")
	flag.StringVar(&target.Community, "community", "public", "Community for v1 and v2c")
	flag.DurationVar(&target.Timeout, "timeout", 2*time.Second, "Per-request timeout")
	flag.IntVar(&target.Retries, "retries", 1, "Per-request retries")
	flag.Func("max.repetitions", "GETBULK max-repetitions (default 50)", func(s string) error {
		var n uint32
		if _, err := fmt.Sscan(s, &n); err != nil {
			return err
		}
		target.MaxRepetitions = n
		return nil
	})

	flag.StringVar(&target.V3.Username, "v3.user", "", "SNMPv3 user name")
	flag.StringVar(&target.V3.AuthenticationProtocol, "v3.auth.proto", "", "SNMPv3 auth: md5, sha, sha224, sha256, sha384, sha512")
	flag.StringVar(&target.V3.AuthenticationPassphrase, "v3.auth.pass", "", "SNMPv3 auth passphrase")
	flag.StringVar(&target.V3.PrivacyProtocol, "v3.priv.proto", "", "SNMPv3 privacy: des, aes, aes192, aes256, aes192c, aes256c")
	flag.StringVar(&target.V3.PrivacyPassphrase, "v3.priv.pass", "", "SNMPv3 privacy passphrase")

	flag.StringVar(&root, "root", probe.DefaultRoot, "Subtree to walk")
	flag.BoolVar(&pretty, "format.pretty", false, "Pretty-print JSON output")
	flag.DurationVar(&interval, "interval", 0, "Repeat the walk at this interval (0 = walk once)")

	flag.StringVar(&outPath, "output", "", "Output file (default stdout)")
	flag.StringVar(&failPath, "output.failures", "", "Separate file for partial and failed walks")
	flag.Int64Var(&outMaxBytes, "output.max.bytes", 0, "Rotate output files at this size (0 = never)")
	flag.IntVar(&outBackups, "output.max.backups", 5, "Rotated files to keep (0 = all)")

	flag.StringVar(&logLevel, "log.level", "warn", "Log level: debug, info, warn, error")
	flag.StringVar(&logFmt, "log.fmt", "text", "Log format: json, text")
	flag.Parse()

	// ── Logger ───────────────────────────────────────────────────────────
	logger, err := buildLogger(logLevel, logFmt)
	if err != nil {
		return err
	}

	// ── Pipeline ─────────────────────────────────────────────────────────
	walker, err := probe.NewWalker(target, logger)
	if err != nil {
		return err
	}
	dec, err := decoder.New(mib.Definitions(), logger)
	if err != nil {
		return err
	}
	formatter := jsonformat.New(jsonformat.Config{PrettyPrint: pretty}, logger)

	transport, err := buildTransport(outPath, failPath, outMaxBytes, outBackups, logger)
	if err != nil {
		return err
	}
	defer transport.Close()

	walkOnce := func(ctx context.Context) (string, error) {
		result := dec.Decode(walker.Walk(ctx, root))
		data, err := formatter.Format(&result)
		if err != nil {
			return "", err
		}
		if err := transport.Send(data); err != nil {
			return "", err
		}
		return result.Metadata.Status, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Single walk ──────────────────────────────────────────────────────
	if interval <= 0 {
		status, err := walkOnce(ctx)
		if err != nil {
			return err
		}
		if status == decoder.StatusError {
			return fmt.Errorf("walk of %s failed", target.Address)
		}
		return nil
	}

	// ── Repeated walks ───────────────────────────────────────────────────
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if status, err := walkOnce(ctx); err != nil {
			return err
		} else if status != decoder.StatusSuccess {
			logger.Warn("stpwalk: walk incomplete", "target", target.Address, "status", status)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func buildTransport(outPath, failPath string, maxBytes int64, backups int, logger *slog.Logger) (filetransport.Transport, error) {
	open := func(path string) (io.Writer, error) {
		if path == "" {
			return nil, nil
		}
		return filetransport.NewRotatingFile(filetransport.RotateConfig{
			FilePath:   path,
			MaxBytes:   maxBytes,
			MaxBackups: backups,
		}, logger)
	}

	out, err := open(outPath)
	if err != nil {
		return nil, err
	}
	if failPath == "" {
		return filetransport.New(filetransport.Config{Writer: out}, logger), nil
	}

	fail, err := open(failPath)
	if err != nil {
		if c, ok := out.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return filetransport.NewSplit(filetransport.SplitConfig{
		ResultWriter:  out,
		FailureWriter: fail,
	}, logger), nil
}

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
