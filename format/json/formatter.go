// Package json renders stpwalk results as JSON.
//
//	probe (walk) → snmp/decoder → format/json → transport/file
//
// All struct tags live on the models types, so formatting is a single
// json.Marshal with optional indentation.
package json

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vpbank/stp_agent/models"
)

// Formatter serialises a walk result.
type Formatter interface {
	Format(result *models.WalkResult) ([]byte, error)
}

// Config controls JSONFormatter behaviour.
type Config struct {
	// PrettyPrint emits indented JSON.
	PrettyPrint bool

	// Indent is used when PrettyPrint is set. Default: two spaces.
	Indent string
}

// JSONFormatter implements Formatter with encoding/json. It is immutable and
// safe for concurrent use.
type JSONFormatter struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs a JSONFormatter.
func New(cfg Config, logger *slog.Logger) *JSONFormatter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if cfg.PrettyPrint && cfg.Indent == "" {
		cfg.Indent = "  "
	}
	return &JSONFormatter{cfg: cfg, logger: logger}
}

// Format serialises result. Objects is always rendered as an array, never
// null.
//
//	{
//	  "timestamp": "2026-03-01T12:00:00.042Z",
//	  "target": { "address": …, "snmp_version": …, "root": … },
//	  "objects": [ { "oid": …, "name": …, "instance": …, "value": …, … } ],
//	  "metadata": { "duration_ms": …, "pdu_count": …, "status": … }
//	}
func (f *JSONFormatter) Format(result *models.WalkResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("format/json: result must not be nil")
	}
	out := *result
	if out.Objects == nil {
		out.Objects = []models.Object{}
	}

	var (
		data []byte
		err  error
	)
	if f.cfg.PrettyPrint {
		data, err = json.MarshalIndent(&out, "", f.cfg.Indent)
	} else {
		data, err = json.Marshal(&out)
	}
	if err != nil {
		f.logger.Error("format/json: marshal failed",
			"target", result.Target.Address,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("format/json: marshal: %w", err)
	}

	f.logger.Debug("format/json: formatted walk",
		"target", result.Target.Address,
		"objects", len(result.Objects),
		"bytes", len(data),
	)
	return data, nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
