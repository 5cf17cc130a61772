package decoder

import (
	"log/slog"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/stp_agent/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Input type
// ─────────────────────────────────────────────────────────────────────────────

// RawWalkResult is what a walk of one agent produced, before decoding.
type RawWalkResult struct {
	Target models.Target

	// Varbinds are the PDUs exactly as gosnmp returned them.
	Varbinds []gosnmp.SnmpPDU

	StartedAt   time.Time
	CollectedAt time.Time

	// Err is the walk error, if any. Varbinds may still hold a prefix of the
	// subtree.
	Err error
}

// Walk statuses reported in models.WalkMetadata.Status.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// ─────────────────────────────────────────────────────────────────────────────
// Decoder
// ─────────────────────────────────────────────────────────────────────────────

// Decoder converts RawWalkResults into models.WalkResult. It is safe for
// concurrent use.
type Decoder struct {
	parser *VarbindParser
	logger *slog.Logger
}

// New builds a Decoder over the object catalogue defs.
func New(defs []models.ObjectDefinition, logger *slog.Logger) (*Decoder, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	parser, err := NewVarbindParser(defs)
	if err != nil {
		return nil, err
	}
	return &Decoder{parser: parser, logger: logger}, nil
}

// Decode names and converts every varbind of raw. Status is "error" when the
// walk failed with nothing collected, "partial" when it failed midway or a
// value did not convert, and "success" otherwise.
func (d *Decoder) Decode(raw RawWalkResult) models.WalkResult {
	result := models.WalkResult{
		Timestamp: raw.CollectedAt,
		Target:    raw.Target,
		Metadata: models.WalkMetadata{
			DurationMs: raw.CollectedAt.Sub(raw.StartedAt).Milliseconds(),
			PDUCount:   len(raw.Varbinds),
			Status:     StatusSuccess,
		},
	}

	objects, err := d.parser.Parse(raw.Varbinds)
	result.Objects = objects

	switch {
	case raw.Err != nil && len(raw.Varbinds) == 0:
		result.Metadata.Status = StatusError
		result.Metadata.Error = raw.Err.Error()
	case raw.Err != nil:
		result.Metadata.Status = StatusPartial
		result.Metadata.Error = raw.Err.Error()
	case err != nil:
		result.Metadata.Status = StatusPartial
		result.Metadata.Error = err.Error()
	}

	if err != nil {
		d.logger.Warn("decode: value conversion failed",
			"target", raw.Target.Address,
			"error", err.Error(),
		)
	}
	if len(objects) == 0 && len(raw.Varbinds) > 0 {
		d.logger.Warn("decode: no varbinds matched the catalogue",
			"target", raw.Target.Address,
			"root", raw.Target.Root,
			"pdu_count", len(raw.Varbinds),
		)
	}

	d.logger.Debug("decode: completed",
		"target", raw.Target.Address,
		"pdu_count", len(raw.Varbinds),
		"decoded_count", len(objects),
		"status", result.Metadata.Status,
	)
	return result
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
