package decoder

import (
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/stp_agent/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// VarbindParser
// ─────────────────────────────────────────────────────────────────────────────

// VarbindParser maps raw PDUs onto a catalogue of object definitions. It is
// immutable after construction and safe for concurrent use.
type VarbindParser struct {
	// byOID maps normalised object OIDs (no leading dot) to their definition.
	byOID map[string]models.ObjectDefinition
}

// NewVarbindParser indexes defs by OID. Duplicate or empty OIDs are rejected.
func NewVarbindParser(defs []models.ObjectDefinition) (*VarbindParser, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("empty object catalogue")
	}
	byOID := make(map[string]models.ObjectDefinition, len(defs))
	for _, def := range defs {
		norm := normaliseOID(def.OID)
		if norm == "" {
			return nil, fmt.Errorf("object %q has an empty OID", def.Name)
		}
		if prev, dup := byOID[norm]; dup {
			return nil, fmt.Errorf("objects %q and %q share OID %s", prev.Name, def.Name, norm)
		}
		byOID[norm] = def
	}
	return &VarbindParser{byOID: byOID}, nil
}

// Parse converts pdus to objects in input order.
//
// PDUs outside the catalogue and exception PDUs are skipped. A value that
// fails conversion is skipped too; the first such error is returned alongside
// everything that did convert.
func (p *VarbindParser) Parse(pdus []gosnmp.SnmpPDU) ([]models.Object, error) {
	out := make([]models.Object, 0, len(pdus))
	var firstErr error

	for i := range pdus {
		pdu := &pdus[i]
		if IsErrorType(pdu.Type) {
			continue
		}

		oid := normaliseOID(pdu.Name)
		def, instance, ok := p.match(oid)
		if !ok {
			continue
		}

		v, err := ConvertValue(pdu.Type, pdu.Value, def.Syntax)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("oid %s (%s, syntax %s): %w", oid, def.Name, def.Syntax, err)
			}
			continue
		}

		obj := models.Object{
			OID:      oid,
			Name:     def.Name,
			Instance: instance,
			Value:    v,
			Type:     PDUTypeString(pdu.Type),
			Syntax:   def.Syntax,
		}
		if n, isInt := v.(int64); isInt && def.Enum != nil {
			obj.Label = def.Enum[n]
		}
		out = append(out, obj)
	}
	return out, firstErr
}

// match finds the longest catalogue OID that prefixes oid and returns the
// remaining arcs as the instance. Scalars only match instance "0"; columns
// only match a single-arc instance.
func (p *VarbindParser) match(oid string) (models.ObjectDefinition, string, bool) {
	prefix := oid
	for {
		dot := strings.LastIndexByte(prefix, '.')
		if dot < 0 {
			return models.ObjectDefinition{}, "", false
		}
		prefix = prefix[:dot]

		def, ok := p.byOID[prefix]
		if !ok {
			continue
		}
		instance := oid[len(prefix)+1:]
		switch {
		case def.Columnar && !strings.Contains(instance, "."):
			return def, instance, true
		case !def.Columnar && instance == "0":
			return def, instance, true
		default:
			return models.ObjectDefinition{}, "", false
		}
	}
}

// normaliseOID strips surrounding whitespace and a leading dot.
func normaliseOID(oid string) string {
	return strings.TrimPrefix(strings.TrimSpace(oid), ".")
}
