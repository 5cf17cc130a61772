// Package decoder turns the raw gosnmp varbinds of a dot1dStp walk into named,
// typed objects using the BRIDGE-MIB object catalogue.
package decoder

import (
	"fmt"
	"math"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/stp_agent/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// SNMP PDU Type → String
// ─────────────────────────────────────────────────────────────────────────────

// PDUTypeString returns the name of a gosnmp Asn1BER type tag, as used in
// models.Object.Type.
func PDUTypeString(t gosnmp.Asn1BER) string {
	switch t {
	case gosnmp.Integer:
		return "Integer"
	case gosnmp.OctetString:
		return "OctetString"
	case gosnmp.Null:
		return "Null"
	case gosnmp.ObjectIdentifier:
		return "ObjectIdentifier"
	case gosnmp.IPAddress:
		return "IpAddress"
	case gosnmp.Counter32:
		return "Counter32"
	case gosnmp.Gauge32:
		return "Gauge32"
	case gosnmp.TimeTicks:
		return "TimeTicks"
	case gosnmp.Counter64:
		return "Counter64"
	case gosnmp.Uinteger32:
		return "Unsigned32"
	case gosnmp.NoSuchObject:
		return "NoSuchObject"
	case gosnmp.NoSuchInstance:
		return "NoSuchInstance"
	case gosnmp.EndOfMibView:
		return "EndOfMibView"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint8(t))
	}
}

// IsErrorType reports whether t is an exception or Null rather than a value.
func IsErrorType(t gosnmp.Asn1BER) bool {
	return t == gosnmp.NoSuchObject || t == gosnmp.NoSuchInstance || t == gosnmp.EndOfMibView || t == gosnmp.Null
}

// ─────────────────────────────────────────────────────────────────────────────
// Value Conversion
// ─────────────────────────────────────────────────────────────────────────────

// ConvertValue converts a raw gosnmp value according to a catalogue syntax:
//
//	Integer, EnumInteger   → int64
//	Counter32, TimeTicks   → uint64
//	TruthValue             → bool (1 true, 2 false)
//	BridgeId               → "pppp.aabbccddeeff"
//	PortId                 → four hex digits, e.g. "8001"
//
// An unknown syntax falls back to the PDU type.
func ConvertValue(rawType gosnmp.Asn1BER, rawValue interface{}, syntax string) (interface{}, error) {
	if IsErrorType(rawType) {
		return nil, fmt.Errorf("skipped: PDU type is %s", PDUTypeString(rawType))
	}

	switch syntax {
	case "Integer", "EnumInteger":
		return toInt64(rawValue)

	case "Counter32", "TimeTicks":
		return toUint64(rawValue)

	case "TruthValue":
		v, err := toInt64(rawValue)
		if err != nil {
			return nil, err
		}
		switch v {
		case 1:
			return true, nil
		case 2:
			return false, nil
		default:
			return nil, fmt.Errorf("TruthValue out of range: %d", v)
		}

	case "BridgeId":
		b, err := toOctets(rawValue)
		if err != nil {
			return nil, err
		}
		id, err := models.BridgeIDFromBytes(b)
		if err != nil {
			return nil, err
		}
		return id.String(), nil

	case "PortId":
		b, err := toOctets(rawValue)
		if err != nil {
			return nil, err
		}
		if len(b) != 2 {
			return nil, fmt.Errorf("port id: want 2 octets, got %d", len(b))
		}
		return models.PortID(uint16(b[0])<<8 | uint16(b[1])).String(), nil

	default:
		return fallbackConvert(rawType, rawValue)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Low-level conversion helpers
// ─────────────────────────────────────────────────────────────────────────────

// toInt64 accepts the integer widths gosnmp produces for Integer PDUs.
func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("uint64 value %d overflows int64", x)
		}
		return int64(x), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}

// toUint64 accepts the unsigned widths gosnmp produces for Counter32 and
// TimeTicks PDUs.
func toUint64(v interface{}) (uint64, error) {
	switch x := v.(type) {
	case int:
		if x < 0 {
			return 0, fmt.Errorf("negative value %d cannot be converted to uint64", x)
		}
		return uint64(x), nil
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("negative value %d cannot be converted to uint64", x)
		}
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to uint64", v)
	}
}

func toOctets(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to octets", v)
	}
}

// fallbackConvert converts by PDU type when the syntax is not recognised.
func fallbackConvert(t gosnmp.Asn1BER, v interface{}) (interface{}, error) {
	switch t {
	case gosnmp.Integer:
		return toInt64(v)
	case gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Uinteger32, gosnmp.Counter64:
		return toUint64(v)
	case gosnmp.OctetString:
		b, err := toOctets(v)
		if err != nil {
			return nil, err
		}
		return strings.TrimRight(string(b), "\x00"), nil
	case gosnmp.ObjectIdentifier:
		if s, ok := v.(string); ok {
			return strings.TrimPrefix(s, "."), nil
		}
		return fmt.Sprintf("%v", v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
