package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// OID is a numeric object identifier.
type OID []int

// ParseOID accepts dotted-decimal OIDs with or without a leading dot.
func ParseOID(s string) (OID, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), ".")
	if s == "" {
		return nil, fmt.Errorf("agent: empty OID")
	}
	parts := strings.Split(s, ".")
	oid := make(OID, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("agent: OID %q: arc %d: %w", s, i, err)
		}
		oid[i] = int(n)
	}
	return oid, nil
}

// MustParseOID is ParseOID for package-level literals.
func MustParseOID(s string) OID {
	oid, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// String renders the OID with a leading dot, the form gosnmp uses.
func (o OID) String() string {
	var sb strings.Builder
	for _, arc := range o {
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(arc))
	}
	return sb.String()
}

// Compare orders OIDs lexicographically; a proper prefix sorts first.
func (o OID) Compare(p OID) int {
	return compareArcs(o, p)
}

// HasPrefix reports whether p is a prefix of (or equal to) o.
func (o OID) HasPrefix(p OID) bool {
	if len(p) > len(o) {
		return false
	}
	for i := range p {
		if o[i] != p[i] {
			return false
		}
	}
	return true
}

// Append returns a new OID of o followed by arcs; o is never modified.
func (o OID) Append(arcs ...int) OID {
	out := make(OID, 0, len(o)+len(arcs))
	out = append(out, o...)
	return append(out, arcs...)
}

func compareArcs(a, b []int) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if a[i] == b[i] {
			continue
		}
		if a[i] > b[i] {
			return 1
		}
		return -1
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}

// CompareSuffix orders two instance suffixes the same way Compare orders OIDs.
func CompareSuffix(a, b []int) int {
	return compareArcs(a, b)
}
