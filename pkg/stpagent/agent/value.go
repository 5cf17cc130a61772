package agent

import (
	"context"
	"errors"

	"github.com/gosnmp/gosnmp"
)

// Lookup outcomes a Handler reports instead of a value. Any other error is a
// retrieval failure and becomes genErr on the wire.
var (
	ErrNoSuchObject   = errors.New("agent: no such object")
	ErrNoSuchInstance = errors.New("agent: no such instance")
	ErrEndOfView      = errors.New("agent: end of MIB view")
)

// Value is a typed SNMP value. Data holds the Go type gosnmp marshals for
// Type: int for Integer, uint32 for Counter32 and TimeTicks, []byte for
// OctetString.
type Value struct {
	Type gosnmp.Asn1BER
	Data interface{}
}

func Integer(v int) Value        { return Value{Type: gosnmp.Integer, Data: v} }
func Counter32(v uint32) Value   { return Value{Type: gosnmp.Counter32, Data: v} }
func TimeTicks(v uint32) Value   { return Value{Type: gosnmp.TimeTicks, Data: v} }
func OctetString(b []byte) Value { return Value{Type: gosnmp.OctetString, Data: b} }

// Handler serves one mounted subtree. Suffixes are relative to the mount
// point. Next must return the first instance strictly after suffix, and the
// first instance of the subtree when suffix is empty.
type Handler interface {
	Get(ctx context.Context, suffix []int) (Value, error)
	Next(ctx context.Context, suffix []int) ([]int, Value, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Request context
// ─────────────────────────────────────────────────────────────────────────────

type requestKey struct{}

// WithRequest tags ctx with the sequence number of the PDU being served, so
// handlers can tell request boundaries apart.
func WithRequest(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, requestKey{}, seq)
}

// RequestSeq returns the sequence number set by WithRequest.
func RequestSeq(ctx context.Context) (uint64, bool) {
	seq, ok := ctx.Value(requestKey{}).(uint64)
	return seq, ok
}
