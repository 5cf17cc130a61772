package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/stp_agent/pkg/stpagent/telemetry"
)

// DefaultMaxBulkVarbinds caps the number of varbinds in one GETBULK response.
const DefaultMaxBulkVarbinds = 512

// Dispatcher answers decoded request PDUs from a Registry. It holds no
// per-request state and serves one request at a time per caller.
type Dispatcher struct {
	registry atomic.Pointer[Registry]
	maxBulk  int
	seq      atomic.Uint64
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// NewDispatcher builds a dispatcher over reg. maxBulk ≤ 0 selects
// DefaultMaxBulkVarbinds.
func NewDispatcher(reg *Registry, maxBulk int, logger *slog.Logger, metrics *telemetry.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if maxBulk <= 0 {
		maxBulk = DefaultMaxBulkVarbinds
	}
	d := &Dispatcher{maxBulk: maxBulk, logger: logger, metrics: metrics}
	d.registry.Store(reg)
	return d
}

// SetRegistry swaps the registry used for subsequent requests.
func (d *Dispatcher) SetRegistry(reg *Registry) {
	d.registry.Store(reg)
}

// Handle builds the response to req, or returns nil when the PDU type is not
// one an agent answers.
func (d *Dispatcher) Handle(ctx context.Context, req *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	ctx = WithRequest(ctx, d.seq.Add(1))
	reg := d.registry.Load()

	resp := &gosnmp.SnmpPacket{
		Version:   req.Version,
		Community: req.Community,
		PDUType:   gosnmp.GetResponse,
		RequestID: req.RequestID,
		Logger:    req.Logger,
	}

	switch req.PDUType {
	case gosnmp.GetRequest:
		d.metrics.ObserveRequest("GetRequest")
		d.get(ctx, reg, req, resp)
	case gosnmp.GetNextRequest:
		d.metrics.ObserveRequest("GetNextRequest")
		d.getNext(ctx, reg, req, resp)
	case gosnmp.GetBulkRequest:
		if req.Version == gosnmp.Version1 {
			d.metrics.ObserveRequest("unsupported")
			return nil
		}
		d.metrics.ObserveRequest("GetBulkRequest")
		d.getBulk(ctx, reg, req, resp)
	case gosnmp.SetRequest:
		d.metrics.ObserveRequest("SetRequest")
		status := gosnmp.NotWritable
		if req.Version == gosnmp.Version1 {
			status = gosnmp.NoSuchName
		}
		d.fail(req, resp, status, 0)
	default:
		d.metrics.ObserveRequest("unsupported")
		d.logger.Debug("agent: ignoring PDU", "type", req.PDUType)
		return nil
	}

	if resp.Error != gosnmp.NoError {
		d.metrics.ObserveRequestError(resp.Error.String())
	}
	return resp
}

// ─────────────────────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────────────────────

func (d *Dispatcher) get(ctx context.Context, reg *Registry, req, resp *gosnmp.SnmpPacket) {
	vbs := make([]gosnmp.SnmpPDU, 0, len(req.Variables))
	for i, vb := range req.Variables {
		oid, err := ParseOID(vb.Name)
		var v Value
		if err == nil {
			v, err = reg.Get(ctx, oid)
		} else {
			err = ErrNoSuchObject
		}

		switch {
		case err == nil:
			vbs = append(vbs, varbind(vb.Name, v))
		case errors.Is(err, ErrNoSuchObject), errors.Is(err, ErrNoSuchInstance):
			if req.Version == gosnmp.Version1 {
				d.fail(req, resp, gosnmp.NoSuchName, i)
				return
			}
			vbs = append(vbs, exception(vb.Name, err))
		default:
			d.logger.Warn("agent: get failed", "oid", vb.Name, "error", err)
			d.fail(req, resp, gosnmp.GenErr, i)
			return
		}
	}
	resp.Variables = vbs
}

func (d *Dispatcher) getNext(ctx context.Context, reg *Registry, req, resp *gosnmp.SnmpPacket) {
	vbs := make([]gosnmp.SnmpPDU, 0, len(req.Variables))
	for i, vb := range req.Variables {
		pdu, err := d.next(ctx, reg, vb.Name)
		switch {
		case err == nil:
			vbs = append(vbs, pdu)
		case errors.Is(err, ErrEndOfView):
			if req.Version == gosnmp.Version1 {
				d.fail(req, resp, gosnmp.NoSuchName, i)
				return
			}
			vbs = append(vbs, pdu)
		default:
			d.logger.Warn("agent: getnext failed", "oid", vb.Name, "error", err)
			d.fail(req, resp, gosnmp.GenErr, i)
			return
		}
	}
	resp.Variables = vbs
}

// getBulk follows RFC 3416 §4.2.3: the first NonRepeaters varbinds get one
// successor each, the rest are walked MaxRepetitions times in lockstep.
func (d *Dispatcher) getBulk(ctx context.Context, reg *Registry, req, resp *gosnmp.SnmpPacket) {
	nonRep := int(req.NonRepeaters)
	if nonRep > len(req.Variables) {
		nonRep = len(req.Variables)
	}
	maxRep := int(req.MaxRepetitions)

	vbs := make([]gosnmp.SnmpPDU, 0, len(req.Variables))
	for i := 0; i < nonRep; i++ {
		pdu, err := d.next(ctx, reg, req.Variables[i].Name)
		if err != nil && !errors.Is(err, ErrEndOfView) {
			d.logger.Warn("agent: getbulk failed", "oid", req.Variables[i].Name, "error", err)
			d.fail(req, resp, gosnmp.GenErr, i)
			return
		}
		vbs = append(vbs, pdu)
	}

	cursors := make([]string, 0, len(req.Variables)-nonRep)
	for _, vb := range req.Variables[nonRep:] {
		cursors = append(cursors, vb.Name)
	}
	done := make([]bool, len(cursors))

	for rep := 0; rep < maxRep && len(cursors) > 0; rep++ {
		exhausted := true
		for j := range cursors {
			if len(vbs) >= d.maxBulk {
				resp.Variables = vbs
				return
			}
			if done[j] {
				vbs = append(vbs, gosnmp.SnmpPDU{Name: cursors[j], Type: gosnmp.EndOfMibView})
				continue
			}
			pdu, err := d.next(ctx, reg, cursors[j])
			switch {
			case err == nil:
				cursors[j] = pdu.Name
				exhausted = false
			case errors.Is(err, ErrEndOfView):
				done[j] = true
			default:
				d.logger.Warn("agent: getbulk failed", "oid", cursors[j], "error", err)
				d.fail(req, resp, gosnmp.GenErr, nonRep+j)
				return
			}
			vbs = append(vbs, pdu)
		}
		if exhausted {
			break
		}
	}
	resp.Variables = vbs
}

// next resolves the successor of name. On ErrEndOfView the returned varbind
// is the endOfMibView exception for name.
func (d *Dispatcher) next(ctx context.Context, reg *Registry, name string) (gosnmp.SnmpPDU, error) {
	oid, err := ParseOID(name)
	if err != nil {
		// An unparsable name sorts before everything we serve.
		oid = OID{0}
	}
	nextOID, v, err := reg.Next(ctx, oid)
	if err != nil {
		return exception(name, err), err
	}
	return varbind(nextOID.String(), v), nil
}

// fail turns resp into an error response that echoes the request varbinds.
// index is zero-based.
func (d *Dispatcher) fail(req, resp *gosnmp.SnmpPacket, status gosnmp.SNMPError, index int) {
	resp.Error = status
	resp.ErrorIndex = uint8(min(index+1, 255))
	resp.Variables = make([]gosnmp.SnmpPDU, len(req.Variables))
	for i, vb := range req.Variables {
		resp.Variables[i] = gosnmp.SnmpPDU{Name: vb.Name, Type: gosnmp.Null}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Varbind helpers
// ─────────────────────────────────────────────────────────────────────────────

func varbind(name string, v Value) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: v.Type, Value: v.Data}
}

func exception(name string, err error) gosnmp.SnmpPDU {
	t := gosnmp.NoSuchObject
	switch {
	case errors.Is(err, ErrNoSuchInstance):
		t = gosnmp.NoSuchInstance
	case errors.Is(err, ErrEndOfView):
		t = gosnmp.EndOfMibView
	}
	return gosnmp.SnmpPDU{Name: name, Type: t}
}
