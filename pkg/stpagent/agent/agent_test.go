package agent_test

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/stp_agent/pkg/stpagent/agent"
	"github.com/vpbank/stp_agent/pkg/stpagent/telemetry"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// staticHandler serves a fixed set of instances.
type staticHandler struct {
	rows map[string]agent.Value
	err  error
}

func (s staticHandler) keys() []agent.OID {
	out := make([]agent.OID, 0, len(s.rows))
	for k := range s.rows {
		out = append(out, agent.MustParseOID(k))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func key(suffix []int) string {
	return strings.TrimPrefix(agent.OID(suffix).String(), ".")
}

func (s staticHandler) Get(_ context.Context, suffix []int) (agent.Value, error) {
	if s.err != nil {
		return agent.Value{}, s.err
	}
	v, ok := s.rows[key(suffix)]
	if !ok {
		return agent.Value{}, agent.ErrNoSuchInstance
	}
	return v, nil
}

func (s staticHandler) Next(_ context.Context, suffix []int) ([]int, agent.Value, error) {
	if s.err != nil {
		return nil, agent.Value{}, s.err
	}
	for _, k := range s.keys() {
		if agent.CompareSuffix(k, suffix) > 0 {
			return k, s.rows[key(k)], nil
		}
	}
	return nil, agent.Value{}, agent.ErrEndOfView
}

// newRegistry mounts two scalars and a two-column table:
//
//	.1.3.6.1.9.1.0         = 3
//	.1.3.6.1.9.2.0         = "ab"
//	.1.3.6.1.9.5.1.{1,2}.{1,2}
func newRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	reg := agent.NewRegistry()
	require.NoError(t, reg.Mount(agent.MustParseOID("1.3.6.1.9.1"), staticHandler{rows: map[string]agent.Value{
		"0": agent.Integer(3),
	}}))
	require.NoError(t, reg.Mount(agent.MustParseOID("1.3.6.1.9.2"), staticHandler{rows: map[string]agent.Value{
		"0": agent.OctetString([]byte("ab")),
	}}))
	require.NoError(t, reg.Mount(agent.MustParseOID("1.3.6.1.9.5"), staticHandler{rows: map[string]agent.Value{
		"1.1.1": agent.Integer(1),
		"1.1.2": agent.Integer(2),
		"1.2.1": agent.Counter32(10),
		"1.2.2": agent.Counter32(20),
	}}))
	return reg
}

func request(version gosnmp.SnmpVersion, pdu gosnmp.PDUType, oids ...string) *gosnmp.SnmpPacket {
	pkt := &gosnmp.SnmpPacket{
		Version:   version,
		Community: "public",
		PDUType:   pdu,
		RequestID: 42,
	}
	for _, o := range oids {
		pkt.Variables = append(pkt.Variables, gosnmp.SnmpPDU{Name: o, Type: gosnmp.Null})
	}
	return pkt
}

func names(vbs []gosnmp.SnmpPDU) []string {
	out := make([]string, len(vbs))
	for i, vb := range vbs {
		out[i] = vb.Name
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// OID
// ─────────────────────────────────────────────────────────────────────────────

func TestParseOID(t *testing.T) {
	oid, err := agent.ParseOID(".1.3.6.1.2.1.17.2.1.0")
	require.NoError(t, err)
	assert.Equal(t, agent.OID{1, 3, 6, 1, 2, 1, 17, 2, 1, 0}, oid)
	assert.Equal(t, ".1.3.6.1.2.1.17.2.1.0", oid.String())

	same, err := agent.ParseOID("1.3.6.1.2.1.17.2.1.0")
	require.NoError(t, err)
	assert.Equal(t, oid, same)

	for _, bad := range []string{"", ".", "1..2", "1.x", "1.4294967296"} {
		_, err := agent.ParseOID(bad)
		assert.Error(t, err, bad)
	}
}

func TestOIDCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.3.6", "1.3.6", 0},
		{"1.3", "1.3.6", -1},
		{"1.3.6", "1.3", 1},
		{"1.3.6.2", "1.3.10", -1},
		{"1.4", "1.3.6.1", 1},
	}
	for _, tc := range cases {
		got := agent.MustParseOID(tc.a).Compare(agent.MustParseOID(tc.b))
		assert.Equal(t, tc.want, got, "%s vs %s", tc.a, tc.b)
	}
}

func TestOIDAppendDoesNotAlias(t *testing.T) {
	base := make(agent.OID, 2, 8)
	base[0], base[1] = 1, 3
	a := base.Append(6)
	b := base.Append(7)
	assert.Equal(t, agent.OID{1, 3, 6}, a)
	assert.Equal(t, agent.OID{1, 3, 7}, b)
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

func TestRegistry_MountRejectsOverlap(t *testing.T) {
	reg := newRegistry(t)
	assert.Error(t, reg.Mount(agent.MustParseOID("1.3.6.1.9.5.1"), staticHandler{}))
	assert.Error(t, reg.Mount(agent.MustParseOID("1.3.6.1.9"), staticHandler{}))
	assert.NoError(t, reg.Mount(agent.MustParseOID("1.3.6.1.9.3"), staticHandler{}))

	roots := reg.Roots()
	require.Len(t, roots, 4)
	assert.Equal(t, ".1.3.6.1.9.3", roots[2].String())
}

func TestRegistry_Get(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	v, err := reg.Get(ctx, agent.MustParseOID("1.3.6.1.9.5.1.2.2"))
	require.NoError(t, err)
	assert.Equal(t, agent.Counter32(20), v)

	_, err = reg.Get(ctx, agent.MustParseOID("1.3.6.1.9.5.1.2.9"))
	assert.ErrorIs(t, err, agent.ErrNoSuchInstance)

	_, err = reg.Get(ctx, agent.MustParseOID("1.3.6.1.9.4.0"))
	assert.ErrorIs(t, err, agent.ErrNoSuchObject)
}

func TestRegistry_NextWalksAcrossMounts(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	var got []string
	cur := agent.MustParseOID("1.3")
	for {
		next, _, err := reg.Next(ctx, cur)
		if errors.Is(err, agent.ErrEndOfView) {
			break
		}
		require.NoError(t, err)
		require.Positive(t, next.Compare(cur), "walk must advance")
		got = append(got, next.String())
		cur = next
	}

	assert.Equal(t, []string{
		".1.3.6.1.9.1.0",
		".1.3.6.1.9.2.0",
		".1.3.6.1.9.5.1.1.1",
		".1.3.6.1.9.5.1.1.2",
		".1.3.6.1.9.5.1.2.1",
		".1.3.6.1.9.5.1.2.2",
	}, got)
}

func TestRegistry_NextPropagatesFailure(t *testing.T) {
	reg := agent.NewRegistry()
	boom := errors.New("backend down")
	require.NoError(t, reg.Mount(agent.MustParseOID("1.3.6.1.9.5"), staticHandler{err: boom}))

	_, _, err := reg.Next(context.Background(), agent.MustParseOID("1.3"))
	assert.ErrorIs(t, err, boom)
}

// ─────────────────────────────────────────────────────────────────────────────
// Dispatcher
// ─────────────────────────────────────────────────────────────────────────────

func TestDispatcher_GetV2cExceptions(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 0, nil, nil)
	resp := d.Handle(context.Background(), request(gosnmp.Version2c, gosnmp.GetRequest,
		".1.3.6.1.9.1.0", ".1.3.6.1.9.5.1.1.7", ".1.3.6.1.9.7.0"))

	require.NotNil(t, resp)
	assert.Equal(t, gosnmp.GetResponse, resp.PDUType)
	assert.Equal(t, uint32(42), resp.RequestID)
	assert.Equal(t, gosnmp.NoError, resp.Error)
	require.Len(t, resp.Variables, 3)
	assert.Equal(t, gosnmp.Integer, resp.Variables[0].Type)
	assert.Equal(t, 3, resp.Variables[0].Value)
	assert.Equal(t, gosnmp.NoSuchInstance, resp.Variables[1].Type)
	assert.Equal(t, gosnmp.NoSuchObject, resp.Variables[2].Type)
}

func TestDispatcher_GetV1NoSuchName(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 0, nil, nil)
	resp := d.Handle(context.Background(), request(gosnmp.Version1, gosnmp.GetRequest,
		".1.3.6.1.9.1.0", ".1.3.6.1.9.7.0"))

	require.NotNil(t, resp)
	assert.Equal(t, gosnmp.NoSuchName, resp.Error)
	assert.Equal(t, uint8(2), resp.ErrorIndex)
	assert.Equal(t, []string{".1.3.6.1.9.1.0", ".1.3.6.1.9.7.0"}, names(resp.Variables))
}

func TestDispatcher_GetRetrievalFailureIsGenErr(t *testing.T) {
	reg := agent.NewRegistry()
	require.NoError(t, reg.Mount(agent.MustParseOID("1.3.6.1.9.5"), staticHandler{err: errors.New("boom")}))
	d := agent.NewDispatcher(reg, 0, nil, nil)

	resp := d.Handle(context.Background(), request(gosnmp.Version2c, gosnmp.GetRequest, ".1.3.6.1.9.5.1.1.1"))
	require.NotNil(t, resp)
	assert.Equal(t, gosnmp.GenErr, resp.Error)
	assert.Equal(t, uint8(1), resp.ErrorIndex)
}

func TestDispatcher_GetNext(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 0, nil, nil)
	resp := d.Handle(context.Background(), request(gosnmp.Version2c, gosnmp.GetNextRequest,
		".1.3.6.1.9.1.0", ".1.3.6.1.9.5.1.1.2", ".1.3.6.1.9.5.1.2.2"))

	require.NotNil(t, resp)
	require.Len(t, resp.Variables, 3)
	assert.Equal(t, ".1.3.6.1.9.2.0", resp.Variables[0].Name)
	assert.Equal(t, []byte("ab"), resp.Variables[0].Value)
	assert.Equal(t, ".1.3.6.1.9.5.1.2.1", resp.Variables[1].Name)
	assert.Equal(t, uint32(10), resp.Variables[1].Value)
	assert.Equal(t, ".1.3.6.1.9.5.1.2.2", resp.Variables[2].Name)
	assert.Equal(t, gosnmp.EndOfMibView, resp.Variables[2].Type)
}

func TestDispatcher_GetNextV1EndOfView(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 0, nil, nil)
	resp := d.Handle(context.Background(), request(gosnmp.Version1, gosnmp.GetNextRequest, ".1.3.6.1.9.5.1.2.2"))

	require.NotNil(t, resp)
	assert.Equal(t, gosnmp.NoSuchName, resp.Error)
	assert.Equal(t, uint8(1), resp.ErrorIndex)
}

func TestDispatcher_GetBulk(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 0, nil, nil)
	req := request(gosnmp.Version2c, gosnmp.GetBulkRequest, ".1.3.6.1.9.1", ".1.3.6.1.9.5.1.1", ".1.3.6.1.9.5.1.2")
	req.NonRepeaters = 1
	req.MaxRepetitions = 3

	resp := d.Handle(context.Background(), req)
	require.NotNil(t, resp)
	assert.Equal(t, []string{
		".1.3.6.1.9.1.0",
		".1.3.6.1.9.5.1.1.1", ".1.3.6.1.9.5.1.2.1",
		".1.3.6.1.9.5.1.1.2", ".1.3.6.1.9.5.1.2.2",
		".1.3.6.1.9.5.1.2.1", ".1.3.6.1.9.5.1.2.2",
	}, names(resp.Variables))
	assert.Equal(t, gosnmp.EndOfMibView, resp.Variables[6].Type)
}

func TestDispatcher_GetBulkStopsWhenExhausted(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 0, nil, nil)
	req := request(gosnmp.Version2c, gosnmp.GetBulkRequest, ".1.3.6.1.9.5.1.2.1")
	req.MaxRepetitions = 10

	resp := d.Handle(context.Background(), req)
	require.NotNil(t, resp)
	require.Len(t, resp.Variables, 2)
	assert.Equal(t, ".1.3.6.1.9.5.1.2.2", resp.Variables[0].Name)
	assert.Equal(t, gosnmp.EndOfMibView, resp.Variables[1].Type)
}

func TestDispatcher_GetBulkCapped(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 3, nil, nil)
	req := request(gosnmp.Version2c, gosnmp.GetBulkRequest, ".1.3")
	req.MaxRepetitions = 50

	resp := d.Handle(context.Background(), req)
	require.NotNil(t, resp)
	assert.Len(t, resp.Variables, 3)
}

func TestDispatcher_GetBulkV1Dropped(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 0, nil, nil)
	assert.Nil(t, d.Handle(context.Background(), request(gosnmp.Version1, gosnmp.GetBulkRequest, ".1.3")))
}

func TestDispatcher_SetIsRejected(t *testing.T) {
	d := agent.NewDispatcher(newRegistry(t), 0, nil, nil)

	resp := d.Handle(context.Background(), request(gosnmp.Version2c, gosnmp.SetRequest, ".1.3.6.1.9.1.0"))
	require.NotNil(t, resp)
	assert.Equal(t, gosnmp.NotWritable, resp.Error)
	assert.Equal(t, uint8(1), resp.ErrorIndex)

	resp = d.Handle(context.Background(), request(gosnmp.Version1, gosnmp.SetRequest, ".1.3.6.1.9.1.0"))
	require.NotNil(t, resp)
	assert.Equal(t, gosnmp.NoSuchName, resp.Error)
}

func TestDispatcher_RequestSeqAdvances(t *testing.T) {
	var seen []uint64
	reg := agent.NewRegistry()
	require.NoError(t, reg.Mount(agent.MustParseOID("1.3.6.1.9.1"), seqHandler{seen: &seen}))
	d := agent.NewDispatcher(reg, 0, nil, nil)

	d.Handle(context.Background(), request(gosnmp.Version2c, gosnmp.GetRequest, ".1.3.6.1.9.1.0", ".1.3.6.1.9.1.0"))
	d.Handle(context.Background(), request(gosnmp.Version2c, gosnmp.GetRequest, ".1.3.6.1.9.1.0"))

	require.Len(t, seen, 3)
	assert.Equal(t, seen[0], seen[1], "same PDU shares a sequence number")
	assert.Greater(t, seen[2], seen[1])
}

type seqHandler struct{ seen *[]uint64 }

func (h seqHandler) Get(ctx context.Context, _ []int) (agent.Value, error) {
	seq, _ := agent.RequestSeq(ctx)
	*h.seen = append(*h.seen, seq)
	return agent.Integer(int(seq)), nil
}

func (h seqHandler) Next(context.Context, []int) ([]int, agent.Value, error) {
	return nil, agent.Value{}, agent.ErrEndOfView
}

// ─────────────────────────────────────────────────────────────────────────────
// Listener
// ─────────────────────────────────────────────────────────────────────────────

func encode(t *testing.T, pkt *gosnmp.SnmpPacket) []byte {
	t.Helper()
	b, err := pkt.MarshalMsg()
	require.NoError(t, err)
	return b
}

func decode(t *testing.T, b []byte) *gosnmp.SnmpPacket {
	t.Helper()
	pkt, err := (&gosnmp.GoSNMP{Version: gosnmp.Version2c}).SnmpDecodePacket(b)
	require.NoError(t, err)
	return pkt
}

func TestHandlePacket_RoundTrip(t *testing.T) {
	l := agent.New(agent.Config{}, newRegistry(t), nil)

	out := l.HandlePacket(context.Background(), encode(t, request(gosnmp.Version2c, gosnmp.GetRequest, ".1.3.6.1.9.5.1.2.1")))
	require.NotNil(t, out)

	resp := decode(t, out)
	assert.Equal(t, gosnmp.GetResponse, resp.PDUType)
	assert.Equal(t, uint32(42), resp.RequestID)
	require.Len(t, resp.Variables, 1)
	assert.Equal(t, gosnmp.Counter32, resp.Variables[0].Type)
	assert.Equal(t, uint(10), resp.Variables[0].Value)
}

func TestHandlePacket_Drops(t *testing.T) {
	m := telemetry.New()
	l := agent.New(agent.Config{Community: "s3cret", Metrics: m}, newRegistry(t), nil)
	ctx := context.Background()

	wrong := request(gosnmp.Version2c, gosnmp.GetRequest, ".1.3.6.1.9.1.0")
	assert.Nil(t, l.HandlePacket(ctx, encode(t, wrong)), "wrong community")

	assert.Nil(t, l.HandlePacket(ctx, []byte{0x30, 0x03, 0x02, 0x01, 0x03}), "v3")
	assert.Nil(t, l.HandlePacket(ctx, []byte("garbage")), "malformed")

	right := request(gosnmp.Version2c, gosnmp.GetRequest, ".1.3.6.1.9.1.0")
	right.Community = "s3cret"
	assert.NotNil(t, l.HandlePacket(ctx, encode(t, right)))

	l.Reconfigure("other", nil)
	assert.Nil(t, l.HandlePacket(ctx, encode(t, right)), "community swapped")
}

func TestHandlePacket_ReconfigureRegistry(t *testing.T) {
	l := agent.New(agent.Config{}, agent.NewRegistry(), nil)
	ctx := context.Background()
	req := encode(t, request(gosnmp.Version2c, gosnmp.GetRequest, ".1.3.6.1.9.1.0"))

	resp := decode(t, l.HandlePacket(ctx, req))
	assert.Equal(t, gosnmp.NoSuchObject, resp.Variables[0].Type)

	l.Reconfigure("", newRegistry(t))
	resp = decode(t, l.HandlePacket(ctx, req))
	assert.Equal(t, gosnmp.Integer, resp.Variables[0].Type)
}

func TestListener_ServesUDP(t *testing.T) {
	l := agent.New(agent.Config{ListenAddr: "127.0.0.1:0"}, newRegistry(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, l.Start(ctx))
	defer l.Stop()

	assert.Error(t, l.Start(ctx), "second start")

	host, port, err := net.SplitHostPort(l.Addr())
	require.NoError(t, err)
	p, err := net.LookupPort("udp", port)
	require.NoError(t, err)

	client := &gosnmp.GoSNMP{
		Target:    host,
		Port:      uint16(p),
		Community: "public",
		Version:   gosnmp.Version2c,
		Timeout:   2 * time.Second,
		Retries:   0,
	}
	require.NoError(t, client.Connect())
	defer client.Conn.Close()

	var walked []string
	err = client.BulkWalk(".1.3.6.1.9", func(pdu gosnmp.SnmpPDU) error {
		walked = append(walked, pdu.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, walked, 6)
}

func TestListener_StopIsIdempotent(t *testing.T) {
	l := agent.New(agent.Config{ListenAddr: "127.0.0.1:0"}, agent.NewRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))

	cancel()
	l.Stop()
	l.Stop()
}
