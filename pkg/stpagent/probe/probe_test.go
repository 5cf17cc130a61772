package probe_test

import (
	"context"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/stp_agent/models"
	"github.com/vpbank/stp_agent/pkg/stpagent/agent"
	"github.com/vpbank/stp_agent/pkg/stpagent/mib"
	"github.com/vpbank/stp_agent/pkg/stpagent/ports"
	"github.com/vpbank/stp_agent/pkg/stpagent/probe"
	"github.com/vpbank/stp_agent/snmp/decoder"
)

// ─────────────────────────────────────────────────────────────────────────────
// Session
// ─────────────────────────────────────────────────────────────────────────────

func TestNewSession_Versions(t *testing.T) {
	g, err := probe.NewSession(probe.Target{Address: "192.0.2.1", Version: "1", Community: "c"})
	require.NoError(t, err)
	assert.Equal(t, gosnmp.Version1, g.Version)
	assert.Equal(t, "192.0.2.1", g.Target)
	assert.Equal(t, uint16(161), g.Port)
	assert.Equal(t, 2*time.Second, g.Timeout)

	g, err = probe.NewSession(probe.Target{Address: "[2001:db8::1]:1161"})
	require.NoError(t, err)
	assert.Equal(t, gosnmp.Version2c, g.Version)
	assert.Equal(t, "2001:db8::1", g.Target)
	assert.Equal(t, uint16(1161), g.Port)

	_, err = probe.NewSession(probe.Target{Address: "192.0.2.1", Version: "2"})
	assert.Error(t, err)
	_, err = probe.NewSession(probe.Target{Address: "192.0.2.1:notaport"})
	assert.Error(t, err)
	_, err = probe.NewSession(probe.Target{})
	assert.Error(t, err)
}

func TestNewSession_V3(t *testing.T) {
	cases := []struct {
		auth, priv string
		flags      gosnmp.SnmpV3MsgFlags
	}{
		{"", "", gosnmp.NoAuthNoPriv},
		{"SHA256", "noPriv", gosnmp.AuthNoPriv},
		{"sha", "AES", gosnmp.AuthPriv},
		{"noauth", "aes", gosnmp.NoAuthNoPriv},
	}
	for _, tc := range cases {
		g, err := probe.NewSession(probe.Target{
			Address: "192.0.2.1",
			Version: "3",
			V3: probe.V3Credentials{
				Username:                 "monitor",
				AuthenticationProtocol:   tc.auth,
				AuthenticationPassphrase: "authpass",
				PrivacyProtocol:          tc.priv,
				PrivacyPassphrase:        "privpass",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, gosnmp.Version3, g.Version)
		assert.Equal(t, gosnmp.UserSecurityModel, g.SecurityModel)
		assert.Equal(t, tc.flags, g.MsgFlags, "%s/%s", tc.auth, tc.priv)

		usm, ok := g.SecurityParameters.(*gosnmp.UsmSecurityParameters)
		require.True(t, ok)
		assert.Equal(t, "monitor", usm.UserName)
	}

	_, err := probe.NewSession(probe.Target{Address: "192.0.2.1", Version: "3"})
	assert.Error(t, err, "username is required")
}

// ─────────────────────────────────────────────────────────────────────────────
// End to end
// ─────────────────────────────────────────────────────────────────────────────

type stubClient struct{}

func (stubClient) BridgeStatus(context.Context, int) (models.BridgeStatus, error) {
	return models.BridgeStatus{
		BridgeID:           models.MustBridgeID(0x8000, "52:54:00:12:34:56"),
		DesignatedRoot:     models.MustBridgeID(0x1000, "aa:bb:cc:dd:ee:ff"),
		RootPathCost:       20000,
		RootPortID:         models.NewPortID(0x80, 1),
		MaxAge:             20,
		ForwardDelay:       15,
		BridgeMaxAge:       20,
		BridgeHelloTime:    2,
		BridgeForwardDelay: 15,
		TxHoldCount:        6,
		ProtocolVersion:    models.ProtocolRSTP,
	}, nil
}

func (stubClient) PortStatus(_ context.Context, _, portIdx int) (models.PortStatus, error) {
	n := uint16(portIdx - 10)
	state := models.StateForwarding
	if n == 2 {
		state = models.StateBlocking
	}
	return models.PortStatus{
		PortID:           models.NewPortID(0x80, n),
		State:            state,
		Role:             models.RoleDesignated,
		ExternalPathCost: 20000,
		DesignatedRoot:   models.MustBridgeID(0x1000, "aa:bb:cc:dd:ee:ff"),
		DesignatedBridge: models.MustBridgeID(0x8000, "52:54:00:12:34:56"),
		DesignatedPort:   models.NewPortID(0x80, n),
		OperEdgePort:     n == 1,
	}, nil
}

type stubLister []string

func (s stubLister) List(string) ([]string, error) { return s, nil }

func startAgent(t *testing.T) string {
	t.Helper()
	m := mib.New(mib.Source{
		Bridge:     "br0",
		Resolver:   ports.StaticResolver{"br0": 10, "eth1": 11, "eth2": 12},
		Client:     stubClient{},
		Enumerator: stubLister{"eth1", "eth2"},
	}, mib.Config{}, nil, nil)
	reg, err := m.Registry()
	require.NoError(t, err)

	l := agent.New(agent.Config{ListenAddr: "127.0.0.1:0", Community: "public"}, reg, nil)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(l.Stop)
	return l.Addr()
}

func walkAndDecode(t *testing.T, target probe.Target) models.WalkResult {
	t.Helper()
	w, err := probe.NewWalker(target, nil)
	require.NoError(t, err)
	d, err := decoder.New(mib.Definitions(), nil)
	require.NoError(t, err)
	return d.Decode(w.Walk(context.Background(), ""))
}

func byName(objs []models.Object) map[string]models.Object {
	out := make(map[string]models.Object, len(objs))
	for _, o := range objs {
		out[o.Name+"."+o.Instance] = o
	}
	return out
}

func TestWalk_EndToEnd(t *testing.T) {
	addr := startAgent(t)

	for _, version := range []string{"1", "2c"} {
		t.Run("v"+version, func(t *testing.T) {
			res := walkAndDecode(t, probe.Target{Address: addr, Version: version, Community: "public", Timeout: time.Second})

			assert.Equal(t, decoder.StatusSuccess, res.Metadata.Status, res.Metadata.Error)
			assert.Equal(t, version, res.Target.SNMPVersion)
			assert.Equal(t, probe.DefaultRoot, res.Target.Root)
			require.Len(t, res.Objects, 16+11*2+6*2)

			objs := byName(res.Objects)
			assert.Equal(t, "ieee8021d", objs["dot1dStpProtocolSpecification.0"].Label)
			assert.Equal(t, "1000.aabbccddeeff", objs["dot1dStpDesignatedRoot.0"].Value)
			assert.Equal(t, "rstp", objs["dot1dStpVersion.0"].Label)
			assert.Equal(t, int64(1500), objs["dot1dStpBridgeForwardDelay.0"].Value)
			assert.Equal(t, "forwarding", objs["dot1dStpPortState.1"].Label)
			assert.Equal(t, "blocking", objs["dot1dStpPortState.2"].Label)
			assert.Equal(t, "8002", objs["dot1dStpPortDesignatedPort.2"].Value)
			assert.Equal(t, true, objs["dot1dStpPortOperEdgePort.1"].Value)
			assert.Equal(t, false, objs["dot1dStpPortOperEdgePort.2"].Value)
			assert.Equal(t, false, objs["dot1dStpPortProtocolMigration.1"].Value)
		})
	}
}

func TestWalk_SubtreeRoot(t *testing.T) {
	addr := startAgent(t)
	w, err := probe.NewWalker(probe.Target{Address: addr, Community: "public", Timeout: time.Second}, nil)
	require.NoError(t, err)

	raw := w.Walk(context.Background(), "1.3.6.1.2.1.17.2.15.1.3")
	require.NoError(t, raw.Err)
	require.Len(t, raw.Varbinds, 2)
	assert.Equal(t, ".1.3.6.1.2.1.17.2.15.1.3.1", raw.Varbinds[0].Name)
	assert.Equal(t, ".1.3.6.1.2.1.17.2.15.1.3.2", raw.Varbinds[1].Name)
}

func TestWalk_WrongCommunityTimesOut(t *testing.T) {
	addr := startAgent(t)
	res := walkAndDecode(t, probe.Target{Address: addr, Community: "nope", Timeout: 200 * time.Millisecond})
	assert.Equal(t, decoder.StatusError, res.Metadata.Status)
	assert.NotEmpty(t, res.Metadata.Error)
	assert.Empty(t, res.Objects)
}
