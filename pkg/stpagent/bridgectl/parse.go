package bridgectl

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vpbank/stp_agent/models"
)

// selectObject returns the object describing name. mstpctl prints either a
// single object or an array of them; in the array case only the element whose
// key field equals name is accepted. No match yields a Result that does not
// exist.
func selectObject(doc gjson.Result, key, name string) gjson.Result {
	if !doc.IsArray() {
		return doc
	}
	var match gjson.Result
	doc.ForEach(func(_, v gjson.Result) bool {
		if v.Get(key).String() == name {
			match = v
			return false
		}
		return true
	})
	return match
}

func parseBridge(obj gjson.Result) (models.BridgeStatus, error) {
	var st models.BridgeStatus
	var err error

	if st.BridgeID, err = models.ParseBridgeID(obj.Get("bridge-id").String()); err != nil {
		return st, fmt.Errorf("bridge-id: %w", err)
	}
	if st.DesignatedRoot, err = models.ParseBridgeID(obj.Get("designated-root").String()); err != nil {
		return st, fmt.Errorf("designated-root: %w", err)
	}

	st.RootPathCost = uint32(obj.Get("path-cost").Uint())
	st.MaxAge = uint32(obj.Get("max-age").Uint())
	st.ForwardDelay = uint32(obj.Get("forward-delay").Uint())
	st.BridgeMaxAge = uint32(obj.Get("bridge-max-age").Uint())
	st.BridgeHelloTime = uint32(obj.Get("hello-time").Uint())
	st.BridgeForwardDelay = uint32(obj.Get("bridge-forward-delay").Uint())
	st.TxHoldCount = uint32(obj.Get("tx-hold-count").Uint())
	st.TopologyChangeCount = uint32(obj.Get("topology-change-count").Uint())
	st.TimeSinceTopologyChange = time.Duration(obj.Get("time-since-topology-change").Float() * float64(time.Second))
	st.ProtocolVersion = models.ParseProtocolVersion(obj.Get("force-protocol-version").String())

	return st, nil
}

func parsePort(obj gjson.Result) (models.PortStatus, error) {
	var ps models.PortStatus
	var err error

	if ps.PortID, err = models.ParsePortID(obj.Get("port-id").String()); err != nil {
		return ps, fmt.Errorf("port-id: %w", err)
	}
	if ps.DesignatedRoot, err = models.ParseBridgeID(obj.Get("designated-root").String()); err != nil {
		return ps, fmt.Errorf("designated-root: %w", err)
	}
	if ps.DesignatedBridge, err = models.ParseBridgeID(obj.Get("designated-bridge").String()); err != nil {
		return ps, fmt.Errorf("designated-bridge: %w", err)
	}
	if ps.DesignatedPort, err = models.ParsePortID(obj.Get("designated-port").String()); err != nil {
		return ps, fmt.Errorf("designated-port: %w", err)
	}

	ps.State = models.ParsePortState(obj.Get("state").String())
	ps.Role = models.ParsePortRole(obj.Get("role").String())
	ps.ExternalPathCost = uint32(obj.Get("external-port-cost").Uint())
	ps.AdminExternalPathCost = uint32(obj.Get("admin-external-cost").Uint())
	ps.DesignatedCost = uint32(obj.Get("dsgn-external-cost").Uint())
	ps.ForwardTransitions = uint32(obj.Get("num-transition-fwd").Uint())
	ps.AdminEdgePort = yes(obj.Get("admin-edge-port"))
	ps.OperEdgePort = yes(obj.Get("oper-edge-port"))
	ps.AdminPointToPoint = models.ParseAdminP2P(obj.Get("admin-point-to-point").String())
	ps.OperPointToPoint = yes(obj.Get("point-to-point"))

	return ps, nil
}

// yes reads mstpctl booleans, printed as "yes"/"no", and tolerates real
// JSON booleans.
func yes(r gjson.Result) bool {
	switch r.Type {
	case gjson.True, gjson.False:
		return r.Bool()
	default:
		return strings.EqualFold(strings.TrimSpace(r.String()), "yes")
	}
}

// portName extracts the interface name from a root-port field, which may
// carry a suffix such as "eth1 (#1)". "none" and empty mean no root port.
func portName(s string) string {
	s = strings.TrimSpace(s)
	if name, _, ok := strings.Cut(s, " "); ok {
		s = name
	}
	if strings.EqualFold(s, "none") {
		return ""
	}
	return s
}
