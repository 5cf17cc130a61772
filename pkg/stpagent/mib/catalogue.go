package mib

import (
	"github.com/vpbank/stp_agent/models"
	"github.com/vpbank/stp_agent/pkg/stpagent/agent"
)

// Dot1dStp is the BRIDGE-MIB dot1dStp subtree.
var Dot1dStp = agent.MustParseOID("1.3.6.1.2.1.17.2")

// Scalar sub-identifiers under dot1dStp.
const (
	ScalarProtocolSpecification   = 1
	ScalarPriority                = 2
	ScalarTimeSinceTopologyChange = 3
	ScalarTopChanges              = 4
	ScalarDesignatedRoot          = 5
	ScalarRootCost                = 6
	ScalarRootPort                = 7
	ScalarMaxAge                  = 8
	ScalarHelloTime               = 9
	ScalarHoldTime                = 10
	ScalarForwardDelay            = 11
	ScalarBridgeMaxAge            = 12
	ScalarBridgeHelloTime         = 13
	ScalarBridgeForwardDelay      = 14
	ScalarVersion                 = 16
	ScalarTxHoldCount             = 17
)

// Table sub-identifiers under dot1dStp. Rows live at <table>.1.<column>.<port>.
const (
	PortTableID    = 15
	ExtPortTableID = 19
)

// dot1dStpPortTable columns.
const (
	ColPort = iota + 1
	ColPortPriority
	ColPortState
	ColPortEnable
	ColPortPathCost
	ColPortDesignatedRoot
	ColPortDesignatedCost
	ColPortDesignatedBridge
	ColPortDesignatedPort
	ColPortForwardTransitions
	ColPortPathCost32
)

// dot1dStpExtPortTable columns.
const (
	ColExtProtocolMigration = iota + 1
	ColExtAdminEdgePort
	ColExtOperEdgePort
	ColExtAdminPointToPoint
	ColExtOperPointToPoint
	ColExtAdminPathCost
)

// ScalarIDs lists the served scalar sub-identifiers in OID order.
var ScalarIDs = []int{
	ScalarProtocolSpecification, ScalarPriority, ScalarTimeSinceTopologyChange,
	ScalarTopChanges, ScalarDesignatedRoot, ScalarRootCost, ScalarRootPort,
	ScalarMaxAge, ScalarHelloTime, ScalarHoldTime, ScalarForwardDelay,
	ScalarBridgeMaxAge, ScalarBridgeHelloTime, ScalarBridgeForwardDelay,
	ScalarVersion, ScalarTxHoldCount,
}

// Display syntaxes used by the catalogue.
const (
	SyntaxInteger     = "Integer"
	SyntaxCounter32   = "Counter32"
	SyntaxTimeTicks   = "TimeTicks"
	SyntaxBridgeID    = "BridgeId"
	SyntaxPortID      = "PortId"
	SyntaxTruthValue  = "TruthValue"
	SyntaxEnumInteger = "EnumInteger"
)

var (
	enumProtocolSpec = map[int64]string{1: "unknown", 2: "decLb100", 3: "ieee8021d"}
	enumVersion      = map[int64]string{0: "stpCompatible", 2: "rstp"}
	enumPortState    = map[int64]string{
		1: "disabled", 2: "blocking", 3: "listening", 4: "learning", 5: "forwarding", 6: "broken",
	}
	enumPortEnable = map[int64]string{1: "enabled", 2: "disabled"}
	enumAdminP2P   = map[int64]string{0: "forceTrue", 1: "forceFalse", 2: "auto"}
)

type objectSpec struct {
	name   string
	arcs   []int
	syntax string
	enum   map[int64]string
}

var objects = []objectSpec{
	{"dot1dStpProtocolSpecification", []int{ScalarProtocolSpecification}, SyntaxEnumInteger, enumProtocolSpec},
	{"dot1dStpPriority", []int{ScalarPriority}, SyntaxInteger, nil},
	{"dot1dStpTimeSinceTopologyChange", []int{ScalarTimeSinceTopologyChange}, SyntaxTimeTicks, nil},
	{"dot1dStpTopChanges", []int{ScalarTopChanges}, SyntaxCounter32, nil},
	{"dot1dStpDesignatedRoot", []int{ScalarDesignatedRoot}, SyntaxBridgeID, nil},
	{"dot1dStpRootCost", []int{ScalarRootCost}, SyntaxInteger, nil},
	{"dot1dStpRootPort", []int{ScalarRootPort}, SyntaxInteger, nil},
	{"dot1dStpMaxAge", []int{ScalarMaxAge}, SyntaxInteger, nil},
	{"dot1dStpHelloTime", []int{ScalarHelloTime}, SyntaxInteger, nil},
	{"dot1dStpHoldTime", []int{ScalarHoldTime}, SyntaxInteger, nil},
	{"dot1dStpForwardDelay", []int{ScalarForwardDelay}, SyntaxInteger, nil},
	{"dot1dStpBridgeMaxAge", []int{ScalarBridgeMaxAge}, SyntaxInteger, nil},
	{"dot1dStpBridgeHelloTime", []int{ScalarBridgeHelloTime}, SyntaxInteger, nil},
	{"dot1dStpBridgeForwardDelay", []int{ScalarBridgeForwardDelay}, SyntaxInteger, nil},
	{"dot1dStpVersion", []int{ScalarVersion}, SyntaxEnumInteger, enumVersion},
	{"dot1dStpTxHoldCount", []int{ScalarTxHoldCount}, SyntaxInteger, nil},

	{"dot1dStpPort", []int{PortTableID, 1, ColPort}, SyntaxInteger, nil},
	{"dot1dStpPortPriority", []int{PortTableID, 1, ColPortPriority}, SyntaxInteger, nil},
	{"dot1dStpPortState", []int{PortTableID, 1, ColPortState}, SyntaxEnumInteger, enumPortState},
	{"dot1dStpPortEnable", []int{PortTableID, 1, ColPortEnable}, SyntaxEnumInteger, enumPortEnable},
	{"dot1dStpPortPathCost", []int{PortTableID, 1, ColPortPathCost}, SyntaxInteger, nil},
	{"dot1dStpPortDesignatedRoot", []int{PortTableID, 1, ColPortDesignatedRoot}, SyntaxBridgeID, nil},
	{"dot1dStpPortDesignatedCost", []int{PortTableID, 1, ColPortDesignatedCost}, SyntaxInteger, nil},
	{"dot1dStpPortDesignatedBridge", []int{PortTableID, 1, ColPortDesignatedBridge}, SyntaxBridgeID, nil},
	{"dot1dStpPortDesignatedPort", []int{PortTableID, 1, ColPortDesignatedPort}, SyntaxPortID, nil},
	{"dot1dStpPortForwardTransitions", []int{PortTableID, 1, ColPortForwardTransitions}, SyntaxCounter32, nil},
	{"dot1dStpPortPathCost32", []int{PortTableID, 1, ColPortPathCost32}, SyntaxInteger, nil},

	{"dot1dStpPortProtocolMigration", []int{ExtPortTableID, 1, ColExtProtocolMigration}, SyntaxTruthValue, nil},
	{"dot1dStpPortAdminEdgePort", []int{ExtPortTableID, 1, ColExtAdminEdgePort}, SyntaxTruthValue, nil},
	{"dot1dStpPortOperEdgePort", []int{ExtPortTableID, 1, ColExtOperEdgePort}, SyntaxTruthValue, nil},
	{"dot1dStpPortAdminPointToPoint", []int{ExtPortTableID, 1, ColExtAdminPointToPoint}, SyntaxEnumInteger, enumAdminP2P},
	{"dot1dStpPortOperPointToPoint", []int{ExtPortTableID, 1, ColExtOperPointToPoint}, SyntaxTruthValue, nil},
	{"dot1dStpPortAdminPathCost", []int{ExtPortTableID, 1, ColExtAdminPathCost}, SyntaxInteger, nil},
}

// Definitions returns the catalogue of every served dot1dStp object: the
// scalars first, then the columns of each table. The returned slice is a
// fresh copy.
func Definitions() []models.ObjectDefinition {
	out := make([]models.ObjectDefinition, 0, len(objects))
	for _, o := range objects {
		def := models.ObjectDefinition{
			Name:     o.name,
			OID:      Dot1dStp.Append(o.arcs...).String()[1:],
			Syntax:   o.syntax,
			Columnar: len(o.arcs) > 1,
		}
		if o.enum != nil {
			def.Enum = make(map[int64]string, len(o.enum))
			for k, v := range o.enum {
				def.Enum[k] = v
			}
		}
		out = append(out, def)
	}
	return out
}

// ObjectName returns the MIB name of a dot1dStp object given its sub-
// identifiers below dot1dStp, or the dotted number when unknown.
func ObjectName(arcs ...int) string {
	for _, o := range objects {
		if agent.CompareSuffix(o.arcs, arcs) == 0 {
			return o.name
		}
	}
	return Dot1dStp.Append(arcs...).String()
}
