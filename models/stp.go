// Package models defines the data structures shared across the STP agent:
// the bridge and port status records reported by the spanning-tree daemon,
// the identifier value types, and the walk output of the stpwalk tool.
// Nothing here depends on any other internal package.
package models

import (
	"strings"
	"time"
)

// BridgeStatus is the bridge-wide CIST state of one bridge.
//
// Timers are in whole seconds as carried by the protocol.
type BridgeStatus struct {
	BridgeID       BridgeID
	DesignatedRoot BridgeID
	RootPathCost   uint32

	// RootPortID identifies the root-facing port; zero when this bridge is
	// the root.
	RootPortID PortID

	// Operational timers learned from the root.
	MaxAge       uint32
	ForwardDelay uint32

	// Timers configured on this bridge.
	BridgeMaxAge       uint32
	BridgeHelloTime    uint32
	BridgeForwardDelay uint32

	TxHoldCount uint32

	TopologyChangeCount     uint32
	TimeSinceTopologyChange time.Duration

	ProtocolVersion ProtocolVersion
}

// PortStatus is the CIST state of one bridge port.
type PortStatus struct {
	PortID PortID
	State  PortState
	Role   PortRole

	// ExternalPathCost is the operational path cost at full width.
	ExternalPathCost uint32
	// AdminExternalPathCost is the configured path cost; zero means automatic.
	AdminExternalPathCost uint32

	DesignatedRoot   BridgeID
	DesignatedBridge BridgeID
	DesignatedPort   PortID
	DesignatedCost   uint32

	ForwardTransitions uint32

	AdminEdgePort     bool
	OperEdgePort      bool
	AdminPointToPoint AdminP2P
	OperPointToPoint  bool
}

// ─────────────────────────────────────────────────────────────────────────────
// Enumerations
// ─────────────────────────────────────────────────────────────────────────────

// ProtocolVersion is the spanning-tree protocol the bridge runs. MSTP bridges
// are reported as RSTP.
type ProtocolVersion int

const (
	ProtocolUnknown ProtocolVersion = iota
	ProtocolSTP
	ProtocolRSTP
)

func (v ProtocolVersion) String() string {
	switch v {
	case ProtocolSTP:
		return "stp"
	case ProtocolRSTP:
		return "rstp"
	default:
		return "unknown"
	}
}

// ParseProtocolVersion maps the daemon's force-protocol-version keyword.
func ParseProtocolVersion(s string) ProtocolVersion {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stp":
		return ProtocolSTP
	case "rstp", "mstp":
		return ProtocolRSTP
	default:
		return ProtocolUnknown
	}
}

// PortState follows the kernel BR_STATE_* numbering.
type PortState int

const (
	StateDisabled   PortState = 0
	StateListening  PortState = 1
	StateLearning   PortState = 2
	StateForwarding PortState = 3
	StateBlocking   PortState = 4
)

func (s PortState) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateListening:
		return "listening"
	case StateLearning:
		return "learning"
	case StateForwarding:
		return "forwarding"
	case StateBlocking:
		return "blocking"
	default:
		return "unknown"
	}
}

// ParsePortState maps a daemon state keyword. RSTP "discarding" is reported
// as blocking. Unknown keywords yield -1.
func ParsePortState(s string) PortState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled":
		return StateDisabled
	case "listening":
		return StateListening
	case "learning":
		return StateLearning
	case "forwarding":
		return StateForwarding
	case "blocking", "discarding":
		return StateBlocking
	default:
		return PortState(-1)
	}
}

// PortRole is the CIST port role.
type PortRole int

const (
	RoleDisabled PortRole = iota
	RoleRoot
	RoleDesignated
	RoleAlternate
	RoleBackup
	RoleMaster
)

func (r PortRole) String() string {
	switch r {
	case RoleDisabled:
		return "disabled"
	case RoleRoot:
		return "root"
	case RoleDesignated:
		return "designated"
	case RoleAlternate:
		return "alternate"
	case RoleBackup:
		return "backup"
	case RoleMaster:
		return "master"
	default:
		return "unknown"
	}
}

// ParsePortRole maps a daemon role keyword; unknown keywords are treated as
// disabled.
func ParsePortRole(s string) PortRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "root":
		return RoleRoot
	case "designated":
		return RoleDesignated
	case "alternate":
		return RoleAlternate
	case "backup":
		return RoleBackup
	case "master":
		return RoleMaster
	default:
		return RoleDisabled
	}
}

// AdminP2P is the administrative point-to-point setting of a port.
type AdminP2P int

const (
	P2PAuto AdminP2P = iota
	P2PForceTrue
	P2PForceFalse
)

func (p AdminP2P) String() string {
	switch p {
	case P2PAuto:
		return "auto"
	case P2PForceTrue:
		return "yes"
	case P2PForceFalse:
		return "no"
	default:
		return "unknown"
	}
}

// ParseAdminP2P maps the daemon's admin-point-to-point keyword. Unknown
// keywords yield -1 so the MIB mapping fallback stays visible.
func ParseAdminP2P(s string) AdminP2P {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return P2PAuto
	case "yes", "true", "forcetrue":
		return P2PForceTrue
	case "no", "false", "forcefalse":
		return P2PForceFalse
	default:
		return AdminP2P(-1)
	}
}
