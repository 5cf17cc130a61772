package mib

import (
	"errors"
	"math"
	"time"

	"github.com/vpbank/stp_agent/models"
)

// ErrUnknownProtocolVersion is returned when a bridge reports a protocol
// version the dot1dStpVersion enumeration cannot express.
var ErrUnknownProtocolVersion = errors.New("mib: unknown protocol version")

// MIB enumeration values.
const (
	ProtocolSpecIEEE8021D = 3

	VersionSTPCompatible = 0
	VersionRSTP          = 2

	TruthTrue  = 1
	TruthFalse = 2

	PortEnabled  = 1
	PortDisabled = 2

	PortStateDisabled   = 1
	PortStateBlocking   = 2
	PortStateListening  = 3
	PortStateLearning   = 4
	PortStateForwarding = 5

	AdminP2PForceTrue  = 0
	AdminP2PForceFalse = 1
	AdminP2PAuto       = 2

	// MaxPathCost16 is the ceiling of the legacy dot1dStpPortPathCost column.
	MaxPathCost16 = 65535
)

// Fallback policies for daemon values the MIB enumerations do not cover.
// They are reported rather than rejected.
const (
	FallbackPortState         = PortStateForwarding
	FallbackAdminPointToPoint = AdminP2PForceTrue
)

// BridgeIDOctets encodes a bridge identifier as the 8-octet BridgeId.
func BridgeIDOctets(id models.BridgeID) []byte { return id.Bytes() }

// PortIDOctets encodes a port identifier as the 2-octet designated-port value.
func PortIDOctets(p models.PortID) []byte { return p.Bytes() }

// Centiseconds scales a timer in whole seconds to hundredths of a second.
func Centiseconds(seconds uint32) int {
	return Integer32(uint64(seconds) * 100)
}

// HoldTime is the legacy dot1dStpHoldTime derived from the transmit hold count.
func HoldTime(txHoldCount uint32) int { return Centiseconds(txHoldCount) }

// TimeTicks converts an elapsed duration to TimeTicks (10 ms units).
func TimeTicks(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	ticks := d / (10 * time.Millisecond)
	if ticks > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ticks)
}

// RootPort is the port number part of the root port identifier; 0 when the
// bridge is root.
func RootPort(id models.PortID) int { return int(id.Number()) }

// ProtocolVersion maps the running protocol to dot1dStpVersion.
func ProtocolVersion(v models.ProtocolVersion) (int, error) {
	switch v {
	case models.ProtocolSTP:
		return VersionSTPCompatible, nil
	case models.ProtocolRSTP:
		return VersionRSTP, nil
	default:
		return 0, ErrUnknownProtocolVersion
	}
}

// AdminPointToPoint maps the administrative point-to-point setting.
func AdminPointToPoint(p models.AdminP2P) int {
	switch p {
	case models.P2PForceTrue:
		return AdminP2PForceTrue
	case models.P2PForceFalse:
		return AdminP2PForceFalse
	case models.P2PAuto:
		return AdminP2PAuto
	default:
		return FallbackAdminPointToPoint
	}
}

// PortState maps the kernel port state to dot1dStpPortState.
func PortState(s models.PortState) int {
	switch s {
	case models.StateDisabled:
		return PortStateDisabled
	case models.StateBlocking:
		return PortStateBlocking
	case models.StateListening:
		return PortStateListening
	case models.StateLearning:
		return PortStateLearning
	case models.StateForwarding:
		return PortStateForwarding
	default:
		return FallbackPortState
	}
}

// TruthValue encodes a boolean as SNMPv2-TC TruthValue.
func TruthValue(b bool) int {
	if b {
		return TruthTrue
	}
	return TruthFalse
}

// PortEnable reports a port as enabled unless its role is disabled.
func PortEnable(r models.PortRole) int {
	if r == models.RoleDisabled {
		return PortDisabled
	}
	return PortEnabled
}

// PortPriority is the priority nibble of a port identifier, 0..240.
func PortPriority(p models.PortID) int { return int(p.Priority()) }

// PathCost16 saturates a path cost at the legacy column's ceiling.
func PathCost16(c uint32) int {
	if c >= MaxPathCost16 {
		return MaxPathCost16
	}
	return int(c)
}

// PathCost32 is the unsaturated path cost. Costs above math.MaxInt32 cannot
// be encoded as Integer32 and are clamped; every cost up to that bound (the
// 802.1D range ends at 200000000) passes through unchanged.
func PathCost32(c uint32) int { return Integer32(uint64(c)) }

// Integer32 clamps v to the Integer32 range.
func Integer32(v uint64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
