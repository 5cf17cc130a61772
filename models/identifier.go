package models

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// BridgeID
// ─────────────────────────────────────────────────────────────────────────────

// BridgeID is an 802.1D bridge identifier: a 16-bit priority followed by the
// bridge MAC address. With 802.1t the priority carries a 4-bit priority in
// its high nibble and a 12-bit system ID extension below it; this type keeps
// the 16 bits as a whole.
type BridgeID struct {
	priority uint16
	address  [6]byte
}

// NewBridgeID builds a BridgeID from a priority and a 6-byte MAC. A short or
// long hardware address is an error.
func NewBridgeID(priority uint16, mac net.HardwareAddr) (BridgeID, error) {
	if len(mac) != 6 {
		return BridgeID{}, fmt.Errorf("models: bridge id: MAC must be 6 bytes, got %d", len(mac))
	}
	id := BridgeID{priority: priority}
	copy(id.address[:], mac)
	return id, nil
}

// MustBridgeID is NewBridgeID for literals; it panics on malformed input.
func MustBridgeID(priority uint16, mac string) BridgeID {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		panic(err)
	}
	id, err := NewBridgeID(priority, hw)
	if err != nil {
		panic(err)
	}
	return id
}

// Priority returns the full 16-bit priority field.
func (b BridgeID) Priority() uint16 { return b.priority }

// Address returns a copy of the bridge MAC address.
func (b BridgeID) Address() net.HardwareAddr {
	out := make(net.HardwareAddr, 6)
	copy(out, b.address[:])
	return out
}

// Bytes returns the 8-octet wire form: priority big-endian, then the MAC.
func (b BridgeID) Bytes() []byte {
	out := make([]byte, 8)
	out[0] = byte(b.priority / 256)
	out[1] = byte(b.priority % 256)
	copy(out[2:], b.address[:])
	return out
}

// String renders the identifier as "8000.aabbccddeeff", the form used by
// brctl and the kernel sysfs bridge_id attribute.
func (b BridgeID) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04x.", b.priority)
	for _, octet := range b.address {
		fmt.Fprintf(&sb, "%02x", octet)
	}
	return sb.String()
}

// BridgeIDFromBytes is the inverse of Bytes.
func BridgeIDFromBytes(raw []byte) (BridgeID, error) {
	if len(raw) != 8 {
		return BridgeID{}, fmt.Errorf("models: bridge id: want 8 octets, got %d", len(raw))
	}
	id := BridgeID{priority: uint16(raw[0])<<8 | uint16(raw[1])}
	copy(id.address[:], raw[2:])
	return id, nil
}

// ParseBridgeID accepts the two textual forms seen on Linux hosts:
//
//	8000.aabbccddeeff        brctl / sysfs
//	8.000.AA:BB:CC:DD:EE:FF  mstpctl (priority nibble, system id, MAC)
func ParseBridgeID(s string) (BridgeID, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 2:
		prio, err := strconv.ParseUint(parts[0], 16, 16)
		if err != nil {
			return BridgeID{}, fmt.Errorf("models: bridge id %q: priority: %w", s, err)
		}
		mac := parts[1]
		if len(mac) != 12 {
			return BridgeID{}, fmt.Errorf("models: bridge id %q: malformed address", s)
		}
		var hw [6]byte
		for i := range hw {
			v, err := strconv.ParseUint(mac[i*2:i*2+2], 16, 8)
			if err != nil {
				return BridgeID{}, fmt.Errorf("models: bridge id %q: address: %w", s, err)
			}
			hw[i] = byte(v)
		}
		return BridgeID{priority: uint16(prio), address: hw}, nil
	case 3:
		nibble, err := strconv.ParseUint(parts[0], 16, 4)
		if err != nil {
			return BridgeID{}, fmt.Errorf("models: bridge id %q: priority: %w", s, err)
		}
		sysID, err := strconv.ParseUint(parts[1], 16, 12)
		if err != nil {
			return BridgeID{}, fmt.Errorf("models: bridge id %q: system id: %w", s, err)
		}
		hw, err := net.ParseMAC(parts[2])
		if err != nil {
			return BridgeID{}, fmt.Errorf("models: bridge id %q: address: %w", s, err)
		}
		return NewBridgeID(uint16(nibble)<<12|uint16(sysID), hw)
	default:
		return BridgeID{}, fmt.Errorf("models: bridge id %q: unrecognised format", s)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// PortID
// ─────────────────────────────────────────────────────────────────────────────

// PortID is an 802.1D port identifier: a 4-bit priority in the high nibble
// and a 12-bit port number below it.
type PortID uint16

// NewPortID packs a priority and a port number. Only the high nibble of
// priority and the low 12 bits of number are kept.
func NewPortID(priority uint8, number uint16) PortID {
	return PortID(uint16(priority&0xf0)<<8 | number&0x0fff)
}

// Priority returns the port priority as the high nibble of the high byte,
// i.e. one of 0, 16, 32 … 240.
func (p PortID) Priority() uint8 { return uint8(uint16(p)>>8) & 0xf0 }

// Number returns the 12-bit port number.
func (p PortID) Number() uint16 { return uint16(p) & 0x0fff }

// Bytes returns the 2-octet wire form, big-endian.
func (p PortID) Bytes() []byte {
	return []byte{byte(uint16(p) >> 8), byte(uint16(p))}
}

// String renders the identifier as four hex digits, e.g. "8001".
func (p PortID) String() string { return fmt.Sprintf("%04x", uint16(p)) }

// ParsePortID accepts "8001" (four hex digits) or the mstpctl form "8.001".
func ParsePortID(s string) (PortID, error) {
	s = strings.TrimSpace(s)
	if prio, num, ok := strings.Cut(s, "."); ok {
		p, err := strconv.ParseUint(prio, 16, 4)
		if err != nil {
			return 0, fmt.Errorf("models: port id %q: priority: %w", s, err)
		}
		n, err := strconv.ParseUint(num, 16, 12)
		if err != nil {
			return 0, fmt.Errorf("models: port id %q: number: %w", s, err)
		}
		return NewPortID(uint8(p)<<4, uint16(n)), nil
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("models: port id %q: %w", s, err)
	}
	return PortID(v), nil
}
