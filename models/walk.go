package models

import "time"

// WalkResult is the payload produced by one stpwalk run against an agent.
type WalkResult struct {
	Timestamp time.Time    `json:"timestamp"`
	Target    Target       `json:"target"`
	Objects   []Object     `json:"objects"`
	Metadata  WalkMetadata `json:"metadata"`
}

// Target identifies the walked agent.
type Target struct {
	Address     string `json:"address"`
	SNMPVersion string `json:"snmp_version"` // "1", "2c" or "3"
	Root        string `json:"root"`
}

// Object is a single decoded variable binding. Value is already converted to
// a native Go type (int64, uint64, string or bool).
type Object struct {
	OID      string      `json:"oid"`
	Name     string      `json:"name"`
	Instance string      `json:"instance"`
	Value    interface{} `json:"value"`
	Type     string      `json:"type"`            // SNMP PDU type, e.g. "Counter32"
	Syntax   string      `json:"syntax"`          // display syntax, e.g. "BridgeId"
	Label    string      `json:"label,omitempty"` // enum label, e.g. "forwarding"
}

// WalkMetadata carries timing and status for the walk itself.
type WalkMetadata struct {
	DurationMs int64  `json:"duration_ms"`
	PDUCount   int    `json:"pdu_count"`
	Status     string `json:"status"` // "success" | "partial" | "error"
	Error      string `json:"error,omitempty"`
}
