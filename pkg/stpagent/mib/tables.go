package mib

import (
	"log/slog"

	"github.com/vpbank/stp_agent/models"
	"github.com/vpbank/stp_agent/pkg/stpagent/agent"
	"github.com/vpbank/stp_agent/pkg/stpagent/telemetry"
)

// Table names used in logs and metrics.
const (
	PortTableName    = "dot1dStpPortTable"
	ExtPortTableName = "dot1dStpExtPortTable"
)

// ─────────────────────────────────────────────────────────────────────────────
// dot1dStpPortTable
// ─────────────────────────────────────────────────────────────────────────────

// PortRow is one dot1dStpPortEntry, already in MIB representation.
type PortRow struct {
	Port               int
	Priority           int
	State              int
	Enable             int
	PathCost           int
	DesignatedRoot     []byte
	DesignatedCost     int
	DesignatedBridge   []byte
	DesignatedPort     []byte
	ForwardTransitions uint32
	PathCost32         int
}

// NewPortRow maps a port's status to its dot1dStpPortEntry.
func NewPortRow(_ models.BridgeStatus, p models.PortStatus) PortRow {
	return PortRow{
		Port:               int(p.PortID.Number()),
		Priority:           PortPriority(p.PortID),
		State:              PortState(p.State),
		Enable:             PortEnable(p.Role),
		PathCost:           PathCost16(p.ExternalPathCost),
		DesignatedRoot:     BridgeIDOctets(p.DesignatedRoot),
		DesignatedCost:     Integer32(uint64(p.DesignatedCost)),
		DesignatedBridge:   BridgeIDOctets(p.DesignatedBridge),
		DesignatedPort:     PortIDOctets(p.DesignatedPort),
		ForwardTransitions: p.ForwardTransitions,
		PathCost32:         PathCost32(p.ExternalPathCost),
	}
}

func (r PortRow) Index() int { return r.Port }

func (r PortRow) Column(col int) (agent.Value, bool) {
	switch col {
	case ColPort:
		return agent.Integer(r.Port), true
	case ColPortPriority:
		return agent.Integer(r.Priority), true
	case ColPortState:
		return agent.Integer(r.State), true
	case ColPortEnable:
		return agent.Integer(r.Enable), true
	case ColPortPathCost:
		return agent.Integer(r.PathCost), true
	case ColPortDesignatedRoot:
		return agent.OctetString(r.DesignatedRoot), true
	case ColPortDesignatedCost:
		return agent.Integer(r.DesignatedCost), true
	case ColPortDesignatedBridge:
		return agent.OctetString(r.DesignatedBridge), true
	case ColPortDesignatedPort:
		return agent.OctetString(r.DesignatedPort), true
	case ColPortForwardTransitions:
		return agent.Counter32(r.ForwardTransitions), true
	case ColPortPathCost32:
		return agent.Integer(r.PathCost32), true
	}
	return agent.Value{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// dot1dStpExtPortTable
// ─────────────────────────────────────────────────────────────────────────────

// ExtPortRow is one dot1dStpExtPortEntry.
type ExtPortRow struct {
	Port              int
	ProtocolMigration int
	AdminEdgePort     int
	OperEdgePort      int
	AdminPointToPoint int
	OperPointToPoint  int
	AdminPathCost     int
}

// NewExtPortRow maps a port's status to its dot1dStpExtPortEntry.
// ProtocolMigration always reads back false.
func NewExtPortRow(_ models.BridgeStatus, p models.PortStatus) ExtPortRow {
	return ExtPortRow{
		Port:              int(p.PortID.Number()),
		ProtocolMigration: TruthFalse,
		AdminEdgePort:     TruthValue(p.AdminEdgePort),
		OperEdgePort:      TruthValue(p.OperEdgePort),
		AdminPointToPoint: AdminPointToPoint(p.AdminPointToPoint),
		OperPointToPoint:  TruthValue(p.OperPointToPoint),
		AdminPathCost:     Integer32(uint64(p.AdminExternalPathCost)),
	}
}

func (r ExtPortRow) Index() int { return r.Port }

func (r ExtPortRow) Column(col int) (agent.Value, bool) {
	switch col {
	case ColExtProtocolMigration:
		return agent.Integer(r.ProtocolMigration), true
	case ColExtAdminEdgePort:
		return agent.Integer(r.AdminEdgePort), true
	case ColExtOperEdgePort:
		return agent.Integer(r.OperEdgePort), true
	case ColExtAdminPointToPoint:
		return agent.Integer(r.AdminPointToPoint), true
	case ColExtOperPointToPoint:
		return agent.Integer(r.OperPointToPoint), true
	case ColExtAdminPathCost:
		return agent.Integer(r.AdminPathCost), true
	}
	return agent.Value{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// MIB
// ─────────────────────────────────────────────────────────────────────────────

// MIB is the complete dot1dStp group: scalars plus both port tables, each
// table with its own snapshot.
type MIB struct {
	Scalars      *Scalars
	PortTable    *Materializer[PortRow]
	ExtPortTable *Materializer[ExtPortRow]
}

// New wires the dot1dStp group over src.
func New(src Source, cfg Config, logger *slog.Logger, metrics *telemetry.Metrics) *MIB {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &MIB{
		Scalars:      NewScalars(src, logger),
		PortTable:    NewMaterializer(PortTableName, src, NewPortRow, cfg, logger, metrics),
		ExtPortTable: NewMaterializer(ExtPortTableName, src, NewExtPortRow, cfg, logger, metrics),
	}
}

// Mount attaches every scalar and both tables to reg under Dot1dStp.
func (m *MIB) Mount(reg *agent.Registry) error {
	for _, id := range ScalarIDs {
		if err := reg.Mount(Dot1dStp.Append(id), m.Scalars.Handler(id)); err != nil {
			return err
		}
	}
	portCols := []int{
		ColPort, ColPortPriority, ColPortState, ColPortEnable, ColPortPathCost,
		ColPortDesignatedRoot, ColPortDesignatedCost, ColPortDesignatedBridge,
		ColPortDesignatedPort, ColPortForwardTransitions, ColPortPathCost32,
	}
	if err := reg.Mount(Dot1dStp.Append(PortTableID), NewTable(m.PortTable, portCols...)); err != nil {
		return err
	}
	extCols := []int{
		ColExtProtocolMigration, ColExtAdminEdgePort, ColExtOperEdgePort,
		ColExtAdminPointToPoint, ColExtOperPointToPoint, ColExtAdminPathCost,
	}
	return reg.Mount(Dot1dStp.Append(ExtPortTableID), NewTable(m.ExtPortTable, extCols...))
}

// Registry returns a fresh registry with the group mounted.
func (m *MIB) Registry() (*agent.Registry, error) {
	reg := agent.NewRegistry()
	if err := m.Mount(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
