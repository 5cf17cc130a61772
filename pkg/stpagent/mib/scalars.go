// Package mib exposes bridge spanning-tree state as the BRIDGE-MIB dot1dStp
// subtree: sixteen scalars fetched fresh per request, and the port and
// extended port tables materialised from per-port status into cached
// snapshots.
package mib

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vpbank/stp_agent/models"
	"github.com/vpbank/stp_agent/pkg/stpagent/agent"
	"github.com/vpbank/stp_agent/pkg/stpagent/bridgectl"
	"github.com/vpbank/stp_agent/pkg/stpagent/ports"
)

// PortLister lists a bridge's member interfaces in walk order.
type PortLister interface {
	List(bridge string) ([]string, error)
}

// Source bundles the collaborators the MIB reads from.
type Source struct {
	// Bridge is the bridge interface name, e.g. "br0".
	Bridge     string
	Resolver   ports.Resolver
	Client     bridgectl.Client
	Enumerator PortLister
}

func (s Source) bridgeIndex() (int, error) {
	idx, err := s.Resolver.IndexByName(s.Bridge)
	if err != nil {
		return 0, fmt.Errorf("mib: resolve bridge %s: %w", s.Bridge, err)
	}
	return idx, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scalars
// ─────────────────────────────────────────────────────────────────────────────

// Scalars answers the bridge-wide dot1dStp objects. Every lookup except
// dot1dStpProtocolSpecification fetches a fresh BridgeStatus.
type Scalars struct {
	src    Source
	logger *slog.Logger
}

// NewScalars creates the scalar group over src.
func NewScalars(src Source, logger *slog.Logger) *Scalars {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Scalars{src: src, logger: logger}
}

// Get returns the value of the scalar dot1dStp.<id>.0.
func (s *Scalars) Get(ctx context.Context, id int) (agent.Value, error) {
	if id == ScalarProtocolSpecification {
		return agent.Integer(ProtocolSpecIEEE8021D), nil
	}
	if !isScalar(id) {
		return agent.Value{}, agent.ErrNoSuchObject
	}

	idx, err := s.src.bridgeIndex()
	if err != nil {
		return agent.Value{}, err
	}
	st, err := s.src.Client.BridgeStatus(ctx, idx)
	if err != nil {
		return agent.Value{}, fmt.Errorf("mib: bridge status %s: %w", s.src.Bridge, err)
	}

	v, err := scalarValue(id, st)
	if err != nil {
		s.logger.Warn("mib: cannot map scalar", "object", ObjectName(id), "error", err)
		return agent.Value{}, err
	}
	return v, nil
}

func scalarValue(id int, st models.BridgeStatus) (agent.Value, error) {
	switch id {
	case ScalarPriority:
		return agent.Integer(int(st.BridgeID.Priority())), nil
	case ScalarTimeSinceTopologyChange:
		return agent.TimeTicks(TimeTicks(st.TimeSinceTopologyChange)), nil
	case ScalarTopChanges:
		return agent.Counter32(st.TopologyChangeCount), nil
	case ScalarDesignatedRoot:
		return agent.OctetString(BridgeIDOctets(st.DesignatedRoot)), nil
	case ScalarRootCost:
		return agent.Integer(Integer32(uint64(st.RootPathCost))), nil
	case ScalarRootPort:
		return agent.Integer(RootPort(st.RootPortID)), nil
	case ScalarMaxAge:
		return agent.Integer(Centiseconds(st.MaxAge)), nil
	case ScalarHelloTime:
		return agent.Integer(Centiseconds(st.BridgeHelloTime)), nil
	case ScalarHoldTime:
		return agent.Integer(HoldTime(st.TxHoldCount)), nil
	case ScalarForwardDelay:
		return agent.Integer(Centiseconds(st.ForwardDelay)), nil
	case ScalarBridgeMaxAge:
		return agent.Integer(Centiseconds(st.BridgeMaxAge)), nil
	case ScalarBridgeHelloTime:
		return agent.Integer(Centiseconds(st.BridgeHelloTime)), nil
	case ScalarBridgeForwardDelay:
		return agent.Integer(Centiseconds(st.BridgeForwardDelay)), nil
	case ScalarVersion:
		v, err := ProtocolVersion(st.ProtocolVersion)
		if err != nil {
			return agent.Value{}, fmt.Errorf("%w: %s", err, st.ProtocolVersion)
		}
		return agent.Integer(v), nil
	case ScalarTxHoldCount:
		return agent.Integer(Integer32(uint64(st.TxHoldCount))), nil
	}
	return agent.Value{}, agent.ErrNoSuchObject
}

func isScalar(id int) bool {
	for _, s := range ScalarIDs {
		if s == id {
			return true
		}
	}
	return false
}

// Handler returns the agent handler for the scalar mounted at dot1dStp.<id>.
func (s *Scalars) Handler(id int) agent.Handler {
	return scalarHandler{scalars: s, id: id}
}

// scalarHandler serves the single instance .0 of one scalar.
type scalarHandler struct {
	scalars *Scalars
	id      int
}

var instanceZero = []int{0}

func (h scalarHandler) Get(ctx context.Context, suffix []int) (agent.Value, error) {
	if agent.CompareSuffix(suffix, instanceZero) != 0 {
		return agent.Value{}, agent.ErrNoSuchInstance
	}
	return h.scalars.Get(ctx, h.id)
}

func (h scalarHandler) Next(ctx context.Context, suffix []int) ([]int, agent.Value, error) {
	if agent.CompareSuffix(instanceZero, suffix) <= 0 {
		return nil, agent.Value{}, agent.ErrEndOfView
	}
	v, err := h.scalars.Get(ctx, h.id)
	if err != nil {
		return nil, agent.Value{}, err
	}
	return []int{0}, v, nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
