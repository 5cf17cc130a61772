// Package bridgectl queries the spanning-tree control plane for bridge-wide
// and per-port CIST status.
//
// The Client interface is all the MIB layer depends on. MSTPCtl implements it
// on top of the mstpctl command of mstpd; tests substitute fakes.
package bridgectl

import (
	"context"
	"errors"

	"github.com/vpbank/stp_agent/models"
	"github.com/vpbank/stp_agent/pkg/stpagent/telemetry"
)

// ErrNotFound means the daemon holds no state for the requested bridge or
// port, or the index does not name an interface.
var ErrNotFound = errors.New("bridgectl: not found")

// Client fetches spanning-tree status. Both calls block until the daemon
// answers or fails; they are not retried.
type Client interface {
	BridgeStatus(ctx context.Context, bridgeIndex int) (models.BridgeStatus, error)
	PortStatus(ctx context.Context, bridgeIndex, portIndex int) (models.PortStatus, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Instrumented
// ─────────────────────────────────────────────────────────────────────────────

// Instrumented counts calls and failures of the wrapped Client.
type Instrumented struct {
	next    Client
	metrics *telemetry.Metrics
}

// WithMetrics wraps c so each query is recorded on m. A nil m returns c.
func WithMetrics(c Client, m *telemetry.Metrics) Client {
	if m == nil {
		return c
	}
	return &Instrumented{next: c, metrics: m}
}

func (i *Instrumented) BridgeStatus(ctx context.Context, bridgeIndex int) (models.BridgeStatus, error) {
	st, err := i.next.BridgeStatus(ctx, bridgeIndex)
	i.metrics.ObserveBackendCall("bridge", err)
	return st, err
}

func (i *Instrumented) PortStatus(ctx context.Context, bridgeIndex, portIndex int) (models.PortStatus, error) {
	st, err := i.next.PortStatus(ctx, bridgeIndex, portIndex)
	i.metrics.ObserveBackendCall("port", err)
	return st, err
}
