// Package agent implements a read-only SNMP v1/v2c command responder.
//
// Pipeline position:
//
//	UDP port 161  →  [Listener]  →  Dispatcher  →  Registry  →  mounted Handlers
//
// The Listener owns the socket and community check, the Dispatcher maps
// GET, GETNEXT and GETBULK onto Registry lookups, and Handlers (the
// dot1dStp scalars and tables) produce the values. v3 packets are dropped.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/gosnmp/gosnmp"

	"github.com/vpbank/stp_agent/pkg/stpagent/telemetry"
)

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config controls the Listener behaviour.
type Config struct {
	// ListenAddr is the UDP address to bind to (default "0.0.0.0:161").
	ListenAddr string

	// Community is the read community. Requests carrying any other
	// community are dropped (default "public").
	Community string

	// MaxBulkVarbinds caps GETBULK responses (default 512).
	MaxBulkVarbinds int

	// MaxPacketSize is the receive buffer size (default 65507).
	MaxPacketSize int

	// Metrics receives request and drop counters. May be nil.
	Metrics *telemetry.Metrics
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ListenAddr == "" {
		out.ListenAddr = "0.0.0.0:161"
	}
	if out.Community == "" {
		out.Community = "public"
	}
	if out.MaxBulkVarbinds <= 0 {
		out.MaxBulkVarbinds = DefaultMaxBulkVarbinds
	}
	if out.MaxPacketSize <= 0 {
		out.MaxPacketSize = 65507
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Listener
// ─────────────────────────────────────────────────────────────────────────────

// Listener receives SNMP requests on UDP and answers them from a Registry.
// Requests are served one at a time in arrival order.
type Listener struct {
	cfg        Config
	logger     *slog.Logger
	dispatcher *Dispatcher
	decoder    *gosnmp.GoSNMP

	communityMu sync.RWMutex
	community   string

	mu      sync.Mutex
	conn    *net.UDPConn
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Listener serving reg.
func New(cfg Config, reg *Registry, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	c := cfg.withDefaults()
	return &Listener{
		cfg:        c,
		logger:     logger,
		dispatcher: NewDispatcher(reg, c.MaxBulkVarbinds, logger, c.Metrics),
		decoder: &gosnmp.GoSNMP{
			Version: gosnmp.Version2c,
			Logger:  gosnmp.NewLogger(slogAdapter{logger}),
		},
		community: c.Community,
	}
}

// Addr returns the bound address once started, else the configured one.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return l.conn.LocalAddr().String()
	}
	return l.cfg.ListenAddr
}

// Reconfigure swaps the community and, when reg is non-nil, the registry.
// In-flight requests finish against the old values.
func (l *Listener) Reconfigure(community string, reg *Registry) {
	if community != "" {
		l.communityMu.Lock()
		l.community = community
		l.communityMu.Unlock()
	}
	if reg != nil {
		l.dispatcher.SetRegistry(reg)
	}
}

// Start binds the UDP socket and serves requests in a background goroutine
// until Stop is called or ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return fmt.Errorf("agent: already running")
	}

	addr, err := net.ResolveUDPAddr("udp", l.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("agent: resolve %s: %w", l.cfg.ListenAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("agent: listen %s: %w", l.cfg.ListenAddr, err)
	}

	l.conn = conn
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})

	go l.serve(ctx, conn, l.doneCh)
	go func(stopCh chan struct{}) {
		select {
		case <-ctx.Done():
			l.Stop()
		case <-stopCh:
		}
	}(l.stopCh)

	l.logger.Info("agent: listening", "addr", conn.LocalAddr().String())
	return nil
}

// Stop closes the socket and waits for the serve loop to exit. It is safe
// to call Stop multiple times.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}
	l.running = false

	_ = l.conn.Close()
	close(l.stopCh)
	<-l.doneCh

	l.logger.Info("agent: stopped")
}

func (l *Listener) serve(ctx context.Context, conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, l.cfg.MaxPacketSize)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("agent: read error", "error", err)
			continue
		}

		out := l.HandlePacket(ctx, buf[:n])
		if out == nil {
			continue
		}
		if _, err := conn.WriteToUDP(out, remote); err != nil {
			l.logger.Warn("agent: write error", "remote", remote, "error", err)
		}
	}
}

// HandlePacket decodes one request datagram and returns the encoded
// response, or nil when the request is dropped.
func (l *Listener) HandlePacket(ctx context.Context, msg []byte) []byte {
	version, ok := peekVersion(msg)
	if !ok {
		l.drop("malformed", nil)
		return nil
	}
	if version != gosnmp.Version1 && version != gosnmp.Version2c {
		l.drop("version", nil)
		return nil
	}

	req, err := l.decoder.SnmpDecodePacket(msg)
	if err != nil {
		l.drop("malformed", err)
		return nil
	}

	l.communityMu.RLock()
	community := l.community
	l.communityMu.RUnlock()
	if req.Community != community {
		l.drop("community", nil)
		return nil
	}

	resp := l.dispatcher.Handle(ctx, req)
	if resp == nil {
		return nil
	}
	out, err := resp.MarshalMsg()
	if err != nil {
		l.logger.Warn("agent: encode response", "request_id", req.RequestID, "error", err)
		l.cfg.Metrics.ObserveDrop("encode")
		return nil
	}
	return out
}

func (l *Listener) drop(reason string, err error) {
	l.cfg.Metrics.ObserveDrop(reason)
	if err != nil {
		l.logger.Debug("agent: dropped request", "reason", reason, "error", err)
		return
	}
	l.logger.Debug("agent: dropped request", "reason", reason)
}

// peekVersion reads the msgVersion INTEGER that opens every SNMP message:
// SEQUENCE { INTEGER version, ... }.
func peekVersion(msg []byte) (gosnmp.SnmpVersion, bool) {
	if len(msg) < 2 || msg[0] != 0x30 {
		return 0, false
	}
	pos := 2
	if msg[1]&0x80 != 0 {
		pos += int(msg[1] & 0x7f)
	}
	if len(msg) < pos+3 || msg[pos] != 0x02 || msg[pos+1] != 0x01 {
		return 0, false
	}
	return gosnmp.SnmpVersion(msg[pos+2]), true
}

// ─────────────────────────────────────────────────────────────────────────────
// Utilities
// ─────────────────────────────────────────────────────────────────────────────

type noopWriter struct{}

func (noopWriter) Write(b []byte) (int, error) { return len(b), nil }

// slogAdapter bridges slog.Logger to gosnmp's Printf-style Logger.
type slogAdapter struct{ l *slog.Logger }

func (a slogAdapter) Print(v ...interface{}) {
	a.l.Debug(fmt.Sprint(v...))
}

func (a slogAdapter) Printf(format string, v ...interface{}) {
	a.l.Debug(fmt.Sprintf(format, v...))
}
