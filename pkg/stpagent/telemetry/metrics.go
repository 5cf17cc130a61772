// Package telemetry holds the agent's Prometheus self-metrics and the HTTP
// endpoint that exposes them.
//
// Every recording method is safe to call on a nil *Metrics, so components can
// be built without telemetry in tests.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "stpagent"

// Metrics is the set of collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	rows            *prometheus.GaugeVec
	skippedPorts    *prometheus.CounterVec
	backendCalls    *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "SNMP requests processed, by PDU type.",
			},
			[]string{"pdu"},
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_errors_total",
				Help:      "SNMP responses carrying an error status, by status.",
			},
			[]string{"status"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_packets_total",
				Help:      "Inbound packets dropped without a response, by reason.",
			},
			[]string{"reason"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "table_refresh_total",
				Help:      "Table snapshot rebuilds, by table and result.",
			},
			[]string{"table", "result"},
		),
		refreshDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "table_refresh_duration_seconds",
				Help:      "Time spent rebuilding a table snapshot.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table"},
		),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "table_rows",
				Help:      "Rows in the current table snapshot.",
			},
			[]string{"table"},
		),
		skippedPorts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ports_skipped_total",
				Help:      "Ports left out of a snapshot because their status could not be read.",
			},
			[]string{"table"},
		),
		backendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_calls_total",
				Help:      "Status queries sent to the spanning-tree daemon, by operation and result.",
			},
			[]string{"op", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestErrors,
		m.dropped,
		m.refreshes,
		m.refreshDuration,
		m.rows,
		m.skippedPorts,
		m.backendCalls,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording
// ─────────────────────────────────────────────────────────────────────────────

func (m *Metrics) ObserveRequest(pdu string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(pdu).Inc()
}

func (m *Metrics) ObserveRequestError(status string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveDrop(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// ObserveRefresh records one snapshot rebuild. rows is ignored on failure,
// where the table is left empty.
func (m *Metrics) ObserveRefresh(table string, took time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
		rows = 0
	}
	m.refreshes.WithLabelValues(table, result).Inc()
	m.refreshDuration.WithLabelValues(table).Observe(took.Seconds())
	m.rows.WithLabelValues(table).Set(float64(rows))
}

func (m *Metrics) ObserveSkippedPort(table string) {
	if m == nil {
		return
	}
	m.skippedPorts.WithLabelValues(table).Inc()
}

func (m *Metrics) ObserveBackendCall(op string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.backendCalls.WithLabelValues(op, result).Inc()
}
