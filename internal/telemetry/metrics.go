// Package telemetry exposes Prometheus metrics for the kitchen board and the API.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rotisserie-backend/internal/board"
)

// Slot operation labels.
const (
	OpOccupy  = "occupy"
	OpRelease = "release"
	OpReady   = "ready"
)

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	machines   prometheus.Gauge
	capacity   prometheus.Gauge
	occupied   prometheus.Gauge
	ready      prometheus.Gauge
	slotOps    *prometheus.CounterVec
	alertsSent *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers all metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		machines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotisserie_machines",
			Help: "Number of machines on the board.",
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotisserie_slots_capacity",
			Help: "Total number of slots across all machines.",
		}),
		occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotisserie_slots_occupied",
			Help: "Number of slots currently cooking an order.",
		}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotisserie_slots_ready",
			Help: "Number of occupied slots whose cook time has elapsed.",
		}),
		slotOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rotisserie_slot_operations_total",
			Help: "Slot operations by kind.",
		}, []string{"op"}),
		alertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rotisserie_push_notifications_total",
			Help: "Web push notifications by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rotisserie_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rotisserie_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.machines, m.capacity, m.occupied, m.ready,
		m.slotOps, m.alertsSent,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// ObserveSnapshot sets the board gauges from a snapshot.
func (m *Metrics) ObserveSnapshot(s board.Snapshot) {
	m.machines.Set(float64(len(s.Machines)))
	m.capacity.Set(float64(s.TotalCapacity))
	m.occupied.Set(float64(s.OccupiedCount))
	m.ready.Set(float64(s.ReadyCount))
}

// SlotOperation counts one slot operation.
func (m *Metrics) SlotOperation(op string) {
	m.slotOps.WithLabelValues(op).Inc()
}

// PushResult counts one web push attempt.
func (m *Metrics) PushResult(result string) {
	m.alertsSent.WithLabelValues(result).Inc()
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
