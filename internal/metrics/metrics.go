// Package metrics exposes ledger counters and gauges to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

const namespace = "assetledger"

// Result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds the collectors on a private registry, so several nodes (or
// tests) in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	operations       *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	events           *prometheus.CounterVec
	voucherRemaining prometheus.Gauge
	assets           prometheus.Gauge
}

// New registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations by name and result",
			},
			[]string{"op", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation latency in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"op"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Events emitted by kind",
			},
			[]string{"kind"},
		),
		voucherRemaining: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "voucher",
			Name:      "remaining",
			Help:      "Vouchers left in the pool",
		}),
		assets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "assets",
			Help:      "Registered token pairs",
		}),
	}
}

// Observe records one operation. Errors matching any of rejected count as
// caller rejections; anything else as an internal error.
func (m *Metrics) Observe(op string, start time.Time, err error, rejected ...error) {
	result := ResultOK
	if err != nil {
		result = ResultError
		for _, r := range rejected {
			if errors.Is(err, r) {
				result = ResultRejected
				break
			}
		}
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// CountEvent increments the per-kind event counter. It has the signature of
// an event bus handler.
func (m *Metrics) CountEvent(e event.Event) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
}

// SetVoucherRemaining updates the pool gauge.
func (m *Metrics) SetVoucherRemaining(a types.Amount) {
	m.voucherRemaining.Set(a.Float64())
}

// SetAssets updates the registered asset gauge.
func (m *Metrics) SetAssets(n int) {
	m.assets.Set(float64(n))
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
