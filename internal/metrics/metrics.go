// Package metrics exposes the gateway's operational counters and latency
// histograms to Prometheus.
//
// Grounded on DimaJoyti-ai-agentic-crypto-browser/pkg/observability/metrics.go,
// which wraps github.com/prometheus/client_golang behind an OpenTelemetry
// metrics pipeline. The gateway has no tracing requirement, so Collector
// uses client_golang's promauto constructors directly — the same
// dependency, without the otel SDK layered on top.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every metric the gateway emits. The zero value is not
// usable; construct with New.
type Collector struct {
	rejections       *prometheus.CounterVec
	transmissions    prometheus.Counter
	unknownResponses prometheus.Counter
	queueWaitNs      prometheus.Histogram
	roundTripNs      prometheus.Histogram
	pendingDepth     prometheus.Gauge
	sessionOpen      prometheus.Gauge
}

// New registers the gateway's metrics against reg and returns a Collector.
// Passing a fresh prometheus.NewRegistry() keeps gateway metrics isolated
// from the default global registry, which matters for tests that
// construct more than one gateway in the same process.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_rejections_total",
			Help: "Orders rejected at the ingress boundary or drained from PendingStore by the transmitter, by reason.",
		}, []string{"reason"}),
		transmissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_transmissions_total",
			Help: "Orders successfully handed to the exchange.",
		}),
		unknownResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_unknown_responses_total",
			Help: "Exchange responses for an order id the latency tracker had no record of.",
		}),
		queueWaitNs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_queue_wait_ns",
			Help:    "Nanoseconds an order spent in PendingStore before transmission.",
			Buckets: prometheus.ExponentialBuckets(1_000, 4, 12),
		}),
		roundTripNs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_round_trip_ns",
			Help:    "Nanoseconds between order transmission and the exchange's response.",
			Buckets: prometheus.ExponentialBuckets(1_000, 4, 12),
		}),
		pendingDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_pending_depth",
			Help: "Number of orders held in PendingStore, sampled each time the transmitter pops one.",
		}),
		sessionOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_session_open",
			Help: "1 while the trading session is open, 0 while closed.",
		}),
	}
}

// RejectOrder increments the rejection counter for the given reason.
func (c *Collector) RejectOrder(reason string) {
	c.rejections.WithLabelValues(reason).Inc()
}

// TransmitOrder increments the transmission counter.
func (c *Collector) TransmitOrder() {
	c.transmissions.Inc()
}

// UnknownResponse increments the unknown-response counter.
func (c *Collector) UnknownResponse() {
	c.unknownResponses.Inc()
}

// ObserveQueueWait records a completed queue-wait latency sample.
func (c *Collector) ObserveQueueWait(ns int64) {
	c.queueWaitNs.Observe(float64(ns))
}

// ObserveRoundTrip records a completed round-trip latency sample.
func (c *Collector) ObserveRoundTrip(ns int64) {
	c.roundTripNs.Observe(float64(ns))
}

// SetPendingDepth reports the current PendingStore size.
func (c *Collector) SetPendingDepth(n int) {
	c.pendingDepth.Set(float64(n))
}

// SetSessionOpen reports the current session state.
func (c *Collector) SetSessionOpen(open bool) {
	if open {
		c.sessionOpen.Set(1)
	} else {
		c.sessionOpen.Set(0)
	}
}
