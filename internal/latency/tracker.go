// Package latency tracks the three timestamps spec §4.5 defines for every
// transmitted order (ingress, send, response) and emits completed records
// to a stats sink the instant a response arrives.
package latency

import (
	"log"
	"sync"

	"github.com/rishav/order-gateway/internal/audit"
	"github.com/rishav/order-gateway/internal/order"
	"github.com/rishav/order-gateway/internal/statssink"
)

// AuditLog is the subset of internal/audit.Log the tracker writes to.
// Optional: a nil AuditLog (the default) disables event recording.
type AuditLog interface {
	Append(event interface{}) (uint64, error)
}

// Metrics is the subset of internal/metrics.Collector the tracker reports
// to. Kept as a narrow interface so tests can supply a no-op or recording
// stub without importing Prometheus.
type Metrics interface {
	UnknownResponse()
	ObserveQueueWait(ns int64)
	ObserveRoundTrip(ns int64)
}

// Tracker records per-order timestamps from admission through response and
// hands completed records to a Sink (spec §4.5).
type Tracker struct {
	mu      sync.Mutex
	records map[uint64]order.LatencyRecord
	sink    statssink.Sink
	metrics Metrics
	audit   AuditLog
}

// SetAuditLog attaches an optional durable event log; every response is
// recorded as a ResponseReceivedEvent, or an UnknownResponseEvent if no
// matching record exists. Must be called before the tracker is used
// concurrently.
func (t *Tracker) SetAuditLog(a AuditLog) {
	t.audit = a
}

// New returns a Tracker emitting completed records to sink. metrics may be
// nil, in which case metric reporting is skipped.
func New(sink statssink.Sink, metrics Metrics) *Tracker {
	return &Tracker{
		records: make(map[uint64]order.LatencyRecord),
		sink:    sink,
		metrics: metrics,
	}
}

// RecordIngress stores the ingress timestamp for a newly admitted order.
func (t *Tracker) RecordIngress(orderID uint64, ingressNs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[orderID] = order.LatencyRecord{IngressNs: ingressNs}
}

// RecordSend stores the send timestamp for an order the transmitter just
// handed to the exchange. Called by the transmitter, never concurrently
// with itself for the same order id (spec §5).
func (t *Tracker) RecordSend(orderID uint64, sendNs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[orderID]
	if !ok {
		log.Printf("latency: send recorded for untracked order %d", orderID)
		return
	}
	rec.SendNs = sendNs
	t.records[orderID] = rec
	if t.metrics != nil {
		t.metrics.ObserveQueueWait(rec.QueueWait())
	}
}

// OnResponse completes the latency record for resp.OrderID as of
// responseNs, emits it to the sink, and forgets the order. A response for
// an id the tracker has no record of is logged and counted rather than
// treated as an error (spec §4.5, §7 class 3): the exchange, not the
// gateway, owns order identity, so a late or duplicate response is
// expected traffic, not a bug.
func (t *Tracker) OnResponse(resp order.OrderResponse, responseNs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[resp.OrderID]
	if !ok {
		log.Printf("latency: response for unknown order %d", resp.OrderID)
		if t.metrics != nil {
			t.metrics.UnknownResponse()
		}
		t.logEvent(&audit.UnknownResponseEvent{
			Event:   audit.Event{TimestampNs: responseNs, Type: audit.EventUnknownResponse},
			OrderID: resp.OrderID,
		})
		return
	}
	delete(t.records, resp.OrderID)

	rec.ResponseNs = responseNs
	if t.metrics != nil {
		t.metrics.ObserveRoundTrip(rec.RoundTrip())
	}
	t.sink.Emit(resp, rec)
	t.logEvent(&audit.ResponseReceivedEvent{
		Event:   audit.Event{TimestampNs: responseNs, Type: audit.EventResponseReceived},
		OrderID: resp.OrderID,
		Result:  uint8(resp.Result),
	})
}

func (t *Tracker) logEvent(event interface{}) {
	if t.audit == nil {
		return
	}
	if _, err := t.audit.Append(event); err != nil {
		log.Printf("latency: audit append failed: %v", err)
	}
}

// Pending reports how many orders currently have an open latency record,
// for tests asserting the tracker doesn't leak entries.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
