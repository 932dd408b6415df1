// Package ingress implements the gateway's single external entry point
// (spec §4.1): submit, for New/Modify/Cancel requests from upstream
// callers, and on_response, for asynchronous results from the exchange.
package ingress

import (
	"log"

	"github.com/rishav/order-gateway/internal/audit"
	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/gwstate"
	"github.com/rishav/order-gateway/internal/latency"
	"github.com/rishav/order-gateway/internal/order"
	"github.com/rishav/order-gateway/internal/store"
)

// RejectReason values logged/reported for a rejected submission, matching
// spec §4.1's submit contract table.
const (
	ReasonClosed      = "gateway_closed"
	ReasonUnknownKind = "unknown_kind"

	// ReasonPanicked is used once an actor has panicked (spec §7 error
	// class 4, gwstate.State.Panicked): the gateway stops admitting new
	// orders rather than queuing work no surviving actor will drain.
	ReasonPanicked = "gateway_panicked"
)

// Metrics is the subset of internal/metrics.Collector ingress reports to.
type Metrics interface {
	RejectOrder(reason string)
}

// AuditLog is the subset of internal/audit.Log ingress writes to. Optional:
// a nil AuditLog disables event recording without changing submit/
// on_response semantics.
type AuditLog interface {
	Append(event interface{}) (uint64, error)
}

// Ingress is the gateway's admission boundary.
type Ingress struct {
	clock   faketime.Clock
	state   *gwstate.State
	store   *store.PendingStore
	tracker *latency.Tracker
	metrics Metrics
	audit   AuditLog
}

// New constructs an Ingress. metrics and audit may both be nil.
func New(clock faketime.Clock, state *gwstate.State, st *store.PendingStore, tracker *latency.Tracker, metrics Metrics, audit AuditLog) *Ingress {
	return &Ingress{
		clock:   clock,
		state:   state,
		store:   st,
		tracker: tracker,
		metrics: metrics,
		audit:   audit,
	}
}

// Submit admits, modifies, or cancels req depending on kind, per spec
// §4.1's contract table:
//
//	closed gateway        -> reject, ReasonClosed
//	KindUnknown            -> reject, ReasonUnknownKind
//	KindNew                -> admit to PendingStore
//	KindModify/KindCancel  -> best-effort against PendingStore; a miss
//	                          (already sent, or unknown id) is logged and
//	                          dropped, never rejected back to the caller,
//	                          since by the time the caller sees a reply
//	                          the order may have already been transmitted.
func (ig *Ingress) Submit(req order.OrderRequest, kind order.RequestKind) {
	if ig.state.Panicked() {
		ig.reject(req.OrderID, ReasonPanicked)
		return
	}
	if !ig.state.Open() {
		ig.reject(req.OrderID, ReasonClosed)
		return
	}

	switch kind {
	case order.KindNew:
		ig.admitNew(req)
	case order.KindModify:
		ig.applyModify(req)
	case order.KindCancel:
		ig.applyCancel(req.OrderID)
	default:
		ig.reject(req.OrderID, ReasonUnknownKind)
	}
}

func (ig *Ingress) admitNew(req order.OrderRequest) {
	now := ig.clock.NowNs()
	rec := &order.Record{Request: req, IngressNs: now}
	ig.store.PushNew(rec)
	ig.tracker.RecordIngress(req.OrderID, now)
	ig.logEvent(&audit.OrderAdmittedEvent{
		Event:   audit.Event{TimestampNs: now, Type: audit.EventOrderAdmitted},
		OrderID: req.OrderID,
	})
}

func (ig *Ingress) applyModify(req order.OrderRequest) {
	found := ig.store.WithRecord(req.OrderID, func(rec *order.Record) {
		rec.Request = req
	})
	if !found {
		log.Printf("ingress: modify for unknown or already-sent order %d", req.OrderID)
		return
	}
	ig.logEvent(&audit.OrderModifiedEvent{
		Event:   audit.Event{TimestampNs: ig.clock.NowNs(), Type: audit.EventOrderModified},
		OrderID: req.OrderID,
	})
}

func (ig *Ingress) applyCancel(orderID uint64) {
	found := ig.store.WithRecord(orderID, func(rec *order.Record) {
		rec.Canceled = true
	})
	if !found {
		log.Printf("ingress: cancel for unknown or already-sent order %d", orderID)
		return
	}
	ig.logEvent(&audit.OrderCanceledEvent{
		Event:   audit.Event{TimestampNs: ig.clock.NowNs(), Type: audit.EventOrderCanceled},
		OrderID: orderID,
	})
}

func (ig *Ingress) reject(orderID uint64, reason string) {
	log.Printf("ingress: rejecting order %d: %s", orderID, reason)
	if ig.metrics != nil {
		ig.metrics.RejectOrder(reason)
	}
	ig.logEvent(&audit.OrderRejectedEvent{
		Event:   audit.Event{TimestampNs: ig.clock.NowNs(), Type: audit.EventOrderRejected},
		OrderID: orderID,
		Reason:  reason,
	})
}

// OnResponse satisfies exchange.ResponseHandler, routing every exchange
// response to the latency tracker (spec §4.1, §4.5).
func (ig *Ingress) OnResponse(resp order.OrderResponse, responseNs int64) {
	ig.tracker.OnResponse(resp, responseNs)
}

func (ig *Ingress) logEvent(event interface{}) {
	if ig.audit == nil {
		return
	}
	if _, err := ig.audit.Append(event); err != nil {
		log.Printf("ingress: audit append failed: %v", err)
	}
}
