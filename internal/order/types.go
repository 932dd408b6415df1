// Package order defines the core data model shared by every gateway
// component: the request/response wire shapes, the kind tag carried
// alongside a request at the ingress boundary, the record a pending order
// is held as, and the latency bookkeeping kept between send and response.
//
// Design Decisions:
//
// 1. Price is a float64, matching the upstream/exchange wire shape exactly
//    (see spec data model). Unlike a matching engine, the gateway never
//    performs arithmetic on price — it only forwards whatever the upstream
//    supplied — so there is no rounding-error exposure that would justify
//    a fixed-point representation.
//
// 2. Side is a single byte, 'B' or 'S', carried verbatim rather than as an
//    enum with a String() method: the gateway never branches on side, it
//    only passes it through to the exchange.
//
// 3. Timestamps are nanoseconds since an arbitrary monotonic epoch (int64),
//    supplied by internal/faketime.Clock rather than time.Time, to keep
//    per-order bookkeeping allocation-free and directly comparable.
package order

import "fmt"

// NSPerDay is the number of nanoseconds in a UTC day, used by the hours
// controller to compute the current offset into the trading day.
const NSPerDay = 86_400 * 1_000_000_000

// Side identifies which side of the market an order is on.
type Side byte

const (
	SideBuy  Side = 'B'
	SideSell Side = 'S'
)

// RequestKind tags an OrderRequest at the ingress boundary. It is never
// stored with the order once admitted — PendingStore only ever holds New
// orders (as mutated by later Modify/Cancel kinds).
type RequestKind uint8

const (
	KindUnknown RequestKind = iota
	KindNew
	KindModify
	KindCancel
)

func (k RequestKind) String() string {
	switch k {
	case KindNew:
		return "New"
	case KindModify:
		return "Modify"
	case KindCancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}

// OrderRequest is the immutable-by-convention order tuple carried from
// upstream callers through to the exchange.
type OrderRequest struct {
	OrderID  uint64
	SymbolID int32
	Price    float64
	Qty      uint64
	Side     Side
}

// Result is the outcome an exchange reports for a transmitted order.
type Result uint8

const (
	ResultUnknown Result = iota
	ResultAccept
	ResultReject
)

func (r Result) String() string {
	switch r {
	case ResultAccept:
		return "Accept"
	case ResultReject:
		return "Reject"
	default:
		return "Unknown"
	}
}

// Int returns the wire encoding used by the CSV stats sink
// (0=Unknown, 1=Accept, 2=Reject, per spec §6).
func (r Result) Int() int {
	return int(r)
}

// OrderResponse is the asynchronous result the exchange reports for a
// previously transmitted order.
type OrderResponse struct {
	OrderID uint64
	Result  Result
}

// Record is the representation of a pending order held inside PendingStore:
// the latest request for that id, whether it has been canceled, and the
// time it was admitted. Only Ingress mutates a Record's fields (Modify
// overwrites Request, Cancel sets Canceled); only the Transmitter removes
// one from the store.
type Record struct {
	Request   OrderRequest
	Canceled  bool
	IngressNs int64
}

// LatencyRecord is kept by the latency tracker between the moment an order
// is transmitted and the moment its response arrives. ResponseNs is zero
// until the response lands.
type LatencyRecord struct {
	IngressNs  int64
	SendNs     int64
	ResponseNs int64
}

// QueueWait returns send - ingress: how long the order waited in
// PendingStore before being transmitted.
func (l LatencyRecord) QueueWait() int64 {
	return l.SendNs - l.IngressNs
}

// RoundTrip returns response - send: how long the exchange took to
// acknowledge the order. Only meaningful once ResponseNs is set.
func (l LatencyRecord) RoundTrip() int64 {
	return l.ResponseNs - l.SendNs
}

func (r Record) String() string {
	return fmt.Sprintf("Record{id=%d canceled=%v ingress=%d}", r.Request.OrderID, r.Canceled, r.IngressNs)
}
