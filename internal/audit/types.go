// Package audit provides an optional, append-only record of gateway
// lifecycle events, adapted from the teacher's event-sourcing packages
// (internal/events/types.go, internal/events/log.go in the matching
// engine this repo started from) to the gateway's domain: admission,
// rejection, modify/cancel, transmission, and response events rather than
// order-book fills.
//
// The gateway itself does not require durability (spec §1 Non-goals: no
// persistence of orders across restarts) — Log is purely an audit trail a
// deployment can opt into for compliance or debugging, exactly the role
// the teacher's doc comment assigns event sourcing in a trading system.
package audit

// EventType identifies the kind of event recorded.
type EventType uint8

const (
	EventOrderAdmitted EventType = iota + 1
	EventOrderRejected
	EventOrderModified
	EventOrderCanceled
	EventOrderTransmitted
	EventResponseReceived
	EventUnknownResponse
)

func (t EventType) String() string {
	switch t {
	case EventOrderAdmitted:
		return "ORDER_ADMITTED"
	case EventOrderRejected:
		return "ORDER_REJECTED"
	case EventOrderModified:
		return "ORDER_MODIFIED"
	case EventOrderCanceled:
		return "ORDER_CANCELED"
	case EventOrderTransmitted:
		return "ORDER_TRANSMITTED"
	case EventResponseReceived:
		return "RESPONSE_RECEIVED"
	case EventUnknownResponse:
		return "UNKNOWN_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Event is the common envelope every audit record carries.
type Event struct {
	SequenceNum uint64
	TimestampNs int64
	Type        EventType
}

// OrderAdmittedEvent records a New order entering PendingStore.
type OrderAdmittedEvent struct {
	Event
	OrderID uint64
}

// OrderRejectedEvent records a submission rejected at the ingress boundary.
type OrderRejectedEvent struct {
	Event
	OrderID uint64
	Reason  string
}

// OrderModifiedEvent records a Modify applied to a still-pending order.
type OrderModifiedEvent struct {
	Event
	OrderID uint64
}

// OrderCanceledEvent records a Cancel applied to a still-pending order.
type OrderCanceledEvent struct {
	Event
	OrderID uint64
}

// OrderTransmittedEvent records a record leaving PendingStore for the
// exchange.
type OrderTransmittedEvent struct {
	Event
	OrderID uint64
}

// ResponseReceivedEvent records a response matched to a known order.
type ResponseReceivedEvent struct {
	Event
	OrderID uint64
	Result  uint8
}

// UnknownResponseEvent records a response for an id the latency tracker
// had no record of (spec §4.5, §7 class 3).
type UnknownResponseEvent struct {
	Event
	OrderID uint64
}
