// Package transmit implements the rate-capped sender actor described in
// spec §4.4: while the session is open, pop the oldest pending order and
// send it to the exchange, never exceeding Rate+1 sends in any trailing
// WindowSec-second interval (the admission check is inclusive, see
// admissionWait).
//
// The sliding window is an explicit container/list of send timestamps
// rather than golang.org/x/time/rate: the invariant is "no more than
// Rate+1 sends with timestamps in (now-window, now]", which is a
// rolling window over actual past sends, not a token bucket with
// continuous refill. Using x/time/rate here would silently change the
// admission semantics the testable properties in spec §8 depend on (see
// DESIGN.md).
package transmit

import (
	"container/list"
	"log"
	"sync"
	"time"

	"github.com/rishav/order-gateway/internal/audit"
	"github.com/rishav/order-gateway/internal/exchange"
	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/gwstate"
	"github.com/rishav/order-gateway/internal/latency"
	"github.com/rishav/order-gateway/internal/order"
	"github.com/rishav/order-gateway/internal/store"
)

// AuditLog is the subset of internal/audit.Log the transmitter writes to.
// Optional: a nil AuditLog (the default) disables event recording.
type AuditLog interface {
	Append(event interface{}) (uint64, error)
}

// Metrics is the subset of internal/metrics.Collector the transmitter
// reports to.
type Metrics interface {
	TransmitOrder()
	SetPendingDepth(n int)
	RejectOrder(reason string)
}

// Transmitter is the actor draining PendingStore onto the exchange under a
// sliding-window rate cap (spec §4.4).
type Transmitter struct {
	clock     faketime.Clock
	state     *gwstate.State
	store     *store.PendingStore
	ex        exchange.Exchange
	tracker   *latency.Tracker
	metrics   Metrics
	windowDur time.Duration
	rate      uint32
	onReject  func(rec *order.Record, reason string)
	audit     AuditLog
	onPanic   func()

	sendTimes *list.List // of int64 ns, oldest first

	mu           sync.Mutex
	shutdownCh   chan struct{}
	shutdownDone chan struct{}
}

// New constructs a Transmitter. windowSec and rate are the monitor window
// and the maximum sends admitted within it (spec §6 config keys
// MonitorWindowSec, Rate). metrics may be nil. onReject is invoked for
// every non-canceled order drained out of PendingStore, both when the
// session closes for the day and when the transmitter stops for good
// (spec §4.4 step 2, §5); if nil, drained orders are only logged.
func New(clock faketime.Clock, state *gwstate.State, st *store.PendingStore, ex exchange.Exchange, tracker *latency.Tracker, metrics Metrics, windowSec uint32, rate uint32, onReject func(rec *order.Record, reason string)) *Transmitter {
	return &Transmitter{
		clock:        clock,
		state:        state,
		store:        st,
		ex:           ex,
		tracker:      tracker,
		metrics:      metrics,
		windowDur:    time.Duration(windowSec) * time.Second,
		rate:         rate,
		onReject:     onReject,
		sendTimes:    list.New(),
		shutdownCh:   make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
}

// SetAuditLog attaches an optional durable event log; every order handed
// to the exchange is recorded as an OrderTransmittedEvent. Must be called
// before Start.
func (t *Transmitter) SetAuditLog(a AuditLog) {
	t.audit = a
}

// SetPanicHandler attaches a callback invoked, from a new goroutine, if the
// transmit loop recovers from a panic (spec §7 error class 4). Must be
// called before Start.
func (t *Transmitter) SetPanicHandler(f func()) {
	t.onPanic = f
}

// Start launches the transmit loop.
func (t *Transmitter) Start() {
	go t.loop()
}

func (t *Transmitter) loop() {
	defer close(t.shutdownDone)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("transmit: actor panic, halting admission: %v", r)
			t.state.SetPanicked()
			t.drainReject("actor_panic")
			if t.onPanic != nil {
				go t.onPanic()
			}
		}
	}()

	for {
		select {
		case <-t.shutdownCh:
			t.drainReject("shutdown")
			return
		default:
		}

		if t.state.Terminating() {
			t.drainReject("shutdown")
			return
		}

		if !t.state.Open() {
			// Per spec §4.4 step 2: anything still in PendingStore while
			// the session is closed is rejected on sight, not held over to
			// the next session — a daily close must not let yesterday's
			// backlog transmit tomorrow.
			t.drainReject("closed_while_queued")
			t.sleepBriefly()
			continue
		}

		if t.store.Len() == 0 {
			t.sleepBriefly()
			continue
		}

		if wait, ok := t.admissionWait(); !ok {
			select {
			case <-t.shutdownCh:
				t.drainReject("shutdown")
				return
			case <-time.After(wait):
			}
			continue
		}

		t.transmitOne()
	}
}

func (t *Transmitter) sleepBriefly() {
	select {
	case <-t.shutdownCh:
	case <-time.After(time.Millisecond):
	}
}

// admissionWait reports whether a send is currently admitted under the
// rate cap. If not, it returns how long to wait before the oldest entry in
// the window expires.
func (t *Transmitter) admissionWait() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.NowNs()
	cutoff := now - int64(t.windowDur)

	for e := t.sendTimes.Front(); e != nil; {
		next := e.Next()
		if e.Value.(int64) <= cutoff {
			t.sendTimes.Remove(e)
		}
		e = next
	}

	// Inclusive boundary per spec §4.4, §9: admission is |W| <= rate, not
	// |W| < rate, so a rolling window can carry rate+1 sends. Preserved
	// deliberately; see DESIGN.md's Open Question decision on this.
	if uint32(t.sendTimes.Len()) <= t.rate {
		return 0, true
	}

	oldest := t.sendTimes.Front().Value.(int64)
	wait := time.Duration(oldest+int64(t.windowDur)+1-now) + time.Nanosecond
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait, false
}

func (t *Transmitter) recordSend(nowNs int64) {
	t.mu.Lock()
	t.sendTimes.PushBack(nowNs)
	t.mu.Unlock()
}

// transmitOne pops the oldest pending record and, if it hasn't been
// canceled, sends it. Canceled records are silently dropped without
// consuming a slot in the rate window (spec §4.2, §8 scenario 3).
func (t *Transmitter) transmitOne() {
	rec, ok := t.store.PopHead()
	if !ok {
		return
	}
	if t.metrics != nil {
		t.metrics.SetPendingDepth(t.store.Len())
	}
	if rec.Canceled {
		return
	}

	now := t.clock.NowNs()
	t.recordSend(now)
	t.tracker.RecordSend(rec.Request.OrderID, now)
	t.ex.Send(rec.Request)
	if t.metrics != nil {
		t.metrics.TransmitOrder()
	}
	if t.audit != nil {
		if _, err := t.audit.Append(&audit.OrderTransmittedEvent{
			Event:   audit.Event{TimestampNs: now, Type: audit.EventOrderTransmitted},
			OrderID: rec.Request.OrderID,
		}); err != nil {
			log.Printf("transmit: audit append failed: %v", err)
		}
	}
}

// drainReject empties PendingStore, invoking onReject (if set) for every
// non-canceled record, whenever the transmitter observes the session
// closed — both the daily close (spec §4.4 step 2) and final shutdown
// (spec §5) route through here with a different reason string for the log
// line.
func (t *Transmitter) drainReject(reason string) {
	t.store.DrainReject(func(rec *order.Record) {
		if t.metrics != nil {
			t.metrics.RejectOrder(reason)
		}
		if t.onReject != nil {
			t.onReject(rec, reason)
			return
		}
		log.Printf("transmit: dropping order %d: %s", rec.Request.OrderID, reason)
	})
}

// Shutdown stops the transmit loop and waits for it to exit.
func (t *Transmitter) Shutdown() {
	close(t.shutdownCh)
	<-t.shutdownDone
}
