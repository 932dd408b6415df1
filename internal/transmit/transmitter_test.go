package transmit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rishav/order-gateway/internal/audit"
	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/gwstate"
	"github.com/rishav/order-gateway/internal/latency"
	"github.com/rishav/order-gateway/internal/order"
	"github.com/rishav/order-gateway/internal/statssink"
	"github.com/rishav/order-gateway/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingExchange struct {
	mu   sync.Mutex
	sent []order.OrderRequest
}

func (r *recordingExchange) Send(req order.OrderRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, req)
}
func (r *recordingExchange) SendLogon(string, string) {}
func (r *recordingExchange) SendLogout(string)        {}

func (r *recordingExchange) snapshot() []order.OrderRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]order.OrderRequest, len(r.sent))
	copy(out, r.sent)
	return out
}

func newHarness(rate uint32, windowSec uint32) (*Transmitter, *store.PendingStore, *gwstate.State, *faketime.Manual, *recordingExchange, *latency.Tracker) {
	clock := faketime.NewManual(0)
	state := gwstate.New()
	state.SetOpen(true)
	st := store.New()
	ex := &recordingExchange{}
	tracker := latency.New(statssink.NewRecorder(), nil)
	tx := New(clock, state, st, ex, tracker, nil, windowSec, rate, nil)
	return tx, st, state, clock, ex, tracker
}

func TestTransmitter_SendsPendingOrderWhenOpen(t *testing.T) {
	tx, st, _, _, ex, tracker := newHarness(1000, 1)
	st.PushNew(&order.Record{Request: order.OrderRequest{OrderID: 1}})

	tx.Start()
	defer tx.Shutdown()

	require.Eventually(t, func() bool { return len(ex.snapshot()) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return tracker.Pending() == 1 }, time.Second, time.Millisecond)
}

func TestTransmitter_DropsCanceledRecordWithoutSending(t *testing.T) {
	tx, st, _, _, ex, tracker := newHarness(1000, 1)
	rec := &order.Record{Request: order.OrderRequest{OrderID: 9}}
	st.PushNew(rec)
	require.True(t, st.WithRecord(9, func(r *order.Record) { r.Canceled = true }))

	tx.Start()
	defer tx.Shutdown()

	require.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ex.snapshot(), "canceled record must never reach the exchange")
	assert.Equal(t, 0, tracker.Pending())
}

// TestTransmitter_ClosedSessionDrainsRejectsRatherThanHolding exercises
// spec §4.4 step 2: a record still pending when the session is closed is
// rejected on sight, not held over silently until the next session opens.
func TestTransmitter_ClosedSessionDrainsRejectsRatherThanHolding(t *testing.T) {
	tx, st, state, _, ex, _ := newHarness(1000, 1)
	state.SetOpen(false)
	st.PushNew(&order.Record{Request: order.OrderRequest{OrderID: 1}})

	tx.Start()
	defer tx.Shutdown()

	require.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ex.snapshot(), "a record pending at session close must never be sent")
}

func TestTransmitter_RateCapBoundsRollingWindow(t *testing.T) {
	clock := faketime.NewManual(0)
	state := gwstate.New()
	state.SetOpen(true)
	st := store.New()
	ex := &recordingExchange{}
	tracker := latency.New(statssink.NewRecorder(), nil)
	// rate=2, window=1s: admits while len(window) <= rate, so up to 3 per
	// rolling second (spec §4.4, §9 inclusive-boundary open question).
	tx := New(clock, state, st, ex, tracker, nil, 1, 2, nil)

	for i := uint64(1); i <= 10; i++ {
		st.PushNew(&order.Record{Request: order.OrderRequest{OrderID: i}})
	}

	tx.Start()
	defer tx.Shutdown()

	require.Eventually(t, func() bool { return len(ex.snapshot()) >= 3 }, time.Second, time.Millisecond)
	assert.LessOrEqual(t, len(ex.snapshot()), 3, "no more than rate+1 sends should land before the window advances")
}

type recordingAuditLog struct {
	mu     sync.Mutex
	events []interface{}
}

func (r *recordingAuditLog) Append(event interface{}) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return uint64(len(r.events)), nil
}

func (r *recordingAuditLog) snapshot() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interface{}, len(r.events))
	copy(out, r.events)
	return out
}

// TestTransmitter_RecordsTransmittedEventWhenAuditLogAttached exercises the
// optional audit trail: a successful send must append an
// OrderTransmittedEvent, and a dropped canceled record must not.
func TestTransmitter_RecordsTransmittedEventWhenAuditLogAttached(t *testing.T) {
	tx, st, _, _, _, _ := newHarness(1000, 1)
	auditLog := &recordingAuditLog{}
	tx.SetAuditLog(auditLog)
	st.PushNew(&order.Record{Request: order.OrderRequest{OrderID: 5}})

	tx.Start()
	defer tx.Shutdown()

	require.Eventually(t, func() bool { return len(auditLog.snapshot()) == 1 }, time.Second, time.Millisecond)
	evt, ok := auditLog.snapshot()[0].(*audit.OrderTransmittedEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(5), evt.OrderID)
}

func TestTransmitter_ShutdownDrainsAndRejectsPending(t *testing.T) {
	clock := faketime.NewManual(0)
	state := gwstate.New()
	state.SetOpen(false)
	st := store.New()
	ex := &recordingExchange{}
	tracker := latency.New(statssink.NewRecorder(), nil)

	var rejected []uint64
	var mu sync.Mutex
	tx := New(clock, state, st, ex, tracker, nil, 1, 1000, func(rec *order.Record, _ string) {
		mu.Lock()
		defer mu.Unlock()
		rejected = append(rejected, rec.Request.OrderID)
	})

	st.PushNew(&order.Record{Request: order.OrderRequest{OrderID: 1}})
	st.PushNew(&order.Record{Request: order.OrderRequest{OrderID: 2}})

	tx.Start()
	tx.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []uint64{1, 2}, rejected)
	assert.Equal(t, 0, st.Len())
}

type panicOnSendExchange struct{}

func (panicOnSendExchange) Send(order.OrderRequest)  { panic("boom") }
func (panicOnSendExchange) SendLogon(string, string) {}
func (panicOnSendExchange) SendLogout(string)        {}

// TestTransmitter_RecoversPanicDrainsAndLatchesPanicked exercises spec §7's
// error class 4: a panic inside the loop must not crash the process, must
// drain and reject whatever was still pending, and must latch
// gwstate.State.Panicked and invoke the configured panic handler.
func TestTransmitter_RecoversPanicDrainsAndLatchesPanicked(t *testing.T) {
	clock := faketime.NewManual(0)
	state := gwstate.New()
	state.SetOpen(true)
	st := store.New()
	tracker := latency.New(statssink.NewRecorder(), nil)

	var rejected []uint64
	var mu sync.Mutex
	tx := New(clock, state, st, panicOnSendExchange{}, tracker, nil, 1, 1000, func(rec *order.Record, _ string) {
		mu.Lock()
		defer mu.Unlock()
		rejected = append(rejected, rec.Request.OrderID)
	})

	panicked := make(chan struct{})
	tx.SetPanicHandler(func() { close(panicked) })

	st.PushNew(&order.Record{Request: order.OrderRequest{OrderID: 1}})
	st.PushNew(&order.Record{Request: order.OrderRequest{OrderID: 2}})

	tx.Start()

	select {
	case <-panicked:
	case <-time.After(time.Second):
		t.Fatal("panic handler was never invoked")
	}
	require.Eventually(t, state.Panicked, time.Second, time.Millisecond)

	<-tx.shutdownDone

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{2}, rejected, "order 1 was sent (and panicked); order 2 must be drained from the store")
	assert.Equal(t, 0, st.Len())
}
