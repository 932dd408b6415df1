package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/gwstate"
	"github.com/rishav/order-gateway/internal/latency"
	"github.com/rishav/order-gateway/internal/order"
	"github.com/rishav/order-gateway/internal/statssink"
	"github.com/rishav/order-gateway/internal/store"
)

type rejectCounter struct {
	reasons []string
}

func (r *rejectCounter) RejectOrder(reason string) {
	r.reasons = append(r.reasons, reason)
}

func newTestIngress(open bool) (*Ingress, *store.PendingStore, *gwstate.State, *rejectCounter) {
	clock := faketime.NewManual(1000)
	state := gwstate.New()
	state.SetOpen(open)
	st := store.New()
	tracker := latency.New(statssink.NewRecorder(), nil)
	metrics := &rejectCounter{}
	ig := New(clock, state, st, tracker, metrics, nil)
	return ig, st, state, metrics
}

func TestSubmit_RejectsWhenClosed(t *testing.T) {
	ig, st, _, metrics := newTestIngress(false)

	ig.Submit(order.OrderRequest{OrderID: 1}, order.KindNew)

	assert.Equal(t, 0, st.Len())
	require.Len(t, metrics.reasons, 1)
	assert.Equal(t, ReasonClosed, metrics.reasons[0])
}

// TestSubmit_RejectsWhenPanicked exercises spec §7 error class 4: once an
// actor has panicked, Submit must reject even a would-be-open gateway
// rather than admitting work no surviving actor will drain.
func TestSubmit_RejectsWhenPanicked(t *testing.T) {
	ig, st, state, metrics := newTestIngress(true)
	state.SetPanicked()

	ig.Submit(order.OrderRequest{OrderID: 1}, order.KindNew)

	assert.Equal(t, 0, st.Len())
	require.Len(t, metrics.reasons, 1)
	assert.Equal(t, ReasonPanicked, metrics.reasons[0])
}

func TestSubmit_RejectsUnknownKind(t *testing.T) {
	ig, st, _, metrics := newTestIngress(true)

	ig.Submit(order.OrderRequest{OrderID: 1}, order.KindUnknown)

	assert.Equal(t, 0, st.Len())
	require.Len(t, metrics.reasons, 1)
	assert.Equal(t, ReasonUnknownKind, metrics.reasons[0])
}

func TestSubmit_NewAdmitsToStore(t *testing.T) {
	ig, st, _, _ := newTestIngress(true)

	ig.Submit(order.OrderRequest{OrderID: 7, Price: 100}, order.KindNew)

	require.Equal(t, 1, st.Len())
	rec, ok := st.PopHead()
	require.True(t, ok)
	assert.Equal(t, uint64(7), rec.Request.OrderID)
	assert.Equal(t, int64(1000), rec.IngressNs)
	assert.False(t, rec.Canceled)
}

func TestSubmit_ModifyOverwritesPendingRecord(t *testing.T) {
	ig, st, _, _ := newTestIngress(true)

	ig.Submit(order.OrderRequest{OrderID: 7, Price: 100}, order.KindNew)
	ig.Submit(order.OrderRequest{OrderID: 7, Price: 101}, order.KindModify)

	rec, ok := st.PopHead()
	require.True(t, ok)
	assert.Equal(t, float64(101), rec.Request.Price)
	assert.Equal(t, int64(1000), rec.IngressNs, "modify must retain the original ingress time")
}

func TestSubmit_ModifyOfUnknownIdIsANoOp(t *testing.T) {
	ig, st, _, metrics := newTestIngress(true)

	ig.Submit(order.OrderRequest{OrderID: 404, Price: 1}, order.KindModify)

	assert.Equal(t, 0, st.Len())
	assert.Empty(t, metrics.reasons, "modify misses are dropped, not rejected")
}

func TestSubmit_CancelSetsFlag(t *testing.T) {
	ig, st, _, _ := newTestIngress(true)

	ig.Submit(order.OrderRequest{OrderID: 9}, order.KindNew)
	ig.Submit(order.OrderRequest{OrderID: 9}, order.KindCancel)

	rec, ok := st.PopHead()
	require.True(t, ok)
	assert.True(t, rec.Canceled)
}

func TestSubmit_CancelOfUnknownIdIsANoOp(t *testing.T) {
	ig, st, _, metrics := newTestIngress(true)

	ig.Submit(order.OrderRequest{OrderID: 404}, order.KindCancel)

	assert.Equal(t, 0, st.Len())
	assert.Empty(t, metrics.reasons)
}

func TestOnResponse_RoutesToTracker(t *testing.T) {
	clock := faketime.NewManual(1000)
	state := gwstate.New()
	state.SetOpen(true)
	st := store.New()
	sink := statssink.NewRecorder()
	tracker := latency.New(sink, nil)
	ig := New(clock, state, st, tracker, nil, nil)

	ig.Submit(order.OrderRequest{OrderID: 3}, order.KindNew)
	tracker.RecordSend(3, 1500)
	ig.OnResponse(order.OrderResponse{OrderID: 3, Result: order.ResultAccept}, 2000)

	emitted := sink.Snapshot()
	require.Len(t, emitted, 1)
	assert.Equal(t, uint64(3), emitted[0].Response.OrderID)
	assert.Equal(t, int64(2000), emitted[0].Record.ResponseNs)
}
