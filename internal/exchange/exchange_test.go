package exchange

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/order"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingHandler struct {
	mu   sync.Mutex
	resp []order.OrderResponse
}

func (h *recordingHandler) OnResponse(resp order.OrderResponse, _ int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resp = append(h.resp, resp)
}

func (h *recordingHandler) snapshot() []order.OrderResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]order.OrderResponse, len(h.resp))
	copy(out, h.resp)
	return out
}

func TestMock_SendEventuallyProducesAResponse(t *testing.T) {
	handler := &recordingHandler{}
	clock := faketime.NewManual(0)
	mock := NewMock(handler, 0, clock)
	defer mock.Shutdown()

	mock.Send(order.OrderRequest{OrderID: 42})

	require.Eventually(t, func() bool { return len(handler.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(42), handler.snapshot()[0].OrderID)
}

func TestMock_LogonLogoutTogglesLoggedIn(t *testing.T) {
	handler := &recordingHandler{}
	mock := NewMock(handler, 0, faketime.NewManual(0))
	defer mock.Shutdown()

	assert.False(t, mock.LoggedIn())
	mock.SendLogon("trader1", "secret")
	assert.True(t, mock.LoggedIn())
	mock.SendLogout("trader1")
	assert.False(t, mock.LoggedIn())
}

func TestMock_ShutdownStopsResponder(t *testing.T) {
	handler := &recordingHandler{}
	mock := NewMock(handler, 0, faketime.NewManual(0))
	mock.Shutdown()

	mock.Send(order.OrderRequest{OrderID: 1})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, handler.snapshot(), "no response should arrive after shutdown")
}
