// Package exchange defines the downstream exchange interface the gateway
// transmits orders through, and a mock implementation for tests and the
// demo entry point.
//
// Grounded on original_source/include/ExchangeSimulator.h and
// src/ExchangeSimulator.cpp: the mock queues every sent order id and
// answers it asynchronously from a background goroutine with a uniformly
// random result across Unknown/Accept/Reject, simulating an exchange that
// doesn't always make a firm decision.
package exchange

import (
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/order"
)

// ResponseHandler receives asynchronous responses from the exchange,
// timestamped at receipt. The gateway's Ingress implements this to satisfy
// spec §4.1's on_response entry point.
type ResponseHandler interface {
	OnResponse(resp order.OrderResponse, responseNs int64)
}

// Exchange is the fire-and-forget downstream interface the core consumes
// (spec §6). All three operations return nothing; outcomes arrive later
// through a ResponseHandler.
type Exchange interface {
	Send(req order.OrderRequest)
	SendLogon(username, password string)
	SendLogout(username string)
}

// Mock is a test/demo Exchange backed by a background responder goroutine.
type Mock struct {
	handler      ResponseHandler
	ids          chan uint64
	shutdownCh   chan struct{}
	shutdownDone chan struct{}
	loggedIn     atomic.Bool
	rng          *rand.Rand
	respondDelay time.Duration
	clock        faketime.Clock
}

// NewMock creates a Mock exchange reporting to handler and starts its
// responder goroutine. respondDelay controls how long the mock waits
// before acknowledging a send; zero means "as fast as possible" (useful in
// tests that want responses to arrive promptly). clock timestamps each
// response at the moment it's produced; pass faketime.Manual in tests that
// need deterministic round-trip latencies.
func NewMock(handler ResponseHandler, respondDelay time.Duration, clock faketime.Clock) *Mock {
	m := &Mock{
		handler:      handler,
		ids:          make(chan uint64, 4096),
		shutdownCh:   make(chan struct{}),
		shutdownDone: make(chan struct{}),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		respondDelay: respondDelay,
		clock:        clock,
	}
	go m.respond()
	return m
}

// Send queues the order id to be acknowledged asynchronously. Drops the
// order with a log line if the mock's internal queue is saturated, rather
// than blocking the transmitter.
func (m *Mock) Send(req order.OrderRequest) {
	select {
	case m.ids <- req.OrderID:
	default:
		log.Printf("mock exchange: response queue full, dropping order %d", req.OrderID)
	}
}

// SendLogon marks the mock as logged in.
func (m *Mock) SendLogon(username, password string) {
	m.loggedIn.Store(true)
	log.Printf("mock exchange: logon for %s", username)
}

// SendLogout marks the mock as logged out.
func (m *Mock) SendLogout(username string) {
	m.loggedIn.Store(false)
	log.Printf("mock exchange: logout for %s", username)
}

// LoggedIn reports the mock's logon state, mostly for tests asserting the
// hours controller bracketed the session correctly.
func (m *Mock) LoggedIn() bool {
	return m.loggedIn.Load()
}

func (m *Mock) respond() {
	defer close(m.shutdownDone)
	for {
		select {
		case <-m.shutdownCh:
			return
		case id := <-m.ids:
			if m.respondDelay > 0 {
				time.Sleep(m.respondDelay)
			}
			result := order.Result(m.rng.Intn(3))
			m.handler.OnResponse(order.OrderResponse{OrderID: id, Result: result}, m.clock.NowNs())
		}
	}
}

// Shutdown stops the responder goroutine and waits for it to exit.
func (m *Mock) Shutdown() {
	close(m.shutdownCh)
	<-m.shutdownDone
}
