// Package gateway wires the five cooperating components in spec §3 (ingress,
// pending store, hours controller, transmitter, latency tracker) into a
// single Gateway type with a server-shaped Start/Shutdown lifecycle.
//
// Grounded on the teacher's cmd/server/main.go Server type and its
// shutdown ordering discipline (stop intake, drain the pipeline, flush
// durable state, close resources) — generalized from an HTTP+ring-buffer
// server to the gateway's actor set.
package gateway

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rishav/order-gateway/internal/audit"
	"github.com/rishav/order-gateway/internal/config"
	"github.com/rishav/order-gateway/internal/exchange"
	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/gwstate"
	"github.com/rishav/order-gateway/internal/hours"
	"github.com/rishav/order-gateway/internal/ingress"
	"github.com/rishav/order-gateway/internal/latency"
	"github.com/rishav/order-gateway/internal/metrics"
	"github.com/rishav/order-gateway/internal/order"
	"github.com/rishav/order-gateway/internal/statssink"
	"github.com/rishav/order-gateway/internal/store"
	"github.com/rishav/order-gateway/internal/transmit"
)

// exchangeProxy breaks the construction-order cycle between Gateway and
// its exchange.Exchange: the exchange implementation typically needs the
// gateway's ResponseHandler to exist before it can be built (the mock
// exchange needs somewhere to deliver responses), while the hours
// controller and transmitter need a concrete exchange.Exchange at
// construction time. The proxy lets New wire hours/transmit immediately
// and have AttachExchange fill in the real target once the caller has
// built it.
type exchangeProxy struct {
	target atomic.Pointer[exchange.Exchange]
}

func (p *exchangeProxy) Send(req order.OrderRequest) {
	if t := p.target.Load(); t != nil {
		(*t).Send(req)
	}
}

func (p *exchangeProxy) SendLogon(username, password string) {
	if t := p.target.Load(); t != nil {
		(*t).SendLogon(username, password)
	}
}

func (p *exchangeProxy) SendLogout(username string) {
	if t := p.target.Load(); t != nil {
		(*t).SendLogout(username)
	}
}

func (p *exchangeProxy) attach(ex exchange.Exchange) {
	p.target.Store(&ex)
}

// Gateway wires and owns every cooperating component's lifecycle.
type Gateway struct {
	state   *gwstate.State
	store   *store.PendingStore
	hours   *hours.Controller
	tx      *transmit.Transmitter
	tracker *latency.Tracker
	ingress *ingress.Ingress
	audit   *audit.Log
	proxy   *exchangeProxy

	shutdownOnce sync.Once
	shutdownErr  error
}

// Deps bundles the external collaborators a Gateway needs. Metrics and
// AuditLogPath are both optional; a zero Metrics or empty AuditLogPath
// disables that concern without changing correctness. Exchange may be nil
// if the caller needs the gateway's ResponseHandler to exist before
// constructing its exchange.Exchange (the common case for a mock
// exchange) — call AttachExchange once it's built, before Start.
type Deps struct {
	Clock    faketime.Clock
	Exchange exchange.Exchange
	Sink     statssink.Sink
	Metrics  *metrics.Collector

	// AuditLogPath, if non-empty, enables the optional audit trail.
	AuditLogPath string
}

// New constructs a Gateway from cfg and deps. It does not start any actor;
// call Start for that.
func New(cfg config.Config, deps Deps) (*Gateway, error) {
	state := gwstate.New()
	st := store.New()

	var auditLog *audit.Log
	if deps.AuditLogPath != "" {
		var err error
		auditLog, err = audit.Open(deps.AuditLogPath)
		if err != nil {
			return nil, err
		}
	}

	// metricsAdapter narrows internal/metrics.Collector to the interface
	// each component wants; every metrics param below is left as a nil
	// interface value (not a typed nil pointer) when deps.Metrics is nil,
	// so each component's own "if m.metrics != nil" guard works correctly.
	var (
		latencyMetrics  latency.Metrics
		ingressMetrics  ingress.Metrics
		transmitMetrics transmit.Metrics
		hoursMetrics    hours.Metrics
	)
	if deps.Metrics != nil {
		adapter := &metricsAdapter{c: deps.Metrics}
		latencyMetrics = adapter
		ingressMetrics = adapter
		transmitMetrics = adapter
		hoursMetrics = adapter
	}

	tracker := latency.New(deps.Sink, latencyMetrics)
	if auditLog != nil {
		tracker.SetAuditLog(auditLog)
	}

	var auditIface ingress.AuditLog
	if auditLog != nil {
		auditIface = auditLog
	}
	ig := ingress.New(deps.Clock, state, st, tracker, ingressMetrics, auditIface)

	proxy := &exchangeProxy{}
	if deps.Exchange != nil {
		proxy.attach(deps.Exchange)
	}

	// gw is declared before the actors that need to call back into it so
	// onPanic can close over the eventual *Gateway (spec §7 error class 4:
	// an actor panic must initiate shutdown). Mirrors the exchangeProxy
	// technique above for breaking the same construction-order cycle.
	var gw *Gateway
	onPanic := func() {
		if gw == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), panicShutdownTimeout)
		defer cancel()
		if err := gw.Shutdown(ctx); err != nil {
			log.Printf("gateway: shutdown after actor panic: %v", err)
		}
	}

	hc := hours.New(deps.Clock, state, proxy, hours.Config{
		OpenOffsetNs:  cfg.OpenOffsetNs,
		CloseOffsetNs: cfg.CloseOffsetNs,
		Username:      cfg.Username,
		Password:      cfg.Password,
		CloseGuard:    cfg.CloseGuard,
		Metrics:       hoursMetrics,
		OnPanic:       onPanic,
	})

	onReject := func(rec *order.Record, reason string) {
		log.Printf("gateway: dropping pending order %d: %s", rec.Request.OrderID, reason)
	}
	tx := transmit.New(deps.Clock, state, st, proxy, tracker, transmitMetrics, cfg.WindowSec, cfg.Rate, onReject)
	if auditLog != nil {
		tx.SetAuditLog(auditLog)
	}
	tx.SetPanicHandler(onPanic)

	gw = &Gateway{
		state:   state,
		store:   st,
		hours:   hc,
		tx:      tx,
		tracker: tracker,
		ingress: ig,
		audit:   auditLog,
		proxy:   proxy,
	}
	return gw, nil
}

// panicShutdownTimeout bounds how long Shutdown is given to run when
// triggered automatically by a recovered actor panic (spec §7 error class 4).
const panicShutdownTimeout = 5 * time.Second

// AttachExchange points the gateway's hours controller and transmitter at
// ex. Must be called before Start if Deps.Exchange was nil at
// construction time.
func (g *Gateway) AttachExchange(ex exchange.Exchange) {
	g.proxy.attach(ex)
}

// Start launches the hours controller and transmitter actors. Must be
// called before Ingress.Submit is used by callers (the gateway opens
// closed and only the hours controller flips it open).
func (g *Gateway) Start() {
	g.hours.Start()
	g.tx.Start()
}

// Ingress exposes the gateway's external entry point.
func (g *Gateway) Ingress() *ingress.Ingress {
	return g.ingress
}

// ResponseHandler exposes the gateway as an exchange.ResponseHandler, for
// wiring into an exchange.Exchange implementation.
func (g *Gateway) ResponseHandler() interface {
	OnResponse(resp order.OrderResponse, responseNs int64)
} {
	return g.ingress
}

// Shutdown stops every actor in dependency order: the hours controller
// first (so no further open/close transition races the transmitter), then
// the transmitter (which drains and rejects whatever remains in
// PendingStore), then closes the audit log. Idempotent per spec §5: a
// second call observes the first call's result without closing any actor
// channel twice.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.shutdownOnce.Do(func() {
		log.Println("gateway: shutting down")
		g.state.Terminate()

		g.hours.Shutdown()
		g.tx.Shutdown()

		if g.audit != nil {
			if err := g.audit.Close(); err != nil {
				g.shutdownErr = err
			}
		}
	})
	if g.shutdownErr != nil {
		return g.shutdownErr
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// metricsAdapter narrows internal/metrics.Collector to the small
// interfaces each component needs, so they never import the metrics
// package directly.
type metricsAdapter struct {
	c *metrics.Collector
}

func (m *metricsAdapter) UnknownResponse()          { m.c.UnknownResponse() }
func (m *metricsAdapter) ObserveQueueWait(ns int64) { m.c.ObserveQueueWait(ns) }
func (m *metricsAdapter) ObserveRoundTrip(ns int64) { m.c.ObserveRoundTrip(ns) }
func (m *metricsAdapter) RejectOrder(reason string) { m.c.RejectOrder(reason) }
func (m *metricsAdapter) TransmitOrder()            { m.c.TransmitOrder() }
func (m *metricsAdapter) SetPendingDepth(n int)     { m.c.SetPendingDepth(n) }
func (m *metricsAdapter) SetSessionOpen(open bool)  { m.c.SetSessionOpen(open) }
