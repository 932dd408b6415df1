// Package hours implements the trading-session bracketing actor described
// in spec §4.3: a single goroutine that sleeps through the bulk of the
// trading day and busy-polls only near the open/close edges, flipping
// gwstate.State.SetOpen and driving exchange logon/logout at the right
// moments.
//
// Grounded on the teacher's actor shape (running atomic.Bool +
// shutdownCh/shutdownDone, e.g. internal/disruptor/processor.go), adapted
// from a ring-buffer consumer loop to a clock-driven session monitor. The
// sleep/busy-poll split itself is grounded on the original implementation's
// waitOrAct (_examples/original_source/src/OrderManagement.cpp): sleep one
// RegularSleep tick while far from an edge, then switch to a tight
// clock-reading loop once within EdgeThreshold of it so the transition
// lands at (near) the exact nanosecond instead of on the next tick.
package hours

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/rishav/order-gateway/internal/exchange"
	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/gwstate"
	"github.com/rishav/order-gateway/internal/order"
)

// Metrics is the subset of internal/metrics.Collector the hours controller
// reports to. Optional: a nil Metrics in Config disables the session-open
// gauge without changing transition semantics.
type Metrics interface {
	SetSessionOpen(open bool)
}

// defaultRegularSleep mirrors the original's REGULAR_SLEEP_TIME_NS (1ms);
// the default edge threshold is 3x whatever RegularSleep resolves to,
// matching waitOrAct's 3 * REGULAR_SLEEP_TIME_NS.
const defaultRegularSleep = time.Millisecond

// Controller is the single actor that owns session-open transitions. Per
// spec §5, it is the only writer of gwstate.State.Open.
type Controller struct {
	clock    faketime.Clock
	state    *gwstate.State
	ex       exchange.Exchange
	metrics  Metrics
	onPanic  func()
	username string
	password string

	openOffsetNs  int64
	closeOffsetNs int64
	closeGuard    time.Duration
	regularSleep  time.Duration
	edgeThreshold time.Duration

	running      atomic.Bool
	shutdownCh   chan struct{}
	shutdownDone chan struct{}
}

// Config bundles the Controller's session-schedule parameters, mirroring
// the subset of internal/config.Config it needs.
type Config struct {
	OpenOffsetNs  int64
	CloseOffsetNs int64
	Username      string
	Password      string
	CloseGuard    time.Duration
	Metrics       Metrics

	// OnPanic, if set, is called (from a new goroutine, so it is never
	// invoked on the monitor goroutine itself) after the monitor loop
	// recovers a panic and latches gwstate.State.SetPanicked. Typically
	// wired to the gateway's Shutdown (spec §7 error class 4).
	OnPanic func()

	// RegularSleep is how long the monitor sleeps between checks while no
	// edge is near (spec §4.3's "regular" sleep). Zero uses
	// defaultRegularSleep.
	RegularSleep time.Duration

	// EdgeThreshold is how close to the open/close offset the monitor must
	// be before it stops sleeping and busy-polls the clock instead (spec
	// §4.3, §9: exposed as its own config rather than derived from the
	// transmitter's rate window). Zero uses 3x the effective RegularSleep.
	EdgeThreshold time.Duration
}

// New constructs a Controller. It does not start the monitor loop; call
// Start for that.
func New(clock faketime.Clock, state *gwstate.State, ex exchange.Exchange, cfg Config) *Controller {
	regularSleep := cfg.RegularSleep
	if regularSleep <= 0 {
		regularSleep = defaultRegularSleep
	}
	edgeThreshold := cfg.EdgeThreshold
	if edgeThreshold <= 0 {
		edgeThreshold = 3 * regularSleep
	}
	return &Controller{
		clock:         clock,
		state:         state,
		ex:            ex,
		metrics:       cfg.Metrics,
		onPanic:       cfg.OnPanic,
		username:      cfg.Username,
		password:      cfg.Password,
		openOffsetNs:  cfg.OpenOffsetNs,
		closeOffsetNs: cfg.CloseOffsetNs,
		closeGuard:    cfg.CloseGuard,
		regularSleep:  regularSleep,
		edgeThreshold: edgeThreshold,
		shutdownCh:    make(chan struct{}),
		shutdownDone:  make(chan struct{}),
	}
}

// Start launches the monitor goroutine.
func (c *Controller) Start() {
	c.running.Store(true)
	go c.monitorLoop()
}

func (c *Controller) monitorLoop() {
	defer close(c.shutdownDone)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("hours: actor panic, halting admission: %v", r)
			c.state.SetPanicked()
			if c.onPanic != nil {
				go c.onPanic()
			}
		}
	}()

	for c.running.Load() {
		select {
		case <-c.shutdownCh:
			return
		default:
		}

		nowOffset := c.clock.NowNs() % order.NSPerDay

		if !c.state.Open() {
			if nowOffset >= c.closeOffsetNs {
				// Already past today's close with the session never
				// having opened: nothing to do until the offset wraps
				// past midnight and falls below openOffsetNs again.
				select {
				case <-c.shutdownCh:
					return
				case <-time.After(c.regularSleep):
				}
				continue
			}
			if c.waitOrAct(nowOffset, c.openOffsetNs, true) {
				return
			}
		} else {
			// Always race toward the close edge regardless of how far
			// nowOffset has already advanced past it: an open session must
			// never be left open past close, even if the monitor is woken
			// up well after the target offset (e.g. after a stall).
			if c.waitOrAct(nowOffset, c.closeOffsetNs-int64(c.closeGuard), false) {
				return
			}
		}
	}
}

// waitOrAct mirrors the original's waitOrAct: if the target offset is more
// than edgeThreshold away, sleep one regular tick and let the caller
// re-evaluate; otherwise busy-poll the clock until the target is reached (or
// already past) and perform the open/close transition exactly once. Returns
// true if shutdown was observed and the caller should stop.
func (c *Controller) waitOrAct(nowOffsetNs, actionOffsetNs int64, opening bool) bool {
	if nowOffsetNs < actionOffsetNs && actionOffsetNs-nowOffsetNs > int64(c.edgeThreshold) {
		select {
		case <-c.shutdownCh:
			return true
		case <-time.After(c.regularSleep):
		}
		return false
	}

	for {
		select {
		case <-c.shutdownCh:
			return true
		default:
		}
		if c.clock.NowNs()%order.NSPerDay >= actionOffsetNs {
			break
		}
	}

	c.transition(opening)
	return false
}

func (c *Controller) transition(open bool) {
	c.state.SetOpen(open)
	if c.metrics != nil {
		c.metrics.SetSessionOpen(open)
	}
	if open {
		log.Printf("hours: session open, sending logon for %s", c.username)
		c.ex.SendLogon(c.username, c.password)
	} else {
		log.Printf("hours: session closed, sending logout for %s", c.username)
		c.ex.SendLogout(c.username)
	}
}

// Shutdown stops the monitor loop and waits for it to exit. It sends no
// logout. A second call panics on the already-closed shutdown channel;
// Gateway.Shutdown runs it at most once, before stopping the transmitter.
func (c *Controller) Shutdown() {
	c.running.Store(false)
	close(c.shutdownCh)
	<-c.shutdownDone
}
