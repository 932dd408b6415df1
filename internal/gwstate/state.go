// Package gwstate holds the small set of flags shared across the gateway's
// actors and entry points, per the concurrency model in spec §5: a single
// writer per flag, read freely from anywhere.
package gwstate

import "sync/atomic"

// State is the shared, lock-free flag set read by Ingress and Transmitter
// and written by HoursController (Open), the shutdown path (Terminate), and
// the actors' panic recovery (Panicked).
type State struct {
	open      atomic.Bool
	terminate atomic.Bool
	panicked  atomic.Bool
}

// New returns a State with the gateway closed and running.
func New() *State {
	return &State{}
}

// Open reports whether the trading session is currently open.
func (s *State) Open() bool {
	return s.open.Load()
}

// SetOpen is called exclusively by HoursController to flip the session
// state at the open/close edges.
func (s *State) SetOpen(open bool) {
	s.open.Store(open)
}

// Terminating reports whether shutdown has been requested.
func (s *State) Terminating() bool {
	return s.terminate.Load()
}

// Terminate requests shutdown. Idempotent: calling it more than once has
// no additional effect.
func (s *State) Terminate() {
	s.terminate.Store(true)
}

// Panicked reports whether an actor has hit an unrecoverable error and the
// gateway should stop admitting new orders (error class 4, spec §7).
func (s *State) Panicked() bool {
	return s.panicked.Load()
}

// SetPanicked latches the panic flag. Once set it is never cleared; a
// panicked gateway must be restarted, not resumed.
func (s *State) SetPanicked() {
	s.panicked.Store(true)
}
