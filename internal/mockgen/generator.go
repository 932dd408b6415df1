// Package mockgen generates synthetic order traffic for demo and
// multi-producer testing, adapted from
// original_source/src/MockOrdersGenerator.cpp. Each Generator gets a
// distinct client prefix folded into the high digits of every order id it
// produces, so concurrent generators with single-digit prefixes (1-9) never
// collide on an id (spec §8 scenario 5). Larger prefixes can collide:
// prefix 1 with sequence 12 and prefix 11 with sequence 2 both yield 112.
package mockgen

import (
	"time"

	"github.com/rishav/order-gateway/internal/order"
)

// Submitter is the subset of internal/ingress.Ingress a Generator submits
// through.
type Submitter interface {
	Submit(req order.OrderRequest, kind order.RequestKind)
}

// Generator emits a steady stream of New orders, with every 10th sequence
// number also issuing a Cancel for the prior order and every 6th-mod-10
// issuing a Modify, mirroring the original's traffic shape.
type Generator struct {
	target Submitter
	prefix uint64
	period time.Duration
	seqNum uint64

	shutdownCh   chan struct{}
	shutdownDone chan struct{}
}

// New constructs a Generator. prefix distinguishes this generator's order
// ids from every other concurrently running generator's; period is the
// delay between emitted requests.
func New(target Submitter, prefix uint8, period time.Duration) *Generator {
	return &Generator{
		target:       target,
		prefix:       uint64(prefix),
		period:       period,
		shutdownCh:   make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
}

// Start launches the generator goroutine.
func (g *Generator) Start() {
	go g.loop()
}

func (g *Generator) loop() {
	defer close(g.shutdownDone)

	ticker := time.NewTicker(g.period)
	defer ticker.Stop()

	for {
		select {
		case <-g.shutdownCh:
			return
		case <-ticker.C:
		}

		id := g.nextID()

		switch {
		case id%10 == 1:
			g.target.Submit(order.OrderRequest{OrderID: id - 1}, order.KindCancel)
		case id%10 == 6:
			g.target.Submit(order.OrderRequest{OrderID: id - 1}, order.KindModify)
		}

		g.target.Submit(order.OrderRequest{
			OrderID:  id,
			SymbolID: 1,
			Price:    100.0,
			Qty:      10,
			Side:     order.SideBuy,
		}, order.KindNew)
	}
}

// nextID folds the generator's prefix into the high digits above seqNum,
// the same scheme as the original's getNextSeqNumber: prefix * 10^digits(seqNum) + seqNum.
func (g *Generator) nextID() uint64 {
	seq := g.seqNum
	g.seqNum++

	scaled := g.prefix
	tmp := seq
	for tmp > 0 {
		scaled *= 10
		tmp /= 10
	}
	return seq + scaled
}

// Shutdown stops the generator goroutine and waits for it to exit.
func (g *Generator) Shutdown() {
	close(g.shutdownCh)
	<-g.shutdownDone
}
