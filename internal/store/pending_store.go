// Package store holds orders that have been admitted but not yet handed to
// the exchange.
//
// Design Decisions:
//
// 1. Node-stable FIFO: the spec explicitly rules out a raw pointer into a
//    growable sequential container (the original C++ implementation kept a
//    pointer into the back of a std::queue<OrderInfo>, which is fragile —
//    the backing deque can reallocate and invalidate it). container/list's
//    doubly-linked nodes have a stable address for their lifetime
//    regardless of what else is pushed or popped, so the id->record index
//    can hold *list.Element safely.
//
// 2. Single mutex, no I/O under it: every method here does O(1) bookkeeping
//    only. Callers (Ingress, Transmitter) are responsible for doing any
//    exchange I/O or sink calls after releasing the lock.
package store

import (
	"container/list"
	"sync"

	"github.com/rishav/order-gateway/internal/order"
)

// PendingStore is a FIFO of pending order records plus a secondary index by
// order id, as required by spec §4.2. The index entry for an id exists iff
// the record is still in the FIFO (invariant 1).
type PendingStore struct {
	mu    sync.Mutex
	fifo  *list.List
	index map[uint64]*list.Element
}

// New returns an empty PendingStore.
func New() *PendingStore {
	return &PendingStore{
		fifo:  list.New(),
		index: make(map[uint64]*list.Element),
	}
}

// PushNew appends a newly admitted record to the tail of the FIFO and
// indexes it by order id. O(1).
func (s *PendingStore) PushNew(rec *order.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem := s.fifo.PushBack(rec)
	s.index[rec.Request.OrderID] = elem
}

// WithRecord looks up the record for id and, if present, invokes fn with it
// while the store's mutex is still held — the lock-held window is what
// makes the Modify/Cancel race in spec §4.1 safe: either fn runs before the
// Transmitter's PopHead removes the record, or WithRecord reports false and
// the caller treats the modify/cancel as a no-op. Returns whether id was
// found.
func (s *PendingStore) WithRecord(id uint64, fn func(*order.Record)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.index[id]
	if !ok {
		return false
	}
	fn(elem.Value.(*order.Record))
	return true
}

// PopHead removes and returns the record at the front of the FIFO,
// removing its index entry in the same locked section. Returns false if
// the store is empty.
func (s *PendingStore) PopHead() (*order.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popHeadLocked()
}

func (s *PendingStore) popHeadLocked() (*order.Record, bool) {
	elem := s.fifo.Front()
	if elem == nil {
		return nil, false
	}
	rec := elem.Value.(*order.Record)
	s.fifo.Remove(elem)
	delete(s.index, rec.Request.OrderID)
	return rec, true
}

// DrainReject pops every record out of the store and invokes reject on
// each one that was not already canceled. The pops happen under the lock;
// reject is invoked afterward, outside it, since it may log or call into a
// rejection sink.
func (s *PendingStore) DrainReject(reject func(*order.Record)) {
	s.mu.Lock()
	popped := make([]*order.Record, 0, s.fifo.Len())
	for {
		rec, ok := s.popHeadLocked()
		if !ok {
			break
		}
		popped = append(popped, rec)
	}
	s.mu.Unlock()

	for _, rec := range popped {
		if !rec.Canceled {
			reject(rec)
		}
	}
}

// Len returns the number of records currently pending. Intended for tests
// and metrics; not part of the core's hot path.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fifo.Len()
}
