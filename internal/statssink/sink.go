// Package statssink defines the interface the latency tracker hands
// completed order statistics to, and a CSV file-backed implementation.
//
// Grounded on original_source/include/OrderStatsCollector.h and
// src/OrderStatsCollector.cpp: the original writes one CSV line per
// response to an ofstream with a fixed header. File writes the same
// format using the teacher's bufio.Writer-over-*os.File pattern from
// internal/events/log.go rather than the original's unbuffered ofstream.
package statssink

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/rishav/order-gateway/internal/order"
)

// Header is the fixed CSV header line written once at the top of a new
// stats file, exactly as specified in spec §6.
const Header = "#OrderId,ResponseType,OrderWaitTimeInQueue,OrderRoundTripLatency"

// Sink is the interface the latency tracker hands a completed
// (response, latency record) pair to (spec §4.5, §6). Emit is called
// synchronously, under the latency tracker's mutex, so the ordering of
// stats emission matches the ordering of map mutation (spec §5).
type Sink interface {
	Emit(resp order.OrderResponse, rec order.LatencyRecord)
}

// File is a Sink that appends CSV rows to a file, flushing after every
// write so a reader tailing the file sees records promptly.
type File struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// NewFile opens (creating if necessary) path and writes the CSV header if
// the file is new.
func NewFile(path string) (*File, error) {
	existing, statErr := os.Stat(path)
	freshFile := statErr != nil || existing.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("statssink: open %s: %w", path, err)
	}

	sink := &File{
		file:   f,
		writer: bufio.NewWriter(f),
	}
	if freshFile {
		if _, err := sink.writer.WriteString(Header + "\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("statssink: write header: %w", err)
		}
		if err := sink.writer.Flush(); err != nil {
			f.Close()
			return nil, fmt.Errorf("statssink: flush header: %w", err)
		}
	}
	return sink, nil
}

// Emit appends one CSV row: order_id,result_int,queue_wait_ns,round_trip_ns.
func (s *File) Emit(resp order.OrderResponse, rec order.LatencyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("%d,%d,%d,%d\n", resp.OrderID, resp.Result.Int(), rec.QueueWait(), rec.RoundTrip())
	if _, err := s.writer.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "statssink: write failed: %v\n", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "statssink: flush failed: %v\n", err)
	}
}

// Close flushes and closes the underlying file.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

// Recorder is a Sink that keeps every emitted (response, record) pair in
// memory, for tests that want to assert on the full emitted sequence
// rather than parse a CSV file.
type Recorder struct {
	mu      sync.Mutex
	Emitted []Emission
}

// Emission pairs a response with its completed latency record, in the
// order Emit was called.
type Emission struct {
	Response order.OrderResponse
	Record   order.LatencyRecord
}

// NewRecorder returns an empty in-memory Sink.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit records the pair.
func (r *Recorder) Emit(resp order.OrderResponse, rec order.LatencyRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Emitted = append(r.Emitted, Emission{Response: resp, Record: rec})
}

// Snapshot returns a copy of everything emitted so far.
func (r *Recorder) Snapshot() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Emission, len(r.Emitted))
	copy(out, r.Emitted)
	return out
}
