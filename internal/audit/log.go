// Adapted from internal/events/log.go in the matching engine this repo
// started from: same gob-encoded, checksummed, sequence-numbered
// append-only format, same recover-on-open behavior. The event payloads
// are the gateway's lifecycle events (see types.go) instead of order-book
// fills.
package audit

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
)

// Log is an append-only, durable record of gateway lifecycle events.
type Log struct {
	file        *os.File
	writer      *bufio.Writer
	encoder     *gob.Encoder
	mu          sync.Mutex
	sequenceNum uint64
	path        string
}

type record struct {
	SequenceNum uint64
	Data        interface{}
	Checksum    uint32
}

// Open creates or appends to the audit log at path.
func Open(path string) (*Log, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}

	writer := bufio.NewWriter(file)
	l := &Log{
		file:    file,
		writer:  writer,
		encoder: gob.NewEncoder(writer),
		path:    path,
	}

	if err := l.recover(); err != nil {
		file.Close()
		return nil, fmt.Errorf("audit: recover %s: %w", path, err)
	}
	return l, nil
}

// Append assigns the next sequence number to event, writes it, and flushes
// the buffer so a tailing reader sees it promptly. Returns the assigned
// sequence number.
func (l *Log) Append(event interface{}) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sequenceNum++
	seq := l.sequenceNum

	switch e := event.(type) {
	case *OrderAdmittedEvent:
		e.SequenceNum = seq
	case *OrderRejectedEvent:
		e.SequenceNum = seq
	case *OrderModifiedEvent:
		e.SequenceNum = seq
	case *OrderCanceledEvent:
		e.SequenceNum = seq
	case *OrderTransmittedEvent:
		e.SequenceNum = seq
	case *ResponseReceivedEvent:
		e.SequenceNum = seq
	case *UnknownResponseEvent:
		e.SequenceNum = seq
	}

	rec := record{
		SequenceNum: seq,
		Data:        event,
		Checksum:    crc32.ChecksumIEEE([]byte(fmt.Sprintf("%v", event))),
	}

	if err := l.encoder.Encode(rec); err != nil {
		return 0, fmt.Errorf("audit: encode event: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		return 0, fmt.Errorf("audit: flush: %w", err)
	}
	return seq, nil
}

// Replay reads every event in the log in order and calls handler with it.
func (l *Log) Replay(handler func(seq uint64, event interface{}) error) error {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("audit: open for replay: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	var lastSeq uint64
	for {
		var rec record
		if err := decoder.Decode(&rec); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("audit: decode event: %w", err)
		}
		if lastSeq > 0 && rec.SequenceNum != lastSeq+1 {
			return fmt.Errorf("audit: sequence gap: expected %d, got %d", lastSeq+1, rec.SequenceNum)
		}
		lastSeq = rec.SequenceNum

		if want := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%v", rec.Data))); rec.Checksum != want {
			return fmt.Errorf("audit: checksum mismatch at sequence %d", rec.SequenceNum)
		}
		if err := handler(rec.SequenceNum, rec.Data); err != nil {
			return fmt.Errorf("audit: handler error at sequence %d: %w", rec.SequenceNum, err)
		}
	}
}

func (l *Log) recover() error {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	for {
		var rec record
		if err := decoder.Decode(&rec); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		l.sequenceNum = rec.SequenceNum
	}
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Close()
}

func init() {
	gob.Register(&OrderAdmittedEvent{})
	gob.Register(&OrderRejectedEvent{})
	gob.Register(&OrderModifiedEvent{})
	gob.Register(&OrderCanceledEvent{})
	gob.Register(&OrderTransmittedEvent{})
	gob.Register(&ResponseReceivedEvent{})
	gob.Register(&UnknownResponseEvent{})
}
