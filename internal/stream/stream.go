package stream

import (
	"sync/atomic"

	"chain-sentinel/internal/models"
)

// Stream is the buffered event channel between ingestion monitors and the
// detection engine. Multi-producer, single consumer per network. When the
// buffer is full the oldest unprocessed event is dropped and counted, so a
// slow consumer never blocks an ingestion worker.
type Stream struct {
	ch      chan models.TransactionEvent
	dropped atomic.Uint64
}

// New creates a stream with the given buffer size.
func New(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 1
	}
	return &Stream{ch: make(chan models.TransactionEvent, buffer)}
}

// Publish enqueues an event without ever blocking the caller. On a full
// buffer the oldest queued event is discarded to make room; the number of
// discarded events is returned.
func (s *Stream) Publish(ev models.TransactionEvent) int {
	dropped := 0
	for {
		select {
		case s.ch <- ev:
			return dropped
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
			dropped++
		default:
		}
	}
}

// Events returns the consumer side of the stream.
func (s *Stream) Events() <-chan models.TransactionEvent {
	return s.ch
}

// Dropped returns the number of events discarded under backpressure.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}
