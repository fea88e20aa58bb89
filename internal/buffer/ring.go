package buffer

import (
	"sync"

	"chain-sentinel/internal/models"
)

// Ring is the bounded per-network recent-transaction window. Fixed capacity,
// oldest evicted first. Written only by the owning monitor goroutines, read
// by detectors via Snapshot.
type Ring struct {
	mu   sync.RWMutex
	buf  []models.TransactionEvent
	head int
	size int
}

// NewRing creates a ring buffer with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]models.TransactionEvent, capacity)}
}

// Append adds an event, evicting the oldest when full.
func (r *Ring) Append(ev models.TransactionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = ev
		r.size++
		return
	}
	r.buf[r.head] = ev
	r.head = (r.head + 1) % len(r.buf)
}

// Snapshot returns the buffered events oldest-first.
func (r *Ring) Snapshot() []models.TransactionEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.TransactionEvent, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of buffered events.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the fixed buffer capacity.
func (r *Ring) Capacity() int {
	return len(r.buf)
}
