package dedup

import "sync"

// SeenSet is a bounded set of transaction hashes used to suppress duplicate
// emissions. Insertion-ordered FIFO eviction bounds memory; the queue is
// compacted lazily instead of shifting on every pop.
type SeenSet struct {
	mu   sync.Mutex
	m    map[string]struct{}
	q    []string
	head int
	cap  int
}

// NewSeenSet creates a set holding at most capacity hashes.
func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = 1
	}
	return &SeenSet{
		m:   make(map[string]struct{}, capacity),
		cap: capacity,
	}
}

// SeenOrAdd reports whether hash was already present, recording it if not.
// When the set is full the oldest entry is evicted first.
func (s *SeenSet) SeenOrAdd(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[hash]; ok {
		return true
	}

	for len(s.m) >= s.cap && s.head < len(s.q) {
		oldest := s.q[s.head]
		s.head++
		delete(s.m, oldest)
	}

	s.m[hash] = struct{}{}
	s.q = append(s.q, hash)
	s.maybeCompact()
	return false
}

// Len returns the current number of tracked hashes.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *SeenSet) maybeCompact() {
	if s.head < 4096 || s.head*2 < len(s.q) {
		return
	}
	newQ := make([]string, len(s.q)-s.head)
	copy(newQ, s.q[s.head:])
	s.q = newQ
	s.head = 0
}
