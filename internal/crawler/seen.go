package crawler

import "sync"

// seenSet tracks dedup keys for the run. Dedup must stay globally consistent
// while workers race, so membership test and insert are one operation.
type seenSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{keys: make(map[string]struct{})}
}

// markIfNew records key and reports whether it was unseen.
func (s *seenSet) markIfNew(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}
