package correlation

import "sync"

// removingSet tracks ids being removed explicitly so the LRU eviction
// callback can tell them apart from expiry.
type removingSet struct {
	mu  sync.Mutex
	ids map[uint16]struct{}
}

func (s *removingSet) add(id uint16) {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
}

func (s *removingSet) del(id uint16) {
	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()
}

func (s *removingSet) has(id uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}
