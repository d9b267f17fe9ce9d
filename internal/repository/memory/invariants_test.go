package memory

import (
	"fmt"
)

// checkInvariants verifies depth and numchild of every document.
func (s *Store) checkInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := make(map[string]int)
	for p, id := range s.byPath {
		d := s.docs[id]
		if d.Path != p {
			return fmt.Errorf("index maps %s to %s at %s", p, id, d.Path)
		}
		if len(p) != d.Depth*s.codec.StepLen {
			return fmt.Errorf("%s: depth %d does not match path %s", id, d.Depth, p)
		}
		if parent := s.codec.ParentOrRoot(p); parent != "" {
			children[parent]++
		}
	}
	for p, id := range s.byPath {
		if n := s.docs[id].NumChild; n != children[p] {
			return fmt.Errorf("%s at %s: numchild %d, counted %d", id, p, n, children[p])
		}
	}
	if len(s.byPath) != len(s.docs) {
		return fmt.Errorf("%d paths for %d documents", len(s.byPath), len(s.docs))
	}
	return nil
}
