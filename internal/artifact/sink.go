package artifact

import "sync"

// Sink is the run-level artifact accumulator. Artifacts are only ever
// appended; nothing is removed or reordered once added.
type Sink struct {
	mu    sync.RWMutex
	items []Artifact
}

// NewSink returns an empty accumulator.
func NewSink() *Sink {
	return &Sink{}
}

// Add appends a batch in order. Entries without a path are ignored and the
// number of accepted artifacts is returned.
func (s *Sink) Add(batch ...Artifact) int {
	if s == nil || len(batch) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, a := range batch {
		if a.Path == "" {
			continue
		}
		s.items = append(s.items, a)
		added++
	}
	return added
}

// List returns a copy of every artifact in append order.
func (s *Sink) List() []Artifact {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Artifact, len(s.items))
	copy(out, s.items)
	return out
}

// Files projects the accumulated artifacts for reviewer notifications.
func (s *Sink) Files() []File {
	items := s.List()
	out := make([]File, len(items))
	for i, a := range items {
		out[i] = a.File()
	}
	return out
}

// Len reports how many artifacts have been accumulated.
func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
