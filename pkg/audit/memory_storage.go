package audit

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStorage keeps events in process memory. Intended for tests and local development.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, events ...Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		e.Metadata = maps.Clone(e.Metadata)
		s.events = append(s.events, e)
	}
	return nil
}

func (s *MemoryStorage) Query(_ context.Context, c Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range slices.Backward(s.events) {
		if c.Matches(e) {
			out = append(out, e)
		}
	}

	if c.Offset > 0 {
		if c.Offset >= len(out) {
			return nil, nil
		}
		out = out[c.Offset:]
	}
	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out, nil
}
