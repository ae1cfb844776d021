// Package inflight tracks which messages are currently being processed.
package inflight

import (
	"sync"

	"github.com/aiotter/discord-amazon-url-shortener/internal/metrics"
	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
)

// Set is a process-wide claim-by-id set. The zero value is not usable; call New.
type Set struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func New() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// TryClaim inserts id if it is absent. On success it returns a release
// function that must be called exactly once when processing ends; extra
// calls are ignored. If id is already claimed it returns
// models.ErrAlreadyClaimed.
func (s *Set) TryClaim(id string) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[id]; exists {
		return nil, models.ErrAlreadyClaimed
	}
	s.ids[id] = struct{}{}
	metrics.InFlight.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.ids, id)
			s.mu.Unlock()
			metrics.InFlight.Dec()
		})
	}, nil
}

// Len returns the number of claimed ids.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
