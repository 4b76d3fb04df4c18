package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fxrate/internal/store"
)

// Store keeps readings in process memory. It backs tests and single-instance
// deployments that do not need history across restarts.
type Store struct {
	mu       sync.RWMutex
	readings []store.Reading
	limit    int
}

// New returns an empty store that keeps at most limit readings (0 = unbounded).
func New(limit int) *Store {
	return &Store{limit: limit}
}

func (s *Store) AppendReading(_ context.Context, raw, smoothed float64, sourceLabel string, observedAt time.Time) (store.Reading, error) {
	if err := store.Validate(raw, smoothed); err != nil {
		return store.Reading{}, err
	}
	r := store.Reading{
		ID:          uuid.New().String(),
		Raw:         raw,
		Smoothed:    smoothed,
		SourceLabel: sourceLabel,
		ObservedAt:  observedAt.UTC(),
	}
	s.mu.Lock()
	s.readings = append(s.readings, r)
	if s.limit > 0 && len(s.readings) > s.limit {
		s.readings = append([]store.Reading(nil), s.readings[len(s.readings)-s.limit:]...)
	}
	s.mu.Unlock()
	return r, nil
}

func (s *Store) LatestReading(_ context.Context) (*store.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.readings) == 0 {
		return nil, nil
	}
	r := s.readings[len(s.readings)-1]
	return &r, nil
}

// History returns a copy of the stored readings, oldest first.
func (s *Store) History() []store.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Reading(nil), s.readings...)
}
