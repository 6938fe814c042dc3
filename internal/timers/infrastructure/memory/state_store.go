package memory

import (
	"context"
	"errors"
	"sync"

	timers "venue-timers/internal/timers/domain"
)

// StateStore is an in-memory timer store for demo/testing.
type StateStore struct {
	mu    sync.RWMutex
	data  map[string]timers.TimerState
	saves int
}

// NewStateStore constructs a store.
func NewStateStore() *StateStore {
	return &StateStore{data: make(map[string]timers.TimerState)}
}

// Save stores a copy of the state.
func (s *StateStore) Save(ctx context.Context, state timers.TimerState) error {
	_ = ctx
	if state.StationID == "" {
		return errors.New("timer store: empty station id")
	}
	s.mu.Lock()
	s.data[state.StationID] = state.Clone()
	s.saves++
	s.mu.Unlock()
	return nil
}

// Load returns copies of every stored state.
func (s *StateStore) Load(ctx context.Context) (map[string]timers.TimerState, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]timers.TimerState, len(s.data))
	for id, state := range s.data {
		out[id] = state.Clone()
	}
	return out, nil
}

// Get returns one stored state.
func (s *StateStore) Get(stationID string) (timers.TimerState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.data[stationID]
	return state.Clone(), ok
}

// Saves returns how many writes were applied.
func (s *StateStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
