package memory

import (
	"context"
	"sync"

	overtime "venue-timers/internal/overtime/domain"
)

// RecordStore is an in-memory daily statistics store for demo/testing.
type RecordStore struct {
	mu      sync.RWMutex
	records []overtime.Record
	keys    map[string]struct{}
	fail    error
}

// NewRecordStore constructs a store.
func NewRecordStore() *RecordStore {
	return &RecordStore{keys: make(map[string]struct{})}
}

// FailWith makes subsequent appends return err. Pass nil to recover.
func (s *RecordStore) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// AppendOvertime stores rec unless its key exists.
func (s *RecordStore) AppendOvertime(ctx context.Context, rec overtime.Record) error {
	_ = ctx
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if _, ok := s.keys[rec.Key]; ok {
		return overtime.ErrDuplicate
	}
	s.keys[rec.Key] = struct{}{}
	s.records = append(s.records, rec)
	return nil
}

// ListByPeriod returns records in insertion order.
func (s *RecordStore) ListByPeriod(ctx context.Context, periodKey string) ([]overtime.Record, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []overtime.Record
	for _, rec := range s.records {
		if rec.PeriodKey == periodKey {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
