package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"venue-timers/internal/observability/metrics"
	queue "venue-timers/internal/queue/domain"
	stations "venue-timers/internal/stations/domain"
	timers "venue-timers/internal/timers/domain"
)

// StationChecker reports catalog membership.
type StationChecker interface {
	Has(id string) bool
}

// RemainingReader exposes a station's remaining time and status.
type RemainingReader interface {
	RemainingMs(stationID string) (int64, timers.Status, error)
}

// Admission is the prepayment gate the caller satisfies before enqueueing.
type Admission struct {
	PrepaymentConfirmed bool
	PaymentKind         string
	Amount              float64
}

// Manager keeps one FIFO waiting list per station.
type Manager struct {
	mu     sync.Mutex
	queues map[string][]queue.Entry

	stations StationChecker
	timers   RemainingReader
	clock    clockwork.Clock
	bufferMs int64
}

// Option customizes the manager.
type Option func(*Manager)

// WithClock assigns a clock.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithCleanupBuffer overrides the buffer between sessions.
func WithCleanupBuffer(buffer time.Duration) Option {
	return func(m *Manager) {
		if buffer >= 0 {
			m.bufferMs = buffer.Milliseconds()
		}
	}
}

// NewManager constructs a manager.
func NewManager(stationChecker StationChecker, remaining RemainingReader, opts ...Option) (*Manager, error) {
	if stationChecker == nil {
		return nil, errors.New("queue: nil station checker")
	}
	if remaining == nil {
		return nil, errors.New("queue: nil timer reader")
	}
	m := &Manager{
		queues:   make(map[string][]queue.Entry),
		stations: stationChecker,
		timers:   remaining,
		clock:    clockwork.NewRealClock(),
		bufferMs: queue.DefaultCleanupBufferMs,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Enqueue appends an entry at the tail once prepayment is confirmed.
func (m *Manager) Enqueue(_ context.Context, stationID, name string, reservedHours int, admission Admission) (queue.Entry, error) {
	if !m.stations.Has(stationID) {
		return queue.Entry{}, fmt.Errorf("%w: %s", stations.ErrStationNotFound, stationID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return queue.Entry{}, queue.ErrEmptyName
	}
	if reservedHours < 1 || reservedHours > queue.MaxReservedHours {
		return queue.Entry{}, queue.ErrInvalidHours
	}
	if !admission.PrepaymentConfirmed {
		return queue.Entry{}, queue.ErrPrepaymentRequired
	}

	entry := queue.Entry{
		ID:                uuid.NewString(),
		Name:              name,
		StationID:         stationID,
		ReservedHours:     reservedHours,
		EnqueuedAtEpochMs: m.clock.Now().UnixMilli(),
		PrepaymentKind:    admission.PaymentKind,
		PrepaymentAmount:  admission.Amount,
	}

	m.mu.Lock()
	m.queues[stationID] = append(m.queues[stationID], entry)
	length := len(m.queues[stationID])
	m.mu.Unlock()

	metrics.SetQueueLength(stationID, length)
	return entry, nil
}

// Dequeue removes an entry anywhere in the list, keeping the rest in order.
func (m *Manager) Dequeue(_ context.Context, stationID, entryID string) (queue.Entry, error) {
	m.mu.Lock()
	list := m.queues[stationID]
	idx := -1
	for i, entry := range list {
		if entry.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return queue.Entry{}, fmt.Errorf("%w: %s", queue.ErrEntryNotFound, entryID)
	}
	removed := list[idx]
	next := make([]queue.Entry, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	m.queues[stationID] = next
	m.mu.Unlock()

	metrics.SetQueueLength(stationID, len(next))
	return removed, nil
}

// PeekNext returns the head entry.
func (m *Manager) PeekNext(stationID string) (queue.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.queues[stationID]
	if len(list) == 0 {
		return queue.Entry{}, false
	}
	return list[0], true
}

// List returns a copy of the waiting list.
func (m *Manager) List(stationID string) []queue.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]queue.Entry(nil), m.queues[stationID]...)
}

// Estimates projects start times from the current timer state. Idle and
// stopped stations count as free now.
func (m *Manager) Estimates(stationID string) ([]queue.Estimate, error) {
	if !m.stations.Has(stationID) {
		return nil, fmt.Errorf("%w: %s", stations.ErrStationNotFound, stationID)
	}
	remaining, status, err := m.timers.RemainingMs(stationID)
	if err != nil {
		return nil, err
	}
	if !status.Active() {
		remaining = 0
	}
	return queue.EstimateStartTimes(remaining, m.List(stationID), m.clock.Now(), m.bufferMs), nil
}
