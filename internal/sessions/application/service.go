package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	overtime "venue-timers/internal/overtime/domain"
	queue "venue-timers/internal/queue/domain"
	timers "venue-timers/internal/timers/domain"
)

// ErrStationBusy is returned when promoting into a station that is not idle.
var ErrStationBusy = errors.New("sessions: station is not idle")

// Timers is the subset of the timer engine used by the workflows.
type Timers interface {
	Snapshot(stationID string) (timers.TimerState, error)
	SetDuration(ctx context.Context, stationID string, minutes int) (timers.TimerState, error)
	Start(ctx context.Context, stationID string, kind timers.PaymentKind) (timers.TimerState, error)
	Stop(ctx context.Context, stationID string) (timers.TimerState, error)
	Reset(ctx context.Context, stationID string) (timers.TimerState, error)
}

// Alarms acknowledges station alarms.
type Alarms interface {
	StopAlarm(ctx context.Context, stationID string) bool
}

// Overtime records closeout overtime.
type Overtime interface {
	RecordIfOvertime(ctx context.Context, key, stationID string, remainingMs int64) (overtime.Record, bool)
}

// Queue is the waiting list used for promotion.
type Queue interface {
	PeekNext(stationID string) (queue.Entry, bool)
	Dequeue(ctx context.Context, stationID, entryID string) (queue.Entry, error)
}

// CloseoutResult describes a finished closeout.
type CloseoutResult struct {
	State        timers.TimerState `json:"state"`
	AlarmStopped bool              `json:"alarm_stopped"`
	Overtime     *overtime.Record  `json:"overtime,omitempty"`
}

// PromoteResult describes a queue promotion.
type PromoteResult struct {
	Entry queue.Entry       `json:"entry"`
	State timers.TimerState `json:"state"`
}

// Service runs the operator workflows that span the timer, alarm, overtime and
// queue components. Workflows on one station are serialized.
type Service struct {
	timers   Timers
	alarms   Alarms
	overtime Overtime
	queue    Queue
	logger   zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService constructs a service.
func NewService(t Timers, a Alarms, o Overtime, q Queue, logger zerolog.Logger) (*Service, error) {
	if t == nil {
		return nil, errors.New("sessions: nil timers")
	}
	if a == nil {
		return nil, errors.New("sessions: nil alarms")
	}
	if o == nil {
		return nil, errors.New("sessions: nil overtime tracker")
	}
	if q == nil {
		return nil, errors.New("sessions: nil queue")
	}
	return &Service{
		timers:   t,
		alarms:   a,
		overtime: o,
		queue:    q,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// Closeout ends a session: stop the timer if still active, acknowledge its
// alarm, record overtime once per session, and optionally reset to idle.
// A station that is already stopped can be closed again; overtime is not
// recorded twice.
func (s *Service) Closeout(ctx context.Context, stationID string, reset bool) (CloseoutResult, error) {
	unlock := s.lock(stationID)
	defer unlock()

	state, err := s.timers.Snapshot(stationID)
	if err != nil {
		return CloseoutResult{}, err
	}
	switch {
	case state.Status.Active():
		if state, err = s.timers.Stop(ctx, stationID); err != nil {
			return CloseoutResult{}, err
		}
	case state.Status != timers.StatusStopped:
		return CloseoutResult{}, &timers.TransitionError{Action: timers.ActionStop, StationID: stationID, From: state.Status}
	}

	result := CloseoutResult{AlarmStopped: s.alarms.StopAlarm(ctx, stationID)}
	if rec, ok := s.overtime.RecordIfOvertime(ctx, closeoutKey(state), stationID, state.RemainingMs); ok {
		result.Overtime = &rec
		s.logger.Info().Str("station_id", stationID).Str("session_id", state.SessionID).Int("minutes", rec.OvertimeMinutes).Msg("overtime recorded")
	}

	if reset {
		if state, err = s.timers.Reset(ctx, stationID); err != nil {
			return CloseoutResult{}, err
		}
	}
	result.State = state
	return result, nil
}

// Promote starts the head of a station's queue on the idle station. The
// customer prepaid at admission, so the session starts as prepaid.
func (s *Service) Promote(ctx context.Context, stationID string) (PromoteResult, error) {
	unlock := s.lock(stationID)
	defer unlock()

	state, err := s.timers.Snapshot(stationID)
	if err != nil {
		return PromoteResult{}, err
	}
	if state.Status != timers.StatusIdle {
		return PromoteResult{}, fmt.Errorf("%w: %s is %s", ErrStationBusy, stationID, state.Status)
	}
	entry, ok := s.queue.PeekNext(stationID)
	if !ok {
		return PromoteResult{}, queue.ErrQueueEmpty
	}

	if _, err := s.timers.SetDuration(ctx, stationID, entry.ReservedHours*60); err != nil {
		return PromoteResult{}, err
	}
	if state, err = s.timers.Start(ctx, stationID, timers.PaymentPrepaid); err != nil {
		return PromoteResult{}, err
	}
	if _, err := s.queue.Dequeue(ctx, stationID, entry.ID); err != nil {
		s.logger.Warn().Err(err).Str("station_id", stationID).Str("entry_id", entry.ID).Msg("dequeue after promotion failed")
	}
	return PromoteResult{Entry: entry, State: state}, nil
}

func (s *Service) lock(stationID string) func() {
	s.mu.Lock()
	l, ok := s.locks[stationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[stationID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func closeoutKey(state timers.TimerState) string {
	if state.SessionID != "" {
		return state.SessionID
	}
	if state.StartedAtEpochMs != nil {
		return state.StationID + "@" + strconv.FormatInt(*state.StartedAtEpochMs, 10)
	}
	return ""
}
