package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"venue-timers/internal/eventing"
	"venue-timers/internal/observability/metrics"
	stations "venue-timers/internal/stations/domain"
	"venue-timers/internal/timers/application/events"
	timers "venue-timers/internal/timers/domain"
)

const defaultTickInterval = time.Second

// Catalog resolves stations.
type Catalog interface {
	Get(id string) (stations.Station, error)
	List() []stations.Station
}

// StateSaver persists a timer snapshot.
type StateSaver interface {
	Save(ctx context.Context, state timers.TimerState) error
}

// StateLoader loads persisted timer snapshots keyed by station id.
type StateLoader interface {
	Load(ctx context.Context) (map[string]timers.TimerState, error)
}

// AdminGate reports whether the caller may adjust a station's running timer.
type AdminGate interface {
	AllowAdjust(ctx context.Context, stationID string) bool
}

// GateFunc adapts a function to AdminGate.
type GateFunc func(ctx context.Context, stationID string) bool

// AllowAdjust implements AdminGate.
func (f GateFunc) AllowAdjust(ctx context.Context, stationID string) bool {
	if f == nil {
		return false
	}
	return f(ctx, stationID)
}

type denyAll struct{}

func (denyAll) AllowAdjust(context.Context, string) bool { return false }

// Engine owns one timer per station. Mutations are serialized by a mutex;
// events and saves are flushed in mutation order after the state lock is
// released. Bus subscribers may read snapshots but must not mutate the engine.
type Engine struct {
	mu     sync.Mutex
	pubMu  sync.Mutex
	states map[string]*timers.TimerState

	catalog   Catalog
	bus       eventing.Bus
	saver     StateSaver
	gate      AdminGate
	clock     clockwork.Clock
	logger    zerolog.Logger
	interval  time.Duration
	warningMs int64
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithClock assigns a clock.
func WithClock(clock clockwork.Clock) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithSaver assigns the persistence collaborator.
func WithSaver(saver StateSaver) EngineOption {
	return func(e *Engine) {
		e.saver = saver
	}
}

// WithAdminGate assigns the adjust authorization gate.
func WithAdminGate(gate AdminGate) EngineOption {
	return func(e *Engine) {
		if gate != nil {
			e.gate = gate
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTickInterval sets the fixed tick interval.
func WithTickInterval(interval time.Duration) EngineOption {
	return func(e *Engine) {
		if interval > 0 {
			e.interval = interval
		}
	}
}

// WithWarningThreshold sets the remaining time at which a timer enters warning.
func WithWarningThreshold(threshold time.Duration) EngineOption {
	return func(e *Engine) {
		if threshold > 0 {
			e.warningMs = threshold.Milliseconds()
		}
	}
}

// NewEngine constructs an engine with every catalog station idle.
func NewEngine(catalog Catalog, bus eventing.Bus, opts ...EngineOption) (*Engine, error) {
	if catalog == nil {
		return nil, errors.New("timer engine: nil catalog")
	}
	if bus == nil {
		return nil, errors.New("timer engine: nil bus")
	}
	e := &Engine{
		states:    make(map[string]*timers.TimerState),
		catalog:   catalog,
		bus:       bus,
		gate:      denyAll{},
		clock:     clockwork.NewRealClock(),
		logger:    zerolog.Nop(),
		interval:  defaultTickInterval,
		warningMs: timers.DefaultWarningThresholdMs,
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, st := range catalog.List() {
		state := timers.NewIdleState(st.ID)
		e.states[st.ID] = &state
	}
	return e, nil
}

// Interval returns the tick interval.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// SetDuration books minutes on an idle station.
func (e *Engine) SetDuration(ctx context.Context, stationID string, minutes int) (timers.TimerState, error) {
	if err := timers.ValidateMinutes(minutes); err != nil {
		return timers.TimerState{}, err
	}
	return e.apply(ctx, stationID, timers.ActionSetDuration, func(st *timers.TimerState, _ stations.Station, _ time.Time) ([]any, error) {
		st.DurationMs = int64(minutes) * timers.MsPerMinute
		st.RemainingMs = st.DurationMs
		return nil, nil
	})
}

// Start begins a session for the booked duration. Starting a stopped station
// begins a fresh session of the same booked length.
func (e *Engine) Start(ctx context.Context, stationID string, kind timers.PaymentKind) (timers.TimerState, error) {
	return e.apply(ctx, stationID, timers.ActionStart, func(st *timers.TimerState, station stations.Station, now time.Time) ([]any, error) {
		if st.DurationMs <= 0 {
			return nil, timers.ErrNoDuration
		}
		minutes := int(st.DurationMs / timers.MsPerMinute)
		amount := 0.0
		if kind != timers.PaymentPrepaid {
			amount = timers.Charge(station.RatePerHour, minutes)
		}
		startedAt := now.UnixMilli()

		st.Status = timers.StatusRunning
		st.RemainingMs = st.DurationMs
		st.StartedAtEpochMs = &startedAt
		st.SessionID = uuid.NewString()
		st.PaidAmount = 0
		st.UnpaidAmount = 0
		st.Extensions = 0
		st.Credit(kind, amount)

		return []any{events.SessionStarted{
			StationID:   st.StationID,
			StationName: station.Name,
			SessionID:   st.SessionID,
			PaymentKind: string(kind),
			Amount:      amount,
			Minutes:     minutes,
			OccurredAt:  now,
		}}, nil
	})
}

// Extend adds paid minutes to an active session.
func (e *Engine) Extend(ctx context.Context, stationID string, minutes int, kind timers.PaymentKind) (timers.TimerState, error) {
	if err := timers.ValidateMinutes(minutes); err != nil {
		return timers.TimerState{}, err
	}
	return e.apply(ctx, stationID, timers.ActionExtend, func(st *timers.TimerState, station stations.Station, now time.Time) ([]any, error) {
		before := st.RemainingMs
		extra := int64(minutes) * timers.MsPerMinute
		amount := timers.Charge(station.RatePerHour, minutes)

		st.RemainingMs += extra
		st.Extensions++
		st.Credit(kind, amount)
		st.Status = timers.Evaluate(st.RemainingMs, e.warningMs)

		out := []any{events.SessionExtended{
			StationID:   st.StationID,
			StationName: station.Name,
			SessionID:   st.SessionID,
			PaymentKind: string(kind),
			Amount:      amount,
			Minutes:     minutes,
			RemainingMs: st.RemainingMs,
			OccurredAt:  now,
		}}
		if before < 0 && st.RemainingMs > 0 {
			out = append(out, events.OvertimeFinalized{
				StationID:   st.StationID,
				SessionID:   st.SessionID,
				RemainingMs: before,
				Seq:         st.Extensions,
				OccurredAt:  now,
			})
		}
		return out, nil
	})
}

// Adjust applies an admin correction of deltaMinutes to the remaining time.
func (e *Engine) Adjust(ctx context.Context, stationID string, deltaMinutes int) (timers.TimerState, error) {
	if !e.gate.AllowAdjust(ctx, stationID) {
		metrics.IncOperation(string(timers.ActionAdjust), timers.ErrUnauthorizedAdjustment)
		return timers.TimerState{}, timers.ErrUnauthorizedAdjustment
	}
	if deltaMinutes == 0 {
		return timers.TimerState{}, fmt.Errorf("%w: delta must be non-zero", timers.ErrInvalidInput)
	}
	if deltaMinutes > timers.MaxMinutes || deltaMinutes < -timers.MaxMinutes {
		return timers.TimerState{}, fmt.Errorf("%w: delta must be within %d minutes", timers.ErrInvalidInput, timers.MaxMinutes)
	}
	return e.apply(ctx, stationID, timers.ActionAdjust, func(st *timers.TimerState, _ stations.Station, now time.Time) ([]any, error) {
		delta := int64(deltaMinutes) * timers.MsPerMinute
		st.RemainingMs += delta
		st.Status = timers.Evaluate(st.RemainingMs, e.warningMs)
		return []any{events.TimerAdjusted{
			StationID:   st.StationID,
			SessionID:   st.SessionID,
			DeltaMs:     delta,
			RemainingMs: st.RemainingMs,
			OccurredAt:  now,
		}}, nil
	})
}

// Stop ends an active session. Remaining time is kept for closeout.
func (e *Engine) Stop(ctx context.Context, stationID string) (timers.TimerState, error) {
	return e.apply(ctx, stationID, timers.ActionStop, func(st *timers.TimerState, _ stations.Station, now time.Time) ([]any, error) {
		st.Status = timers.StatusStopped
		return []any{events.SessionStopped{
			StationID:   st.StationID,
			SessionID:   st.SessionID,
			RemainingMs: st.RemainingMs,
			OccurredAt:  now,
		}}, nil
	})
}

// Reset returns a stopped station to idle.
func (e *Engine) Reset(ctx context.Context, stationID string) (timers.TimerState, error) {
	return e.apply(ctx, stationID, timers.ActionReset, func(st *timers.TimerState, _ stations.Station, now time.Time) ([]any, error) {
		*st = timers.NewIdleState(st.StationID)
		return []any{events.SessionReset{StationID: st.StationID, OccurredAt: now}}, nil
	})
}

// Tick advances every active timer by one interval.
func (e *Engine) Tick(ctx context.Context) {
	began := time.Now()
	step := e.interval.Milliseconds()
	now := e.clock.Now()

	e.mu.Lock()
	var (
		saves []timers.TimerState
		evts  []any
	)
	for _, st := range e.catalog.List() {
		state := e.states[st.ID]
		if state == nil || !timers.CheckAction(state.Status, timers.ActionTick) {
			continue
		}
		from := state.Status
		state.RemainingMs -= step
		state.Status = timers.Evaluate(state.RemainingMs, e.warningMs)
		if state.Status != from {
			evts = append(evts, statusChanged(state, from, now))
		}
		saves = append(saves, state.Clone())
	}
	e.pubMu.Lock()
	e.mu.Unlock()
	e.flush(ctx, saves, evts)
	e.pubMu.Unlock()

	metrics.ObserveTick(time.Since(began))
}

// Run drives Tick at the configured interval until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.Tick(ctx)
		}
	}
}

// Snapshot returns a copy of one station's timer.
func (e *Engine) Snapshot(stationID string) (timers.TimerState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.states[stationID]
	if !ok {
		return timers.TimerState{}, fmt.Errorf("%w: %s", timers.ErrUnknownStation, stationID)
	}
	return state.Clone(), nil
}

// Snapshots returns copies of every timer in catalog order.
func (e *Engine) Snapshots() []timers.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]timers.TimerState, 0, len(e.states))
	for _, st := range e.catalog.List() {
		if state, ok := e.states[st.ID]; ok {
			out = append(out, state.Clone())
		}
	}
	return out
}

// RemainingMs returns the remaining time of a station.
func (e *Engine) RemainingMs(stationID string) (int64, timers.Status, error) {
	state, err := e.Snapshot(stationID)
	if err != nil {
		return 0, "", err
	}
	return state.RemainingMs, state.Status, nil
}

// Restore adopts persisted timers. Unknown or invalid entries are skipped.
// The adopted states are returned so alarms can be re-armed.
func (e *Engine) Restore(ctx context.Context, loader StateLoader) ([]timers.TimerState, error) {
	if loader == nil {
		return nil, nil
	}
	loaded, err := loader.Load(ctx)
	if err != nil {
		metrics.IncCollaboratorFailure(metrics.CollaboratorPersistence)
		return nil, fmt.Errorf("timer engine: load state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var restored []timers.TimerState
	for _, st := range e.catalog.List() {
		state, ok := loaded[st.ID]
		if !ok {
			continue
		}
		if err := state.Validate(); err != nil || state.StationID != st.ID {
			e.logger.Warn().Err(err).Str("station_id", st.ID).Msg("skip invalid persisted timer")
			continue
		}
		adopted := state.Clone()
		e.states[st.ID] = &adopted
		restored = append(restored, adopted.Clone())
	}
	for id := range loaded {
		if _, ok := e.states[id]; !ok {
			e.logger.Warn().Str("station_id", id).Msg("skip persisted timer for unknown station")
		}
	}
	return restored, nil
}

type mutation func(st *timers.TimerState, station stations.Station, now time.Time) ([]any, error)

func (e *Engine) apply(ctx context.Context, stationID string, action timers.Action, mutate mutation) (timers.TimerState, error) {
	station, err := e.catalog.Get(stationID)
	if err != nil {
		return timers.TimerState{}, fmt.Errorf("%w: %s", timers.ErrUnknownStation, stationID)
	}

	e.mu.Lock()
	state, ok := e.states[stationID]
	if !ok {
		idle := timers.NewIdleState(stationID)
		state = &idle
		e.states[stationID] = state
	}
	if !timers.CheckAction(state.Status, action) {
		from := state.Status
		e.mu.Unlock()
		metrics.IncOperation(string(action), timers.ErrInvalidTransition)
		return timers.TimerState{}, &timers.TransitionError{Action: action, StationID: stationID, From: from}
	}

	from := state.Status
	now := e.clock.Now()
	working := state.Clone()
	evts, err := mutate(&working, station, now)
	if err != nil {
		e.mu.Unlock()
		metrics.IncOperation(string(action), err)
		return timers.TimerState{}, err
	}
	*state = working
	if state.Status != from {
		evts = append([]any{statusChanged(state, from, now)}, evts...)
	}
	snapshot := state.Clone()

	e.pubMu.Lock()
	e.mu.Unlock()
	e.flush(ctx, []timers.TimerState{snapshot}, evts)
	e.pubMu.Unlock()

	metrics.IncOperation(string(action), nil)
	return snapshot, nil
}

// flush must be called with pubMu held.
func (e *Engine) flush(ctx context.Context, saves []timers.TimerState, evts []any) {
	for _, evt := range evts {
		if changed, ok := evt.(events.StatusChanged); ok {
			metrics.IncTransition(changed.From, changed.To)
		}
		if err := e.bus.Publish(ctx, evt); err != nil {
			e.logger.Error().Err(err).Str("event", eventing.EventType(evt)).Msg("timer event subscriber failed")
		}
	}
	if e.saver == nil {
		return
	}
	for _, state := range saves {
		if err := e.saver.Save(ctx, state); err != nil {
			metrics.IncCollaboratorFailure(metrics.CollaboratorPersistence)
			e.logger.Error().Err(err).Str("collaborator", metrics.CollaboratorPersistence).Str("station_id", state.StationID).Msg("save timer state failed")
		}
	}
}

func statusChanged(state *timers.TimerState, from timers.Status, now time.Time) events.StatusChanged {
	return events.StatusChanged{
		StationID:   state.StationID,
		SessionID:   state.SessionID,
		From:        string(from),
		To:          string(state.Status),
		RemainingMs: state.RemainingMs,
		OccurredAt:  now,
	}
}
