package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	alerts "venue-timers/internal/alerts/domain"
	"venue-timers/internal/alerts/notify"
	"venue-timers/internal/eventing"
	"venue-timers/internal/observability/metrics"
	stations "venue-timers/internal/stations/domain"
	"venue-timers/internal/timers/application/events"
)

const (
	defaultRepeatInterval   = 700 * time.Millisecond
	defaultReminderInterval = 30 * time.Second
)

// StationReader resolves display names.
type StationReader interface {
	Get(id string) (stations.Station, error)
}

type alarm struct {
	stationID string
	kind      alerts.Phase
	startedAt time.Time
	lastFired atomic.Int64
	pulses    atomic.Int64
	task      *Task
}

// Scheduler drives per-station alarms from timer status changes. Each alarm
// owns its task; acknowledging or silencing one station never touches another.
type Scheduler struct {
	mu     sync.Mutex
	alarms map[string]*alarm
	chimes sync.WaitGroup

	sink      notify.Sink
	indicator notify.IndicatorSink
	template  *notify.Template
	stations  StationReader
	clock     clockwork.Clock
	logger    zerolog.Logger
	repeat    time.Duration
	reminder  time.Duration
}

// Option customizes the scheduler.
type Option func(*Scheduler)

// WithClock assigns a clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTemplate overrides the persistent notification template.
func WithTemplate(tpl *notify.Template) Option {
	return func(s *Scheduler) {
		if tpl != nil {
			s.template = tpl
		}
	}
}

// WithStations resolves station names for notifications.
func WithStations(reader StationReader) Option {
	return func(s *Scheduler) {
		s.stations = reader
	}
}

// WithIntervals overrides the repeating pulse and reminder cadence.
func WithIntervals(repeat, reminder time.Duration) Option {
	return func(s *Scheduler) {
		if repeat > 0 {
			s.repeat = repeat
		}
		if reminder > 0 {
			s.reminder = reminder
		}
	}
}

// NewScheduler constructs a scheduler. The sink is wrapped in a notify.Guard.
func NewScheduler(sink notify.Sink, opts ...Option) (*Scheduler, error) {
	if sink == nil {
		return nil, errors.New("alert scheduler: nil sink")
	}
	s := &Scheduler{
		alarms:   make(map[string]*alarm),
		clock:    clockwork.NewRealClock(),
		logger:   zerolog.Nop(),
		repeat:   defaultRepeatInterval,
		reminder: defaultReminderInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.template == nil {
		tpl, err := notify.NewTemplate("")
		if err != nil {
			return nil, err
		}
		s.template = tpl
	}
	guard := notify.NewGuard(sink, s.logger)
	s.sink = guard
	s.indicator = guard
	return s, nil
}

// Register subscribes the scheduler to timer events.
func (s *Scheduler) Register(bus eventing.Bus) {
	eventing.Subscribe(bus, func(ctx context.Context, evt events.StatusChanged) error {
		s.Sync(ctx, evt.StationID, evt.To)
		return nil
	})
	eventing.Subscribe(bus, func(_ context.Context, evt events.SessionStarted) error {
		s.chime(evt.StationID)
		return nil
	})
	eventing.Subscribe(bus, func(_ context.Context, evt events.SessionExtended) error {
		s.chime(evt.StationID)
		return nil
	})
	eventing.Subscribe(bus, func(ctx context.Context, evt events.SessionReset) error {
		s.StopAlarm(ctx, evt.StationID)
		return nil
	})
}

// Sync moves a station's alarm to the phase implied by status. Repeated calls
// with the same phase are no-ops, so entry pulses fire once per crossing.
func (s *Scheduler) Sync(ctx context.Context, stationID, status string) {
	phase, ok := alerts.PhaseFor(status)
	if !ok {
		return
	}

	s.mu.Lock()
	current := s.alarms[stationID]
	if current != nil && current.kind == phase {
		s.mu.Unlock()
		return
	}
	if current == nil && phase == alerts.PhaseSilent {
		s.mu.Unlock()
		return
	}
	if current != nil {
		s.removeLocked(current)
	}
	var next *alarm
	if phase != alerts.PhaseSilent {
		next = s.startLocked(stationID, phase)
	}
	s.mu.Unlock()

	if current != nil {
		_ = s.indicator.SetIndicator(ctx, stationID, string(current.kind), false)
	}
	if next != nil {
		_ = s.indicator.SetIndicator(ctx, stationID, string(phase), true)
	}
}

// StopAlarm acknowledges a station's alarm. When it returns no further pulse
// for that station fires. Reports whether an alarm was active.
func (s *Scheduler) StopAlarm(ctx context.Context, stationID string) bool {
	s.mu.Lock()
	current := s.alarms[stationID]
	if current != nil {
		s.removeLocked(current)
	}
	s.mu.Unlock()
	if current == nil {
		return false
	}
	_ = s.indicator.SetIndicator(ctx, stationID, string(current.kind), false)
	return true
}

// List returns active alarms ordered by station id.
func (s *Scheduler) List() []alerts.AlarmView {
	s.mu.Lock()
	out := make([]alerts.AlarmView, 0, len(s.alarms))
	for _, a := range s.alarms {
		out = append(out, alerts.AlarmView{
			StationID:          a.stationID,
			StationName:        s.stationName(a.stationID),
			Kind:               a.kind,
			Active:             true,
			StartedAt:          a.startedAt,
			LastFiredAtEpochMs: a.lastFired.Load(),
			Pulses:             a.pulses.Load(),
		})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out
}

// Active returns the phase of a station's alarm.
func (s *Scheduler) Active(stationID string) (alerts.Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.alarms[stationID]; ok {
		return a.kind, true
	}
	return alerts.PhaseSilent, false
}

// Close cancels every alarm and waits for pending chimes.
func (s *Scheduler) Close() {
	s.mu.Lock()
	for _, a := range s.alarms {
		s.removeLocked(a)
	}
	s.mu.Unlock()
	s.chimes.Wait()
}

func (s *Scheduler) startLocked(stationID string, phase alerts.Phase) *alarm {
	a := &alarm{stationID: stationID, kind: phase, startedAt: s.clock.Now()}
	switch phase {
	case alerts.PhaseWarning:
		a.task = StartTask(s.clock, func(ctx context.Context) {
			s.fire(ctx, a, func(ctx context.Context) {
				_ = s.sink.PlayWarningPulse(ctx, stationID)
				_ = s.sink.Vibrate(ctx, alerts.WarningVibration)
			})
		})
	case alerts.PhaseFinished:
		pulse := func(ctx context.Context) {
			s.fire(ctx, a, func(ctx context.Context) {
				_ = s.sink.PlayFinishedAlarmPulse(ctx, stationID)
			})
		}
		remind := func(ctx context.Context) {
			title, body := s.render(a)
			_ = s.sink.SendPersistentNotification(ctx, title, body)
			_ = s.sink.Vibrate(ctx, alerts.FinishedVibration)
		}
		a.task = StartTask(s.clock, func(ctx context.Context) {
			pulse(ctx)
			remind(ctx)
		}, Periodic{Every: s.repeat, Fire: pulse}, Periodic{Every: s.reminder, Fire: remind})
	}
	s.alarms[stationID] = a
	metrics.AddActiveAlarm(string(phase), 1)
	return a
}

// removeLocked cancels synchronously; pulse callbacks never take s.mu.
func (s *Scheduler) removeLocked(a *alarm) {
	a.task.Cancel()
	delete(s.alarms, a.stationID)
	metrics.AddActiveAlarm(string(a.kind), -1)
}

func (s *Scheduler) fire(ctx context.Context, a *alarm, play func(ctx context.Context)) {
	play(ctx)
	a.lastFired.Store(s.clock.Now().UnixMilli())
	a.pulses.Add(1)
	metrics.IncAlarmPulse(string(a.kind))
}

func (s *Scheduler) chime(stationID string) {
	s.chimes.Add(1)
	go func() {
		defer s.chimes.Done()
		_ = s.sink.PlayConfirmChime(context.Background(), stationID)
	}()
}

func (s *Scheduler) render(a *alarm) (string, string) {
	name := s.stationName(a.stationID)
	overdue := s.clock.Since(a.startedAt).Truncate(time.Second)
	data := notify.TemplateData{
		Station:    name,
		StationID:  a.stationID,
		Event:      string(a.kind),
		EventLabel: "Time up",
		StartTime:  a.startedAt.Format("15:04"),
	}
	if overdue > 0 {
		data.Overdue = overdue.String()
	}
	title := "[Time up] " + name
	body, err := s.template.Render(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("station_id", a.stationID).Msg("render notification failed")
		body = name + " is out of time"
	}
	return title, body
}

func (s *Scheduler) stationName(stationID string) string {
	if s.stations == nil {
		return stationID
	}
	st, err := s.stations.Get(stationID)
	if err != nil || st.Name == "" {
		return stationID
	}
	return st.Name
}
