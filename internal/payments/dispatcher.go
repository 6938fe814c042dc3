package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"venue-timers/internal/eventing"
	"venue-timers/internal/observability/metrics"
	"venue-timers/internal/timers/application/events"
)

const (
	defaultBuffer        = 64
	defaultRecordTimeout = 3 * time.Second
)

// ErrDispatcherFull is returned when the queue has no room; the payment is dropped.
var ErrDispatcherFull = errors.New("payments: dispatcher queue full")

// Dispatcher hands payments to a Recorder from a worker goroutine. Enqueue
// never blocks, so a slow or failing POS never stalls the timer.
type Dispatcher struct {
	recorder Recorder
	logger   zerolog.Logger
	timeout  time.Duration
	buffer   int
	currency string

	mu     sync.RWMutex
	closed bool
	queue  chan Payment
	done   chan struct{}
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBuffer sets the queue capacity.
func WithBuffer(size int) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.buffer = size
		}
	}
}

// WithRecordTimeout bounds each Record call.
func WithRecordTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithCurrency stamps payments with an ISO currency code.
func WithCurrency(code string) DispatcherOption {
	return func(d *Dispatcher) {
		d.currency = code
	}
}

// NewDispatcher starts the worker.
func NewDispatcher(recorder Recorder, logger zerolog.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if recorder == nil {
		return nil, errors.New("payments: nil recorder")
	}
	d := &Dispatcher{
		recorder: recorder,
		logger:   logger,
		timeout:  defaultRecordTimeout,
		buffer:   defaultBuffer,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan Payment, d.buffer)
	go d.run()
	return d, nil
}

// Register forwards session payments from the bus.
func (d *Dispatcher) Register(bus eventing.Bus) {
	eventing.Subscribe(bus, func(_ context.Context, evt events.SessionStarted) error {
		d.enqueueLogged(Payment{
			StationID:   evt.StationID,
			StationName: evt.StationName,
			SessionID:   evt.SessionID,
			Kind:        evt.PaymentKind,
			Amount:      evt.Amount,
			Minutes:     evt.Minutes,
			Reason:      ReasonStart,
		})
		return nil
	})
	eventing.Subscribe(bus, func(_ context.Context, evt events.SessionExtended) error {
		d.enqueueLogged(Payment{
			StationID:   evt.StationID,
			StationName: evt.StationName,
			SessionID:   evt.SessionID,
			Kind:        evt.PaymentKind,
			Amount:      evt.Amount,
			Minutes:     evt.Minutes,
			Reason:      ReasonExtend,
		})
		return nil
	})
}

// Enqueue schedules a payment for recording.
func (d *Dispatcher) Enqueue(payment Payment) error {
	if payment.Currency == "" {
		payment.Currency = d.currency
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.New("payments: dispatcher closed")
	}
	select {
	case d.queue <- payment:
		return nil
	default:
		return ErrDispatcherFull
	}
}

// Close records what is queued and stops the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) enqueueLogged(payment Payment) {
	if err := d.Enqueue(payment); err != nil {
		d.fail(payment, err)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for payment := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.recorder.Record(ctx, payment)
		cancel()
		if err != nil {
			d.fail(payment, err)
		}
	}
}

func (d *Dispatcher) fail(payment Payment, err error) {
	metrics.IncCollaboratorFailure(metrics.CollaboratorPayment)
	d.logger.Error().Err(err).
		Str("collaborator", metrics.CollaboratorPayment).
		Str("station_id", payment.StationID).
		Str("session_id", payment.SessionID).
		Str("reason", string(payment.Reason)).
		Msg("payment recording failed")
}
