package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"venue-timers/internal/observability/metrics"
	timers "venue-timers/internal/timers/domain"
)

const defaultSaveTimeout = 2 * time.Second

// ErrSaverClosed is returned by Save after Close.
var ErrSaverClosed = errors.New("timer saver: closed")

// AsyncSaver keeps the latest snapshot per station and writes it from a
// worker goroutine, so callers never wait on the store.
type AsyncSaver struct {
	store   StateSaver
	logger  zerolog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]timers.TimerState
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// SaverOption customizes an AsyncSaver.
type SaverOption func(*AsyncSaver)

// WithSaveTimeout bounds each store write.
func WithSaveTimeout(timeout time.Duration) SaverOption {
	return func(s *AsyncSaver) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewAsyncSaver starts the worker.
func NewAsyncSaver(store StateSaver, logger zerolog.Logger, opts ...SaverOption) (*AsyncSaver, error) {
	if store == nil {
		return nil, errors.New("timer saver: nil store")
	}
	s := &AsyncSaver{
		store:   store,
		logger:  logger,
		timeout: defaultSaveTimeout,
		pending: make(map[string]timers.TimerState),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s, nil
}

// Save queues a snapshot, replacing any unsaved one for the same station.
func (s *AsyncSaver) Save(_ context.Context, state timers.TimerState) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSaverClosed
	}
	s.pending[state.StationID] = state.Clone()
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close writes what is pending and stops the worker.
func (s *AsyncSaver) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.stop)
	<-s.done
}

func (s *AsyncSaver) run() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.stop:
			s.drain()
			return
		}
	}
}

func (s *AsyncSaver) drain() {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]timers.TimerState)
	s.mu.Unlock()

	for id, state := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.store.Save(ctx, state)
		cancel()
		if err != nil {
			metrics.IncCollaboratorFailure(metrics.CollaboratorPersistence)
			s.logger.Error().Err(err).Str("collaborator", metrics.CollaboratorPersistence).Str("station_id", id).Msg("async save failed")
		}
	}
}
