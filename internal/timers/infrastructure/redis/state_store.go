package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"venue-timers/internal/observability/metrics"
	timers "venue-timers/internal/timers/domain"
)

const (
	defaultKeyPrefix = "venue:timer:"
	scanBatch        = 100
)

// StateStore keeps one CBOR snapshot per station under prefix+stationID.
type StateStore struct {
	client goredis.UniversalClient
	prefix string
	logger zerolog.Logger
}

// StateStoreOption configures the store.
type StateStoreOption func(*StateStore)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) StateStoreOption {
	return func(s *StateStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for skipped snapshots.
func WithLogger(logger zerolog.Logger) StateStoreOption {
	return func(s *StateStore) {
		s.logger = logger
	}
}

// NewStateStore constructs a store.
func NewStateStore(client goredis.UniversalClient, opts ...StateStoreOption) (*StateStore, error) {
	if client == nil {
		return nil, errors.New("redis timer store: nil client")
	}
	s := &StateStore{client: client, prefix: defaultKeyPrefix, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Key returns the key for a station.
func (s *StateStore) Key(stationID string) string {
	return s.prefix + stationID
}

// Save writes a snapshot.
func (s *StateStore) Save(ctx context.Context, state timers.TimerState) error {
	if state.StationID == "" {
		return errors.New("redis timer store: empty station id")
	}
	data, err := EncodeState(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.Key(state.StationID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis timer store: set %s: %w", state.StationID, err)
	}
	return nil
}

// Load scans every snapshot under the prefix. Snapshots that fail to decode
// are logged and skipped.
func (s *StateStore) Load(ctx context.Context) (map[string]timers.TimerState, error) {
	out := make(map[string]timers.TimerState)
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis timer store: scan: %w", err)
		}
		if len(keys) > 0 {
			values, err := s.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("redis timer store: mget: %w", err)
			}
			s.decodeSnapshots(keys, values, out)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func (s *StateStore) decodeSnapshots(keys []string, values []interface{}, out map[string]timers.TimerState) {
	for i, raw := range values {
		if i >= len(keys) {
			return
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		state, err := DecodeState([]byte(str))
		if err != nil {
			metrics.IncCollaboratorFailure(metrics.CollaboratorPersistence)
			s.logger.Warn().Err(err).Str("key", keys[i]).Msg("skipping unreadable timer snapshot")
			continue
		}
		out[strings.TrimPrefix(keys[i], s.prefix)] = state
	}
}
