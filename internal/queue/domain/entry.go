package queue

import (
	"errors"
	"time"
)

const (
	// MsPerHour converts reserved hours to milliseconds.
	MsPerHour int64 = 3_600_000
	// DefaultCleanupBufferMs is reserved between sessions on a station.
	DefaultCleanupBufferMs int64 = 3 * 60_000
	// MaxReservedHours caps a queued reservation.
	MaxReservedHours = 24
)

var (
	ErrPrepaymentRequired = errors.New("queue: prepayment confirmation required")
	ErrInvalidHours       = errors.New("queue: reserved hours must be between 1 and 24")
	ErrEmptyName          = errors.New("queue: empty name")
	ErrEntryNotFound      = errors.New("queue: entry not found")
	ErrQueueEmpty         = errors.New("queue: empty")
)

// Entry reserves a position, not a station.
type Entry struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	StationID         string  `json:"station_id"`
	ReservedHours     int     `json:"reserved_hours"`
	EnqueuedAtEpochMs int64   `json:"enqueued_at_epoch_ms"`
	PrepaymentKind    string  `json:"prepayment_kind,omitempty"`
	PrepaymentAmount  float64 `json:"prepayment_amount,omitempty"`
}

// Estimate is the projected start of a queued entry.
type Estimate struct {
	Entry           Entry     `json:"entry"`
	Position        int       `json:"position"`
	EstimatedWaitMs int64     `json:"estimated_wait_ms"`
	EstimatedStart  time.Time `json:"estimated_start"`
}

// EstimateStartTimes projects start times for entries in queue order. The
// station's remaining time is clamped at zero; each session boundary adds the
// cleanup buffer once.
func EstimateStartTimes(remainingMs int64, entries []Entry, now time.Time, bufferMs int64) []Estimate {
	if remainingMs < 0 {
		remainingMs = 0
	}
	out := make([]Estimate, 0, len(entries))
	wait := remainingMs + bufferMs
	for i, entry := range entries {
		out = append(out, Estimate{
			Entry:           entry,
			Position:        i,
			EstimatedWaitMs: wait,
			EstimatedStart:  now.Add(time.Duration(wait) * time.Millisecond),
		})
		wait += int64(entry.ReservedHours)*MsPerHour + bufferMs
	}
	return out
}
