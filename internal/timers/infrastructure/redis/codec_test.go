package redis

import (
	"errors"
	"testing"

	timers "venue-timers/internal/timers/domain"
)

func TestStateSurvivesEncoding(t *testing.T) {
	started := int64(1_700_000_000_000)
	state := timers.TimerState{
		StationID:        "table-1",
		Status:           timers.StatusWarning,
		DurationMs:       3_600_000,
		RemainingMs:      240_000,
		StartedAtEpochMs: &started,
		PaidAmount:       45,
		SessionID:        "8c1f",
		Extensions:       1,
	}
	data, err := EncodeState(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeState(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != state.Status || got.RemainingMs != state.RemainingMs || got.DurationMs != state.DurationMs {
		t.Fatalf("mismatch: %+v", got)
	}
	if got.StartedAtEpochMs == nil || *got.StartedAtEpochMs != started {
		t.Fatalf("started at lost: %+v", got.StartedAtEpochMs)
	}
}

func TestDecodeRejectsUnknownStatus(t *testing.T) {
	data, err := EncodeState(timers.TimerState{StationID: "t1", Status: "paused"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeState(data); !errors.Is(err, timers.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := DecodeState([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestKeyUsesPrefix(t *testing.T) {
	store := &StateStore{prefix: "x:"}
	if store.Key("t1") != "x:t1" {
		t.Fatalf("unexpected key %s", store.Key("t1"))
	}
}
