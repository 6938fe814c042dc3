package application

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	timers "venue-timers/internal/timers/domain"
	"venue-timers/internal/timers/infrastructure/memory"
)

func TestAsyncSaverKeepsLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	saver, err := NewAsyncSaver(store, zerolog.Nop())
	if err != nil {
		t.Fatalf("new saver: %v", err)
	}
	for i := int64(1); i <= 50; i++ {
		if err := saver.Save(ctx, timers.TimerState{StationID: "t1", Status: timers.StatusRunning, RemainingMs: i}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	saver.Close()

	state, ok := store.Get("t1")
	if !ok || state.RemainingMs != 50 {
		t.Fatalf("expected latest snapshot, got %+v ok=%v", state, ok)
	}
	if store.Saves() > 50 || store.Saves() < 1 {
		t.Fatalf("unexpected write count %d", store.Saves())
	}
	if err := saver.Save(ctx, timers.TimerState{StationID: "t1"}); !errors.Is(err, ErrSaverClosed) {
		t.Fatalf("expected closed saver, got %v", err)
	}
	saver.Close()
}

func TestAsyncSaverRequiresStore(t *testing.T) {
	if _, err := NewAsyncSaver(nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
