package application

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Periodic is a repeating step of a task.
type Periodic struct {
	Every time.Duration
	Fire  func(ctx context.Context)
}

// Task is an owned, cancellable scheduled job. Tickers are created before
// Start returns; after Cancel returns nothing fires again.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartTask runs initial (if any) at once, then each periodic step on its
// own cadence until cancelled. At most two periodic steps are supported.
func StartTask(clock clockwork.Clock, initial func(ctx context.Context), steps ...Periodic) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{cancel: cancel, done: make(chan struct{})}

	var (
		chans   [2]<-chan time.Time
		tickers []clockwork.Ticker
		fires   [2]func(context.Context)
	)
	for i, step := range steps {
		if i >= len(chans) || step.Every <= 0 || step.Fire == nil {
			continue
		}
		ticker := clock.NewTicker(step.Every)
		tickers = append(tickers, ticker)
		chans[i] = ticker.Chan()
		fires[i] = step.Fire
	}

	go func() {
		defer close(t.done)
		defer func() {
			for _, ticker := range tickers {
				ticker.Stop()
			}
		}()
		if initial != nil {
			initial(ctx)
		}
		if len(tickers) == 0 {
			<-ctx.Done()
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-chans[0]:
				if ctx.Err() == nil {
					fires[0](ctx)
				}
			case <-chans[1]:
				if ctx.Err() == nil {
					fires[1](ctx)
				}
			}
		}
	}()
	return t
}

// Cancel stops the task and waits for an in-flight step to return.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}
