package eventing

import (
	"context"
	"errors"
	"testing"
)

type pinged struct{ ID string }

type ponged struct{ ID string }

func TestInMemoryBusDeliversByType(t *testing.T) {
	bus := NewInMemoryBus()
	var got []string
	Subscribe(bus, func(_ context.Context, evt pinged) error {
		got = append(got, "ping:"+evt.ID)
		return nil
	})
	Subscribe(bus, func(_ context.Context, evt ponged) error {
		got = append(got, "pong:"+evt.ID)
		return nil
	})

	if err := bus.Publish(context.Background(), pinged{ID: "1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(context.Background(), &ponged{ID: "2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 2 || got[0] != "ping:1" || got[1] != "pong:2" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestInMemoryBusRunsAllHandlersOnError(t *testing.T) {
	bus := NewInMemoryBus()
	boom := errors.New("boom")
	calls := 0
	Subscribe(bus, func(context.Context, pinged) error { calls++; return boom })
	Subscribe(bus, func(context.Context, pinged) error { calls++; return nil })

	err := bus.Publish(context.Background(), pinged{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d", calls)
	}
	if err := bus.Publish(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent, got %v", err)
	}
}

func TestInMemoryBusRecoversPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus()
	delivered := false
	Subscribe(bus, func(context.Context, pinged) error { panic("sink exploded") })
	Subscribe(bus, func(context.Context, pinged) error { delivered = true; return nil })

	err := bus.Publish(context.Background(), pinged{ID: "3"})
	var delivery *DeliveryError
	if !errors.As(err, &delivery) || delivery.EventType != EventType(pinged{}) {
		t.Fatalf("expected delivery error for pinged, got %v", err)
	}
	if !delivered {
		t.Fatalf("handler after the panic must still run")
	}
	var nilEvent *pinged
	if err := bus.Publish(context.Background(), nilEvent); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent for nil pointer, got %v", err)
	}
}
