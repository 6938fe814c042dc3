package eventing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Handler handles a published event.
type Handler func(ctx context.Context, event any) error

// Bus delivers timer events to the components that react to them.
type Bus interface {
	Publish(ctx context.Context, event any) error
	Subscribe(eventType reflect.Type, handler Handler)
}

var (
	// ErrNilEvent is returned when a nil event is published.
	ErrNilEvent = errors.New("eventing: nil event")
	// ErrInvalidEventType is returned when a handler receives an event it cannot take.
	ErrInvalidEventType = errors.New("eventing: invalid event type")
)

// DeliveryError reports a subscriber that failed or panicked on an event.
type DeliveryError struct {
	EventType string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("eventing: %s handler: %v", e.EventType, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// InMemoryBus runs handlers on the publisher's goroutine in subscription
// order. Handlers must not publish back into the caller. Pointer events are
// delivered to handlers of the pointed-to type.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]Handler
}

// NewInMemoryBus constructs a new in-memory bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[reflect.Type][]Handler)}
}

// Publish hands event to every handler of its type. A failing or panicking
// handler does not stop the rest; failures come back joined.
func (b *InMemoryBus) Publish(ctx context.Context, event any) error {
	key := typeKey(event)
	if key == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	handlers := b.handlers[key]
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := deliver(ctx, handler, event); err != nil {
			errs = append(errs, &DeliveryError{EventType: key.String(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for an event type.
func (b *InMemoryBus) Subscribe(eventType reflect.Type, handler Handler) {
	if eventType == nil || handler == nil {
		return
	}
	for eventType.Kind() == reflect.Pointer {
		eventType = eventType.Elem()
	}

	b.mu.Lock()
	// copy on write; Publish iterates the previous slice unlocked
	next := make([]Handler, 0, len(b.handlers[eventType])+1)
	next = append(next, b.handlers[eventType]...)
	b.handlers[eventType] = append(next, handler)
	b.mu.Unlock()
}

func deliver(ctx context.Context, handler Handler, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

func typeKey(event any) reflect.Type {
	if event == nil {
		return nil
	}
	t := reflect.TypeOf(event)
	for t.Kind() == reflect.Pointer {
		if reflect.ValueOf(event).IsNil() {
			return nil
		}
		t = t.Elem()
	}
	return t
}

// EventType names an event for logs.
func EventType(event any) string {
	if t := typeKey(event); t != nil {
		return t.String()
	}
	return ""
}
