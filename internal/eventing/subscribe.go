package eventing

import (
	"context"
	"reflect"
)

// Subscribe registers a typed handler. Nil pointer events are dropped.
func Subscribe[T any](bus Bus, handler func(ctx context.Context, event T) error) {
	if bus == nil || handler == nil {
		return
	}
	bus.Subscribe(reflect.TypeFor[T](), func(ctx context.Context, event any) error {
		switch evt := event.(type) {
		case T:
			return handler(ctx, evt)
		case *T:
			if evt == nil {
				return nil
			}
			return handler(ctx, *evt)
		default:
			return ErrInvalidEventType
		}
	})
}
