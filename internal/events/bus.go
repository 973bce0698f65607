// Package events dispatches typed events to handlers registered on an explicit Bus.
// Handlers for an event type run synchronously, in registration order, on the
// publishing goroutine.
package events

import (
	"context"
	"reflect"
	"sync"
)

// Bus routes events by their concrete Go type.
type Bus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]handler
}

type handler func(ctx context.Context, event any) error

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]handler)}
}

// On registers fn for events of type E.
func On[E any](b *Bus, fn func(ctx context.Context, event E) error) {
	if b == nil || fn == nil {
		return
	}
	key := reflect.TypeOf((*E)(nil)).Elem()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[key] = append(b.handlers[key], func(ctx context.Context, event any) error {
		return fn(ctx, event.(E))
	})
}

// Publish runs every handler registered for the type of event. The first
// handler error stops dispatch and is returned. Publishing an event nobody
// listens to is a no-op.
func Publish[E any](ctx context.Context, b *Bus, event E) error {
	if b == nil {
		return nil
	}
	key := reflect.TypeOf((*E)(nil)).Elem()
	b.mu.RLock()
	chain := append([]handler(nil), b.handlers[key]...)
	b.mu.RUnlock()

	for _, h := range chain {
		if err := h(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Handlers reports how many handlers are registered for type E.
func Handlers[E any](b *Bus) int {
	if b == nil {
		return 0
	}
	key := reflect.TypeOf((*E)(nil)).Elem()
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[key])
}
