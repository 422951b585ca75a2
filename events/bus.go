package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/totegamma/chatkit"
)

// All subscribes a handler to every event type.
const All = "*"

type Handler func(ctx context.Context, event chatkit.Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus delivers session events to subscribers synchronously, in the order
// they subscribed.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	next     int
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

func (b *Bus) Subscribe(eventType string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[eventType]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Emit(ctx context.Context, event chatkit.Event) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.handlers[event.Type])+len(b.handlers[All]))
	subs = append(subs, b.handlers[event.Type]...)
	subs = append(subs, b.handlers[All]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.call(ctx, sub.handler, event)
	}
}

func (b *Bus) call(ctx context.Context, handler Handler, event chatkit.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(
				ctx, "event handler panicked",
				slog.String("type", event.Type),
				slog.String("error", fmt.Sprint(r)),
				slog.String("module", "events"),
			)
		}
	}()
	handler(ctx, event)
}
