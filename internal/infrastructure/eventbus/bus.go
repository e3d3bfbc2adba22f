// Package eventbus provides the in-process publish/subscribe dispatcher that
// decouples the REST write path from real-time fan-out.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lorrc/avisos-backend/internal/core/ports"
)

type subscriber struct {
	id       uint64
	listener ports.EventListener
}

// Bus dispatches events synchronously to the listeners registered for a
// topic, in registration order. Listener failures are isolated and logged.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]subscriber
	next   uint64
	logger *slog.Logger
}

var _ ports.EventBus = (*Bus)(nil)

// New creates a ready-to-use Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		topics: make(map[string][]subscriber),
		logger: logger.With("component", "event_bus"),
	}
}

// Publish invokes every listener registered for topic at the time of the
// call. It returns once all of them have returned.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := b.dispatch(ctx, sub, payload); err != nil {
			b.logger.ErrorContext(ctx, "event listener failed",
				"topic", topic,
				"listener_id", sub.id,
				"error", err,
			)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, sub subscriber, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return sub.listener(ctx, payload)
}

// Subscribe registers listener for topic. Events published before the call
// are not replayed.
func (b *Bus) Subscribe(topic string, listener ports.EventListener) ports.Subscription {
	b.mu.Lock()
	b.next++
	id := b.next
	b.topics[topic] = append(b.topics[topic], subscriber{id: id, listener: listener})
	b.mu.Unlock()

	b.logger.Debug("listener subscribed", "topic", topic, "listener_id", id)
	return &Subscription{bus: b, topic: topic, id: id}
}

// ListenerCount returns the number of listeners registered for topic.
func (b *Bus) ListenerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, sub := range subs {
		if sub.id == id {
			// Copy so in-flight Publish snapshots are never mutated.
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.topics, topic)
			} else {
				b.topics[topic] = next
			}
			return
		}
	}
}

// Subscription removes its listener from the bus when unsubscribed.
type Subscription struct {
	bus   *Bus
	topic string
	id    uint64
	once  sync.Once
}

// Unsubscribe removes the listener. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.topic, s.id)
	})
}
