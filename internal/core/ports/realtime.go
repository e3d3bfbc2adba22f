package ports

import (
	"context"

	"github.com/lorrc/avisos-backend/internal/core/domain"
)

// EventListener handles one published event. A returned error is logged by
// the bus and never reaches the publisher.
type EventListener func(ctx context.Context, payload any) error

// Subscription is the handle returned by EventBus.Subscribe.
type Subscription interface {
	Unsubscribe()
}

// EventBus is an in-process, synchronous publish/subscribe dispatcher.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any)
	Subscribe(topic string, listener EventListener) Subscription
}

// EventBroadcaster pushes an event to every open real-time connection.
type EventBroadcaster interface {
	Broadcast(event domain.BroadcastEvent) error
	ClientCount() int
}
