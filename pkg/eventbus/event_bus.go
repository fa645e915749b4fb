// Package eventbus publishes run lifecycle events over watermill.
package eventbus

import (
	"context"

	"github.com/tbragan/graphion/pkg/events"
)

// EventHandler consumes one decoded lifecycle event.
type EventHandler func(ctx context.Context, event any) error

// EventBus publishes and dispatches workflow lifecycle events. The engine only
// publishes; subscribers are host-process concerns (logging, UIs, tests).
type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context) error
	Close() error
}
