package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(TakeEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event's generic Publish needs the concrete type.
	switch e := ev.(type) {
	case SourceLoadedEvent:
		event.Publish(b.dispatcher, e)
	case TakeEvent:
		event.Publish(b.dispatcher, e)
	case TransitionStartedEvent:
		event.Publish(b.dispatcher, e)
	case TransitionCompletedEvent:
		event.Publish(b.dispatcher, e)
	case FeedStatusChangedEvent:
		event.Publish(b.dispatcher, e)
	case EffectChainChangedEvent:
		event.Publish(b.dispatcher, e)
	case PlaybackStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceDiscoveryEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e TakeEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SourceLoadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TakeEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransitionStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransitionCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FeedStatusChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EffectChainChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PlaybackStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceDiscoveryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
