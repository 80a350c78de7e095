package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/studioswitch/studioswitch/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of switcher, feed, effect, and playback events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"source-loaded":          events.SourceLoadedEvent{},
		"take":                   events.TakeEvent{},
		"transition-started":     events.TransitionStartedEvent{},
		"transition-completed":   events.TransitionCompletedEvent{},
		"feed-status-changed":    events.FeedStatusChangedEvent{},
		"effect-chain-changed":   events.EffectChainChangedEvent{},
		"playback-state-changed": events.PlaybackStateChangedEvent{},
		"device-discovery":       events.DeviceDiscoveryEvent{},
		"log-entry":              events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		bus := s.options.EventBus
		unsubscribers := []func(){
			events.SubscribeToChannel[events.SourceLoadedEvent](bus, eventCh),
			events.SubscribeToChannel[events.TakeEvent](bus, eventCh),
			events.SubscribeToChannel[events.TransitionStartedEvent](bus, eventCh),
			events.SubscribeToChannel[events.TransitionCompletedEvent](bus, eventCh),
			events.SubscribeToChannel[events.FeedStatusChangedEvent](bus, eventCh),
			events.SubscribeToChannel[events.EffectChainChangedEvent](bus, eventCh),
			events.SubscribeToChannel[events.PlaybackStateChangedEvent](bus, eventCh),
			events.SubscribeToChannel[events.DeviceDiscoveryEvent](bus, eventCh),
			events.SubscribeToChannel[events.LogEntryEvent](bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial message confirms the subscription is live.
		if err := send.Data(events.LogEntryEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     "info",
			Module:    "api",
			Message:   "SSE connection established",
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
