// Package ports define the EventBus interface for event-driven communication.
// The event bus replaces callbacks and enables loose coupling between components.
package ports

import (
	"github.com/auroraviz/aurora/internal/domain"
)

// EventBus carries domain events between services and their observers.
// Services publish what happened; the presenter, the web server and the
// application glue subscribe to what they care about. Neither side holds a
// reference to the other.
//
// Thread-safety: implementations must tolerate concurrent publishes and
// subscription changes, since the UI thread, the web server and service
// goroutines all share one bus.
//
// Example usage:
//
//	// In service: Publish an event
//	bus.Publish(domain.NewPaletteChangedEvent(palette))
//
//	// In UI presenter: Subscribe to events
//	subID := bus.Subscribe(domain.EventPaletteChanged, func(event domain.Event) {
//	    e := event.(domain.PaletteChangedEvent)
//	    ui.SetPaletteName(e.Palette.Name)
//	})
//
//	// Later: Unsubscribe
//	bus.Unsubscribe(subID)
type EventBus interface {
	// Publish delivers an event to every subscriber of its type.
	// A synchronous bus runs handlers on the publisher's goroutine, so
	// handlers must stay quick or hand off to their own goroutine.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the given type and
	// returns an ID for unsubscribing. Registering the same handler twice
	// yields two subscriptions and two calls per event.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription. Unknown or already removed IDs
	// are a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler for every event regardless of type.
	// Meant for logging and diagnostics rather than feature wiring.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether anyone is listening for the given
	// type, letting publishers skip building expensive event payloads.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the bus and drops all subscriptions. Publishing to
	// a closed bus is a no-op.
	Close() error
}

// EventFilter decides whether an event reaches a filtered subscriber.
type EventFilter func(event domain.Event) bool

// FilteringEventBus extends EventBus with filtered subscriptions, for
// subscribers that want a predicate applied on the bus side instead of
// discarding events inside their handler.
type FilteringEventBus interface {
	EventBus

	// SubscribeFiltered registers a handler that only sees events passing
	// the filter.
	//
	// Example: Only handle progress for a specific bake job
	//	bus.SubscribeFiltered(domain.EventBakeProgress, func(e domain.Event) bool {
	//	    progress := e.(domain.BakeProgressEvent)
	//	    return progress.Progress.JobID == myJobID
	//	}, handleProgress)
	SubscribeFiltered(eventType domain.EventType, filter EventFilter, handler domain.EventHandler) domain.SubscriptionID
}
