// Package eventbus provides implementations of the EventBus interface.
// This package contains the synchronous event bus implementation.
package eventbus

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

// SyncEventBus delivers events to subscribers synchronously, on the
// publisher's goroutine, in subscription order.
//
// Thread-safety: publishes and subscription changes may come from any
// goroutine. Handlers run outside the bus lock, so a handler is free to
// subscribe, unsubscribe or publish again from inside a callback.
//
// Performance: a slow handler stalls its publisher. Only control-path
// events flow through the bus (the render loop publishes nothing per
// frame), so handlers that do real work should hand off to their own
// goroutine anyway.
type SyncEventBus struct {
	logger *slog.Logger

	mu        sync.RWMutex
	byType    map[domain.EventType][]subscription
	wildcards []subscription
	closed    bool
}

// subscription pairs a handler with its ID. filter is nil for
// unconditional subscriptions.
type subscription struct {
	id      domain.SubscriptionID
	filter  ports.EventFilter
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{
		byType: make(map[domain.EventType][]subscription),
	}
}

// SetLogger sets the logger for this event bus.
// This should be called after construction before using the event bus.
func (bus *SyncEventBus) SetLogger(logger *slog.Logger) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.logger = logger
}

// Publish delivers an event to subscribers of its type, then to wildcard
// subscribers. Nil events and publishes after Close are no-ops. A panicking
// handler is recovered and logged without stopping delivery to the rest.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	// Snapshot the matching subscriptions so handlers can change the
	// subscriber lists from inside a callback without deadlocking.
	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	matched := bus.byType[event.Type()]
	snapshot := make([]subscription, 0, len(matched)+len(bus.wildcards))
	snapshot = append(snapshot, matched...)
	snapshot = append(snapshot, bus.wildcards...)
	bus.mu.RUnlock()

	if bus.logger != nil {
		bus.logger.Debug("publishing event",
			slog.String("type", string(event.Type())),
			slog.Int("subscribers", len(snapshot)))
	}

	for _, sub := range snapshot {
		bus.deliver(sub, event)
	}
}

// deliver applies the subscription filter and runs the handler, absorbing
// panics so one broken subscriber cannot take down the publisher.
func (bus *SyncEventBus) deliver(sub subscription, event domain.Event) {
	if sub.filter != nil && !sub.filter(event) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if bus.logger != nil {
				bus.logger.Error("subscriber panic recovered",
					slog.Any("panic", r),
					slog.String("type", string(event.Type())))
			}
		}
	}()

	sub.handler(event)
}

// Subscribe registers a handler for events of the given type and returns
// its subscription ID. The same handler may be registered any number of
// times; each registration is independent.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.register(eventType, nil, handler, false)
}

// SubscribeFiltered registers a handler that only receives events passing
// the filter. Useful for following a single bake job through its progress
// events without fishing every event out by hand.
func (bus *SyncEventBus) SubscribeFiltered(eventType domain.EventType, filter ports.EventFilter, handler domain.EventHandler) domain.SubscriptionID {
	return bus.register(eventType, filter, handler, false)
}

// SubscribeAll registers a handler that receives every event regardless of
// type. Meant for logging and diagnostics.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.register("", nil, handler, true)
}

// register stores a subscription under a fresh ID.
func (bus *SyncEventBus) register(eventType domain.EventType, filter ports.EventFilter, handler domain.EventHandler, wildcard bool) domain.SubscriptionID {
	if handler == nil {
		panic("eventbus: nil handler")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("eventbus: subscribe after close")
	}

	sub := subscription{
		id:      domain.SubscriptionID(uuid.NewString()),
		filter:  filter,
		handler: handler,
	}

	if wildcard {
		bus.wildcards = append(bus.wildcards, sub)
	} else {
		bus.byType[eventType] = append(bus.byType[eventType], sub)
	}

	return sub.id
}

// Unsubscribe removes a subscription. Unknown or already removed IDs are
// a no-op.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for eventType, subs := range bus.byType {
		if trimmed, ok := withoutID(subs, id); ok {
			bus.byType[eventType] = trimmed
			return
		}
	}

	if trimmed, ok := withoutID(bus.wildcards, id); ok {
		bus.wildcards = trimmed
	}
}

// withoutID drops the subscription carrying id by swapping in the last
// element. Removal reorders the list, which only shuffles subscribers that
// registered after the removed one.
func withoutID(subs []subscription, id domain.SubscriptionID) ([]subscription, bool) {
	for i := range subs {
		if subs[i].id == id {
			last := len(subs) - 1
			subs[i] = subs[last]
			return subs[:last], true
		}
	}
	return subs, false
}

// HasSubscribers reports whether anything listens for the given type,
// counting wildcard subscribers.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.byType[eventType]) > 0 || len(bus.wildcards) > 0
}

// SubscriberCount returns the number of active subscriptions across all
// types, wildcards included.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	n := len(bus.wildcards)
	for _, subs := range bus.byType {
		n += len(subs)
	}
	return n
}

// Close drops all subscriptions and marks the bus closed. Further publishes
// are silently ignored; further subscribes panic. Closing twice returns an
// error.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return errors.New("eventbus already closed")
	}

	bus.closed = true
	bus.byType = make(map[domain.EventType][]subscription)
	bus.wildcards = nil

	return nil
}

var (
	_ ports.EventBus          = (*SyncEventBus)(nil)
	_ ports.FilteringEventBus = (*SyncEventBus)(nil)
)
