package testutil

import (
	"context"
	"sync"

	"github.com/erp/procurement/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it sees.
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
}

// NewEventRecorder subscribes to the given types; none means all of them.
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *EventRecorder) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event.
func (h *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return nil
}

// Handled returns a copy of everything recorded so far.
func (h *EventRecorder) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]shared.DomainEvent, len(h.handled))
	copy(result, h.handled)
	return result
}

// EventsOfType returns the recorded events with the given type, in order.
func (h *EventRecorder) EventsOfType(eventType string) []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var result []shared.DomainEvent
	for _, e := range h.handled {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}
