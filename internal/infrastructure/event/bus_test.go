package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingHandler records the events it receives and optionally fails
type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.handled = append(h.handled, evt)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func statusChanged(orderID uuid.UUID, to procurement.PurchaseOrderStatus) *procurement.PurchaseOrderStatusChangedEvent {
	return &procurement.PurchaseOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(procurement.EventTypePOStatusChanged,
			procurement.AggregateTypePurchaseOrder, orderID, "depot-manager-1"),
		OrderID:    orderID,
		PONumber:   "PO-2026-000001",
		FromStatus: procurement.POStatusDraft,
		ToStatus:   to,
	}
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	typed := newRecordingHandler(procurement.EventTypePOStatusChanged)
	other := newRecordingHandler(procurement.EventTypeInvoicePaid)
	wildcard := newRecordingHandler()
	bus.Subscribe(typed)
	bus.Subscribe(other)
	bus.Subscribe(wildcard)

	orderID := uuid.New()
	err := bus.Publish(context.Background(),
		statusChanged(orderID, procurement.POStatusPending),
		statusChanged(orderID, procurement.POStatusAccepted),
	)

	require.NoError(t, err)
	assert.Equal(t, 2, typed.count())
	assert.Equal(t, 0, other.count())
	assert.Equal(t, 2, wildcard.count())
}

func TestInMemoryEventBus_Publish_Failures(t *testing.T) {
	t.Run("failing handler does not stop the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := newRecordingHandler(procurement.EventTypePOStatusChanged)
		failing.setError(errors.New("broker down"))
		healthy := newRecordingHandler(procurement.EventTypePOStatusChanged)
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(context.Background(), statusChanged(uuid.New(), procurement.POStatusPending))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("panic becomes an error", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newRecordingHandler(procurement.EventTypePOStatusChanged)
		h.panicWith = "boom"
		bus.Subscribe(h)

		err := bus.Publish(context.Background(), statusChanged(uuid.New(), procurement.POStatusPending))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newRecordingHandler(procurement.EventTypePOStatusChanged)
	bus.Subscribe(h)
	require.NoError(t, bus.Start(context.Background()))

	require.NoError(t, bus.Publish(context.Background(), statusChanged(uuid.New(), procurement.POStatusPending)))
	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(context.Background(), statusChanged(uuid.New(), procurement.POStatusPending)))

	assert.Equal(t, 1, h.count())
	assert.NoError(t, bus.Stop(context.Background()))
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := newRecordingHandler()
	b := newRecordingHandler()

	r.Register(a, "A", "B")
	r.Register(b)

	assert.Equal(t, []shared.EventHandler{a, b}, r.GetHandlers("A"))
	assert.Equal(t, []shared.EventHandler{b}, r.GetHandlers("C"))

	r.Unregister(a)
	assert.Equal(t, []shared.EventHandler{b}, r.GetHandlers("A"))
	_, stillMapped := r.handlers["A"]
	assert.False(t, stillMapped)
}
