package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func invoicePaid(invoiceID uuid.UUID) *procurement.InvoicePaidEvent {
	return &procurement.InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(procurement.EventTypeInvoicePaid,
			procurement.AggregateTypeInvoice, invoiceID, "payment-gateway"),
	}
}

func TestKafkaEventForwarder_Handle(t *testing.T) {
	w := &fakeWriter{}
	f := NewKafkaEventForwarder(w, zap.NewNop())
	invoiceID := uuid.New()
	evt := invoicePaid(invoiceID)

	require.NoError(t, f.Handle(context.Background(), evt))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, invoiceID.String(), string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, procurement.EventTypeInvoicePaid, string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, evt.EventID().String(), body["event_id"])
	assert.Equal(t, procurement.EventTypeInvoicePaid, body["event_type"])
	assert.Equal(t, procurement.AggregateTypeInvoice, body["aggregate_type"])
	assert.Contains(t, body, "payload")

	assert.Nil(t, f.EventTypes())
	require.NoError(t, f.Close())
	assert.True(t, w.closed)
}

func TestKafkaEventForwarder_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	f := NewKafkaEventForwarder(w, zap.NewNop())

	err := f.Handle(context.Background(), invoicePaid(uuid.New()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Contains(t, err.Error(), procurement.EventTypeInvoicePaid)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(config.KafkaConfig{
		Brokers:      []string{"kafka-1:9092", "kafka-2:9092"},
		WriteTimeout: 5 * time.Second,
	})
	defer w.Close()

	assert.Equal(t, DefaultTopic, w.Topic)
	assert.NotNil(t, w.Addr)
	assert.Equal(t, 5*time.Second, w.WriteTimeout)
}
