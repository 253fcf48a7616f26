package event

import (
	"github.com/erp/procurement/internal/domain/procurement"
)

// RegisterProcurementEvents registers every procurement event with the serializer.
// The outbox processor cannot relay an entry whose type is not registered.
func RegisterProcurementEvents(serializer *EventSerializer) {
	serializer.Register(procurement.EventTypePOCreated, &procurement.PurchaseOrderCreatedEvent{})
	serializer.Register(procurement.EventTypePOStatusChanged, &procurement.PurchaseOrderStatusChangedEvent{})
	serializer.Register(procurement.EventTypeInvoiceGenerated, &procurement.InvoiceGeneratedEvent{})
	serializer.Register(procurement.EventTypePaymentRecorded, &procurement.PaymentRecordedEvent{})
	serializer.Register(procurement.EventTypeInvoicePaid, &procurement.InvoicePaidEvent{})
	serializer.Register(procurement.EventTypeTrustScoreUpdated, &procurement.TrustScoreUpdatedEvent{})
}
