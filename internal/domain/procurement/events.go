package procurement

import (
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypePurchaseOrder = "PurchaseOrder"
	AggregateTypeInvoice       = "Invoice"
	AggregateTypeVendor        = "Vendor"
)

// Event type constants. These are the names notification subscribers match on.
const (
	EventTypePOCreated         = "PO_CREATED"
	EventTypePOStatusChanged   = "PO_STATUS_CHANGED"
	EventTypeInvoiceGenerated  = "INVOICE_GENERATED"
	EventTypePaymentRecorded   = "PAYMENT_RECORDED"
	EventTypeInvoicePaid       = "INVOICE_PAID"
	EventTypeTrustScoreUpdated = "TRUST_SCORE_UPDATED"
)

// PurchaseOrderCreatedEvent is raised when a numbered order is first persisted
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	PONumber    string          `json:"po_number"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	DepotID     uuid.UUID       `json:"depot_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewPurchaseOrderCreatedEvent creates a new PurchaseOrderCreatedEvent
func NewPurchaseOrderCreatedEvent(order *PurchaseOrder) *PurchaseOrderCreatedEvent {
	return &PurchaseOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePOCreated, AggregateTypePurchaseOrder, order.ID, order.CreatedBy),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		VendorID:        order.VendorID,
		DepotID:         order.DepotID,
		TotalAmount:     order.TotalAmount,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderCreatedEvent) EventType() string {
	return EventTypePOCreated
}

// PurchaseOrderStatusChangedEvent is raised on every status transition
type PurchaseOrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID           `json:"order_id"`
	PONumber   string              `json:"po_number"`
	VendorID   uuid.UUID           `json:"vendor_id"`
	FromStatus PurchaseOrderStatus `json:"from_status"`
	ToStatus   PurchaseOrderStatus `json:"to_status"`
	Reason     string              `json:"reason,omitempty"`
}

// NewPurchaseOrderStatusChangedEvent creates a new PurchaseOrderStatusChangedEvent
func NewPurchaseOrderStatusChangedEvent(order *PurchaseOrder, from, to PurchaseOrderStatus, actor, reason string) *PurchaseOrderStatusChangedEvent {
	return &PurchaseOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePOStatusChanged, AggregateTypePurchaseOrder, order.ID, actor),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		VendorID:        order.VendorID,
		FromStatus:      from,
		ToStatus:        to,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderStatusChangedEvent) EventType() string {
	return EventTypePOStatusChanged
}

// InvoiceGeneratedEvent is raised when an invoice is issued for an order
type InvoiceGeneratedEvent struct {
	shared.BaseDomainEvent
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	PONumber        string          `json:"po_number"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// NewInvoiceGeneratedEvent creates a new InvoiceGeneratedEvent
func NewInvoiceGeneratedEvent(inv *Invoice) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceGenerated, AggregateTypeInvoice, inv.ID, inv.CreatedBy),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PurchaseOrderID: inv.PurchaseOrderID,
		PONumber:        inv.PONumber,
		VendorID:        inv.VendorID,
		TotalAmount:     inv.TotalAmount,
	}
}

// EventType returns the event type name
func (e *InvoiceGeneratedEvent) EventType() string {
	return EventTypeInvoiceGenerated
}

// PaymentRecordedEvent is raised for every accepted payment
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	TransactionID   string          `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	DueAmount       decimal.Decimal `json:"due_amount"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(inv *Invoice, p Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeInvoice, inv.ID, p.RecordedBy),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PurchaseOrderID: inv.PurchaseOrderID,
		VendorID:        inv.VendorID,
		TransactionID:   p.TransactionID,
		Amount:          p.Amount,
		Method:          p.Method,
		PaidAmount:      inv.PaidAmount,
		DueAmount:       inv.DueAmount,
		PaymentStatus:   inv.PaymentStatus,
	}
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// InvoicePaidEvent is raised once when an invoice becomes fully paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, actor string) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID, actor),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PurchaseOrderID: inv.PurchaseOrderID,
		VendorID:        inv.VendorID,
		TotalAmount:     inv.TotalAmount,
	}
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return EventTypeInvoicePaid
}

// TrustScoreUpdatedEvent is raised when a recomputation changes a vendor's score
type TrustScoreUpdatedEvent struct {
	shared.BaseDomainEvent
	VendorID      uuid.UUID           `json:"vendor_id"`
	OldTrustScore int                 `json:"old_trust_score"`
	NewTrustScore int                 `json:"new_trust_score"`
	Breakdown     TrustScoreBreakdown `json:"breakdown"`
}

// NewTrustScoreUpdatedEvent creates a new TrustScoreUpdatedEvent
func NewTrustScoreUpdatedEvent(v *Vendor, oldScore int, breakdown TrustScoreBreakdown, actor string) *TrustScoreUpdatedEvent {
	return &TrustScoreUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTrustScoreUpdated, AggregateTypeVendor, v.ID, actor),
		VendorID:        v.ID,
		OldTrustScore:   oldScore,
		NewTrustScore:   v.TrustScore,
		Breakdown:       breakdown,
	}
}

// EventType returns the event type name
func (e *TrustScoreUpdatedEvent) EventType() string {
	return EventTypeTrustScoreUpdated
}
