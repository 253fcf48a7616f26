package procurement

import (
	"context"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderFilter narrows purchase order queries.
type PurchaseOrderFilter struct {
	shared.Filter
	VendorID *uuid.UUID
	DepotID  *uuid.UUID
	Statuses []PurchaseOrderStatus
	From     *time.Time
	To       *time.Time
	// ExpectedBefore selects orders whose expected delivery date has passed.
	ExpectedBefore *time.Time
}

// StatusSummary aggregates orders sharing one status.
type StatusSummary struct {
	Status PurchaseOrderStatus
	Count  int64
	Amount decimal.Decimal
}

// DailySummary aggregates orders created on one calendar day.
type DailySummary struct {
	Day    time.Time
	Count  int64
	Amount decimal.Decimal
}

// PurchaseOrderRepository persists purchase orders.
// Writes persist pending domain events to the outbox in the same transaction.
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	FindByPONumber(ctx context.Context, number string) (*PurchaseOrder, error)
	FindAll(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, int64, error)
	// FindDeliveredByVendor returns the vendor's delivered and completed orders.
	FindDeliveredByVendor(ctx context.Context, vendorID uuid.UUID) ([]PurchaseOrder, error)
	// Create inserts a new order. A number collision yields ErrNumberingConflict.
	Create(ctx context.Context, order *PurchaseOrder) error
	// SaveWithLock updates the order if its version is unchanged and bumps the version.
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error
	SummarizeByStatus(ctx context.Context, vendorID uuid.UUID) ([]StatusSummary, error)
	SummarizeByDay(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]DailySummary, error)
	CountFailedQualityChecks(ctx context.Context, vendorID uuid.UUID) (int64, error)
	CountOpenCounterOffers(ctx context.Context, vendorID uuid.UUID) (int64, error)
}

// InvoiceFilter narrows invoice queries.
type InvoiceFilter struct {
	shared.Filter
	VendorID        *uuid.UUID
	PurchaseOrderID *uuid.UUID
	Statuses        []InvoiceStatus
	PaymentStatuses []PaymentStatus
	From            *time.Time
	To              *time.Time
	// OverdueAt selects unpaid invoices whose due date is before the given time.
	OverdueAt *time.Time
}

// InvoiceSummary aggregates invoices sharing one status.
type InvoiceSummary struct {
	Status      InvoiceStatus
	Count       int64
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	DueAmount   decimal.Decimal
}

// InvoiceRepository persists invoices and their payment ledger.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByInvoiceNumber(ctx context.Context, number string) (*Invoice, error)
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, int64, error)
	// Create inserts a new invoice. A number collision yields ErrNumberingConflict.
	Create(ctx context.Context, invoice *Invoice) error
	// SaveWithLock updates the invoice under optimistic locking and inserts new ledger
	// entries. A transaction id already stored yields ErrDuplicatePayment.
	SaveWithLock(ctx context.Context, invoice *Invoice) error
	SummarizeByStatus(ctx context.Context, vendorID uuid.UUID) ([]InvoiceSummary, error)
}

// VendorRepository reads vendors and writes their trust score.
type VendorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Vendor, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Vendor, int64, error)
	Create(ctx context.Context, vendor *Vendor) error
	// SaveTrustScore persists the trust score under optimistic locking.
	SaveTrustScore(ctx context.Context, vendor *Vendor) error
}
