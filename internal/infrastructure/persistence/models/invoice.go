package models

import (
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceModel is the persistence model for the Invoice aggregate.
// Items are a frozen JSON snapshot; payments live in invoice_payments.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber   string                `gorm:"type:varchar(30);not null;uniqueIndex:uq_invoices_invoice_number"`
	PurchaseOrderID uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:uq_invoices_purchase_order_id,where:status <> 'cancelled' AND status <> 'rejected'"`
	PONumber        string                `gorm:"column:po_number;type:varchar(30);not null"`
	VendorID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	VendorName      string                `gorm:"type:varchar(200)"`
	DepotID         uuid.UUID             `gorm:"type:uuid"`
	Items           datatypes.JSON        `gorm:"type:jsonb;not null;default:'[]'"`
	Payments        []InvoicePaymentModel `gorm:"foreignKey:InvoiceID;references:ID"`

	FinancialsModel
	Currency           string                    `gorm:"type:varchar(3);not null;default:'INR'"`
	PaymentTerms       string                    `gorm:"type:varchar(50);not null;default:'Net 30'"`
	InvoiceDate        time.Time                 `gorm:"not null"`
	DueDate            *time.Time                `gorm:"index"`
	Status             procurement.InvoiceStatus `gorm:"type:varchar(20);not null;default:'generated';index"`
	PaymentStatus      procurement.PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentDate        *time.Time
	ApprovedBy         string `gorm:"type:varchar(100)"`
	ApprovedAt         *time.Time
	RejectionReason    string `gorm:"type:text"`
	CancellationReason string `gorm:"type:text"`
	Notes              string `gorm:"type:text"`
	CreatedBy          string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *procurement.Invoice {
	inv := &procurement.Invoice{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		InvoiceNumber:      m.InvoiceNumber,
		PurchaseOrderID:    m.PurchaseOrderID,
		PONumber:           m.PONumber,
		VendorID:           m.VendorID,
		VendorName:         m.VendorName,
		DepotID:            m.DepotID,
		Items:              decodeJSON[[]procurement.InvoiceItem](m.Items),
		Financials:         m.FinancialsModel.toDomain(),
		Currency:           m.Currency,
		PaymentTerms:       m.PaymentTerms,
		InvoiceDate:        m.InvoiceDate,
		DueDate:            m.DueDate,
		Status:             m.Status,
		PaymentStatus:      m.PaymentStatus,
		Payments:           make([]procurement.Payment, len(m.Payments)),
		PaymentDate:        m.PaymentDate,
		ApprovedBy:         m.ApprovedBy,
		ApprovedAt:         m.ApprovedAt,
		RejectionReason:    m.RejectionReason,
		CancellationReason: m.CancellationReason,
		Notes:              m.Notes,
		CreatedBy:          m.CreatedBy,
	}
	for i := range m.Payments {
		inv.Payments[i] = m.Payments[i].ToDomain()
	}
	return inv
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *procurement.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber:      inv.InvoiceNumber,
		PurchaseOrderID:    inv.PurchaseOrderID,
		PONumber:           inv.PONumber,
		VendorID:           inv.VendorID,
		VendorName:         inv.VendorName,
		DepotID:            inv.DepotID,
		Items:              encodeJSON(inv.Items),
		Payments:           make([]InvoicePaymentModel, len(inv.Payments)),
		FinancialsModel:    financialsFromDomain(inv.Financials),
		Currency:           inv.Currency,
		PaymentTerms:       inv.PaymentTerms,
		InvoiceDate:        inv.InvoiceDate,
		DueDate:            inv.DueDate,
		Status:             inv.Status,
		PaymentStatus:      inv.PaymentStatus,
		PaymentDate:        inv.PaymentDate,
		ApprovedBy:         inv.ApprovedBy,
		ApprovedAt:         inv.ApprovedAt,
		RejectionReason:    inv.RejectionReason,
		CancellationReason: inv.CancellationReason,
		Notes:              inv.Notes,
		CreatedBy:          inv.CreatedBy,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	for i := range inv.Payments {
		m.Payments[i] = *InvoicePaymentModelFromDomain(inv.ID, inv.Payments[i])
	}
	return m
}

// InvoicePaymentModel is one payment ledger row. TransactionID is globally unique.
type InvoicePaymentModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	TransactionID string          `gorm:"type:varchar(100);not null;uniqueIndex:uq_invoice_payments_transaction_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method        string          `gorm:"type:varchar(50);not null"`
	PaidAt        time.Time       `gorm:"not null"`
	RecordedBy    string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (InvoicePaymentModel) TableName() string {
	return "invoice_payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *InvoicePaymentModel) ToDomain() procurement.Payment {
	return procurement.Payment{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		Method:        m.Method,
		PaidAt:        m.PaidAt,
		RecordedBy:    m.RecordedBy,
	}
}

// InvoicePaymentModelFromDomain creates a new persistence model from a domain Payment
func InvoicePaymentModelFromDomain(invoiceID uuid.UUID, p procurement.Payment) *InvoicePaymentModel {
	return &InvoicePaymentModel{
		ID:            p.ID,
		InvoiceID:     invoiceID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Method:        p.Method,
		PaidAt:        p.PaidAt,
		RecordedBy:    p.RecordedBy,
	}
}
