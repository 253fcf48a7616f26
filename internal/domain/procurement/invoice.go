package procurement

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the administrative status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusGenerated InvoiceStatus = "generated"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusApproved  InvoiceStatus = "approved"
	InvoiceStatusRejected  InvoiceStatus = "rejected"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known value
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusGenerated, InvoiceStatusSent, InvoiceStatusApproved,
		InvoiceStatusRejected, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// acceptsPayment reports whether payments may still be recorded.
func (s InvoiceStatus) acceptsPayment() bool {
	return s == InvoiceStatusGenerated || s == InvoiceStatusSent || s == InvoiceStatusApproved || s == InvoiceStatusPaid
}

// PaymentStatus is derived from the money block and the due date; never set directly.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// IsValid checks if the payment status is a known value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusOverdue:
		return true
	}
	return false
}

// DerivePaymentStatus applies the rules in strict priority order; the first
// match wins, so a fully paid invoice past its due date is still paid.
func DerivePaymentStatus(total, paid, due decimal.Decimal, dueDate *time.Time, now time.Time) PaymentStatus {
	switch {
	case !due.IsPositive() && total.IsPositive():
		return PaymentStatusPaid
	case paid.IsPositive() && due.IsPositive():
		return PaymentStatusPartial
	case dueDate != nil && now.After(*dueDate) && due.IsPositive():
		return PaymentStatusOverdue
	default:
		return PaymentStatusPending
	}
}

var netTermsPattern = regexp.MustCompile(`(?i)^\s*net\s*(\d+)\s*$`)

// DefaultPaymentTermDays applies when the terms cannot be parsed.
const DefaultPaymentTermDays = 30

// PaymentTermDays parses "Net N" style terms. "Due on receipt" and "Immediate" mean zero days.
func PaymentTermDays(terms string) int {
	t := strings.ToLower(strings.TrimSpace(terms))
	if t == "due on receipt" || t == "immediate" {
		return 0
	}
	if m := netTermsPattern.FindStringSubmatch(terms); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return DefaultPaymentTermDays
}

// InvoiceItem is a frozen copy of an order line at invoicing time.
type InvoiceItem struct {
	SparePartID uuid.UUID       `json:"spare_part_id"`
	PartNumber  string          `json:"part_number"`
	PartName    string          `json:"part_name"`
	Unit        string          `json:"unit"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Payment is one ledger entry. TransactionID is unique across all invoices.
type Payment struct {
	ID            uuid.UUID
	TransactionID string
	Amount        decimal.Decimal
	Method        string
	PaidAt        time.Time
	RecordedBy    string
}

// Invoice bills exactly one purchase order. Its money block is a snapshot taken at
// generation and is never recomputed from the live order.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string
	PurchaseOrderID uuid.UUID
	PONumber        string
	VendorID        uuid.UUID
	VendorName      string
	DepotID         uuid.UUID
	Items           []InvoiceItem

	Financials
	Currency      string
	PaymentTerms  string
	InvoiceDate   time.Time
	DueDate       *time.Time
	Status        InvoiceStatus
	PaymentStatus PaymentStatus
	Payments      []Payment
	PaymentDate   *time.Time

	ApprovedBy         string
	ApprovedAt         *time.Time
	RejectionReason    string
	CancellationReason string
	Notes              string
	CreatedBy          string
}

// GenerateInvoice snapshots an invoiceable purchase order into a new invoice.
func GenerateInvoice(po *PurchaseOrder, invoiceNumber string, invoiceDate time.Time, actor string) (*Invoice, error) {
	if po == nil {
		return nil, validationError("purchase order is required")
	}
	if strings.TrimSpace(invoiceNumber) == "" {
		return nil, validationError("invoice number is required")
	}
	if !po.Status.IsInvoiceable() {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition,
			"Invoice cannot be generated for a purchase order in "+po.Status.String()+" status")
	}
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}

	items := make([]InvoiceItem, len(po.Items))
	for i, it := range po.Items {
		items[i] = InvoiceItem{
			SparePartID: it.SparePartID,
			PartNumber:  it.PartNumber,
			PartName:    it.PartName,
			Unit:        it.Unit,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		}
	}
	dueDate := invoiceDate.AddDate(0, 0, PaymentTermDays(po.PaymentTerms))

	snapshot := po.Financials
	snapshot.PaidAmount = decimal.Zero
	snapshot.DueAmount = snapshot.TotalAmount

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		PurchaseOrderID:   po.ID,
		PONumber:          po.PONumber,
		VendorID:          po.VendorID,
		VendorName:        po.VendorName,
		DepotID:           po.DepotID,
		Items:             items,
		Financials:        snapshot,
		Currency:          po.Currency,
		PaymentTerms:      po.PaymentTerms,
		InvoiceDate:       invoiceDate,
		DueDate:           &dueDate,
		Status:            InvoiceStatusGenerated,
		PaymentStatus:     PaymentStatusPending,
		Payments:          make([]Payment, 0),
		CreatedBy:         actor,
	}
	inv.AddDomainEvent(NewInvoiceGeneratedEvent(inv))
	return inv, nil
}

// PaymentInput carries a gateway-verified payment.
type PaymentInput struct {
	Amount        decimal.Decimal
	PaymentDate   time.Time
	Method        string
	TransactionID string
}

// HasTransaction reports whether the transaction id is already in the ledger.
func (inv *Invoice) HasTransaction(transactionID string) bool {
	for _, p := range inv.Payments {
		if p.TransactionID == transactionID {
			return true
		}
	}
	return false
}

// RecordPayment appends a payment to the ledger. A transaction id that is already
// recorded is a no-op and returns applied=false. Overpayment is rejected, never clamped.
func (inv *Invoice) RecordPayment(in PaymentInput, actor string, now time.Time) (applied bool, err error) {
	if strings.TrimSpace(in.TransactionID) == "" {
		return false, validationError("transaction id is required")
	}
	if inv.HasTransaction(in.TransactionID) {
		return false, nil
	}
	if inv.Status == InvoiceStatusCancelled {
		return false, immutableRecord("Invoice", inv.Status)
	}
	if !inv.Status.acceptsPayment() {
		return false, shared.NewDomainError(shared.CodeInvalidTransition,
			"Payments cannot be recorded for an invoice in "+inv.Status.String()+" status")
	}
	if !in.Amount.IsPositive() {
		return false, validationError("payment amount must be positive")
	}
	if strings.TrimSpace(in.Method) == "" {
		return false, validationError("payment method is required")
	}
	newPaid := inv.PaidAmount.Add(in.Amount)
	if newPaid.GreaterThan(inv.TotalAmount) {
		return false, shared.NewDomainError(CodeOverpaymentRejected,
			"Payment of "+in.Amount.String()+" exceeds the outstanding amount "+inv.DueAmount.String())
	}
	paidAt := in.PaymentDate
	if paidAt.IsZero() {
		paidAt = now
	}

	payment := Payment{
		ID:            uuid.New(),
		TransactionID: in.TransactionID,
		Amount:        in.Amount,
		Method:        in.Method,
		PaidAt:        paidAt,
		RecordedBy:    actor,
	}
	inv.Payments = append(inv.Payments, payment)
	inv.Financials = inv.Financials.WithPaid(newPaid)
	inv.PaymentDate = &paidAt
	inv.UpdatedAt = now

	wasPaid := inv.PaymentStatus == PaymentStatusPaid
	inv.RefreshPaymentStatus(now)
	inv.AddDomainEvent(NewPaymentRecordedEvent(inv, payment))
	if inv.PaymentStatus == PaymentStatusPaid && !wasPaid {
		inv.Status = InvoiceStatusPaid
		inv.AddDomainEvent(NewInvoicePaidEvent(inv, actor))
	}
	return true, nil
}

// RefreshPaymentStatus re-derives the payment status against now.
// Reads call it so an unpaid invoice past its due date surfaces as overdue.
// Void invoices keep the status they had when they stopped billing.
func (inv *Invoice) RefreshPaymentStatus(now time.Time) {
	if inv.IsVoid() {
		return
	}
	inv.PaymentStatus = DerivePaymentStatus(inv.TotalAmount, inv.PaidAmount, inv.DueAmount, inv.DueDate, now)
}

// IsVoid reports whether the invoice no longer bills its order.
func (inv *Invoice) IsVoid() bool {
	return inv.Status == InvoiceStatusCancelled || inv.Status == InvoiceStatusRejected
}

// BillingInvoice picks the invoice currently billing an order from all the
// invoices raised against it. Returns nil when every one of them is void.
func BillingInvoice(invoices []Invoice) *Invoice {
	for i := range invoices {
		if !invoices[i].IsVoid() {
			return &invoices[i]
		}
	}
	return nil
}

// MarkSent records that the invoice was sent to the payer.
func (inv *Invoice) MarkSent() error {
	if inv.Status != InvoiceStatusGenerated {
		return invalidTransition("invoice", inv.Status, InvoiceStatusSent)
	}
	inv.Status = InvoiceStatusSent
	inv.UpdatedAt = time.Now()
	return nil
}

// Approve signs the invoice off for payment release.
func (inv *Invoice) Approve(approver string) error {
	if strings.TrimSpace(approver) == "" {
		return validationError("approver is required")
	}
	if inv.Status != InvoiceStatusGenerated && inv.Status != InvoiceStatusSent {
		return invalidTransition("invoice", inv.Status, InvoiceStatusApproved)
	}
	now := time.Now()
	inv.Status = InvoiceStatusApproved
	inv.ApprovedBy = approver
	inv.ApprovedAt = &now
	inv.UpdatedAt = now
	return nil
}

// Reject refuses the invoice. A reason is mandatory.
func (inv *Invoice) Reject(approver, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return validationError("rejection reason is required")
	}
	if inv.Status != InvoiceStatusGenerated && inv.Status != InvoiceStatusSent {
		return invalidTransition("invoice", inv.Status, InvoiceStatusRejected)
	}
	if inv.PaidAmount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidTransition, "Invoice with recorded payments cannot be rejected")
	}
	inv.Status = InvoiceStatusRejected
	inv.ApprovedBy = approver
	inv.RejectionReason = reason
	inv.UpdatedAt = time.Now()
	return nil
}

// Cancel voids an invoice that has not received any payment. Invoices are never deleted.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status == InvoiceStatusCancelled || inv.Status == InvoiceStatusPaid {
		return immutableRecord("Invoice", inv.Status)
	}
	if inv.PaidAmount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidTransition, "Invoice with recorded payments cannot be cancelled")
	}
	inv.Status = InvoiceStatusCancelled
	inv.CancellationReason = reason
	inv.UpdatedAt = time.Now()
	return nil
}

// PaymentStage is the label the vendor payments view shows for an invoice.
func (inv *Invoice) PaymentStage() string {
	switch {
	case inv.Status == InvoiceStatusPaid:
		return "Paid"
	case inv.Status == InvoiceStatusApproved:
		return "Payment Scheduled"
	case inv.PaymentStatus == PaymentStatusPartial:
		return "Partially Paid"
	default:
		return "Pending"
	}
}
