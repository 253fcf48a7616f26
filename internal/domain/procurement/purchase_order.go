package procurement

import (
	"slices"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus is the lifecycle status of a purchase order.
// The string values are persisted and read by dashboards; do not rename.
type PurchaseOrderStatus string

const (
	POStatusDraft              PurchaseOrderStatus = "draft"
	POStatusPendingApproval    PurchaseOrderStatus = "pending_approval"
	POStatusApproved           PurchaseOrderStatus = "approved"
	POStatusPending            PurchaseOrderStatus = "pending"
	POStatusAccepted           PurchaseOrderStatus = "accepted"
	POStatusInProgress         PurchaseOrderStatus = "in_progress"
	POStatusPartiallyDelivered PurchaseOrderStatus = "partially_delivered"
	POStatusDelivered          PurchaseOrderStatus = "delivered"
	POStatusCompleted          PurchaseOrderStatus = "completed"
	POStatusRejected           PurchaseOrderStatus = "rejected"
	POStatusCancelled          PurchaseOrderStatus = "cancelled"
)

// AllPurchaseOrderStatuses lists every status in forward-progress order followed by the side exits.
var AllPurchaseOrderStatuses = []PurchaseOrderStatus{
	POStatusDraft, POStatusPendingApproval, POStatusApproved, POStatusPending, POStatusAccepted,
	POStatusInProgress, POStatusPartiallyDelivered, POStatusDelivered, POStatusCompleted,
	POStatusRejected, POStatusCancelled,
}

// forwardTransitions holds the non-side-exit edges of the state machine.
// rejected and cancelled are added for every non-terminal state in CanTransitionTo.
var forwardTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	POStatusDraft:              {POStatusPendingApproval, POStatusPending},
	POStatusPendingApproval:    {POStatusApproved},
	POStatusApproved:           {POStatusPending, POStatusAccepted},
	POStatusPending:            {POStatusAccepted},
	POStatusAccepted:           {POStatusInProgress, POStatusPartiallyDelivered, POStatusDelivered},
	POStatusInProgress:         {POStatusPartiallyDelivered, POStatusDelivered},
	POStatusPartiallyDelivered: {POStatusDelivered},
	POStatusDelivered:          {POStatusCompleted},
}

// IsValid checks if the status is a known value
func (s PurchaseOrderStatus) IsValid() bool {
	return slices.Contains(AllPurchaseOrderStatuses, s)
}

// String returns the string representation
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further mutation is permitted.
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == POStatusCompleted || s == POStatusCancelled
}

// CanTransitionTo reports whether target is reachable in one step.
// pending_approval may skip straight to pending or accepted only when the
// order no longer requires approval.
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus, requiresApproval bool) bool {
	if s.IsTerminal() || s == target {
		return false
	}
	if s == POStatusRejected {
		return target == POStatusCancelled
	}
	if target == POStatusRejected || target == POStatusCancelled {
		return true
	}
	if s == POStatusPendingApproval && !requiresApproval &&
		(target == POStatusPending || target == POStatusAccepted) {
		return true
	}
	return slices.Contains(forwardTransitions[s], target)
}

// IsInvoiceable reports whether an invoice may be generated in this status.
func (s PurchaseOrderStatus) IsInvoiceable() bool {
	return s == POStatusAccepted || s == POStatusInProgress || s == POStatusDelivered
}

// Defaults applied when the requester leaves them blank.
const (
	DefaultCurrency     = "INR"
	DefaultPaymentTerms = "Net 30"
)

// DefaultApprovalThreshold is the order value above which approval is mandatory.
var DefaultApprovalThreshold = decimal.NewFromInt(50000)

// PurchaseOrderItem is one ordered line. TotalPrice is always Quantity × UnitPrice.
type PurchaseOrderItem struct {
	ID          uuid.UUID
	SparePartID uuid.UUID
	PartNumber  string
	PartName    string
	Unit        string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	// Specifications is an open attribute map whose keys depend on the spare-part
	// category (e.g. "voltage", "dimensions", "material"). Its schema is not enforced.
	Specifications map[string]any

	QuantityReceived int
	QuantityAccepted int
	QuantityRejected int
	ReceivedDate     *time.Time
}

// ItemInput carries the requester-supplied fields of a line.
type ItemInput struct {
	SparePartID    uuid.UUID
	PartNumber     string
	PartName       string
	Unit           string
	Quantity       int
	UnitPrice      decimal.Decimal
	Specifications map[string]any
}

// NewPurchaseOrderItem validates the input and derives TotalPrice.
func NewPurchaseOrderItem(in ItemInput) (PurchaseOrderItem, error) {
	if in.SparePartID == uuid.Nil {
		return PurchaseOrderItem{}, validationError("spare part reference is required")
	}
	if strings.TrimSpace(in.PartName) == "" {
		return PurchaseOrderItem{}, validationError("part name is required")
	}
	if in.Quantity < 1 {
		return PurchaseOrderItem{}, validationError("quantity for part %s must be at least 1", in.PartName)
	}
	if in.UnitPrice.IsNegative() {
		return PurchaseOrderItem{}, validationError("unit price for part %s must not be negative", in.PartName)
	}
	unit := in.Unit
	if unit == "" {
		unit = "pcs"
	}
	return PurchaseOrderItem{
		ID:             uuid.New(),
		SparePartID:    in.SparePartID,
		PartNumber:     in.PartNumber,
		PartName:       in.PartName,
		Unit:           unit,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		TotalPrice:     in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
		Specifications: in.Specifications,
	}, nil
}

// IsFullyResolved reports whether every ordered unit was accepted or rejected.
func (i PurchaseOrderItem) IsFullyResolved() bool {
	return i.QuantityAccepted+i.QuantityRejected == i.Quantity
}

// ApprovalLevel identifies who signed an approval record.
type ApprovalLevel string

const (
	ApprovalLevelDepotManager ApprovalLevel = "depot_manager"
	ApprovalLevelAdmin        ApprovalLevel = "admin"
	ApprovalLevelFinance      ApprovalLevel = "finance"
)

// IsValid checks if the approval level is a known value
func (l ApprovalLevel) IsValid() bool {
	return l == ApprovalLevelDepotManager || l == ApprovalLevelAdmin || l == ApprovalLevelFinance
}

// Approval is one append-only entry of the approval audit trail.
type Approval struct {
	Level      ApprovalLevel
	ApprovedBy string
	ApprovedAt time.Time
	Approved   bool
	Comments   string
}

// PurchaseOrder is the aggregate root of the procurement lifecycle.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	PONumber    string
	VendorID    uuid.UUID
	VendorName  string
	VendorEmail string
	DepotID     uuid.UUID
	DepotName   string
	RequestedBy string
	Items       []PurchaseOrderItem

	Financials
	Currency          string
	PaymentTerms      string
	Status            PurchaseOrderStatus
	RequiresApproval  bool
	ApprovalThreshold decimal.Decimal
	Approvals         []Approval

	// Sub-records stay nil until the corresponding event happens.
	VendorResponse *VendorResponse
	Delivery       *DeliveryStatus
	QualityCheck   *QualityCheck

	DeliveryAddress      string
	ExpectedDeliveryDate *time.Time
	ActualDeliveryDate   *time.Time
	SubmittedDate        *time.Time
	AcceptedDate         *time.Time
	RejectedDate         *time.Time
	CancelledDate        *time.Time
	RejectionReason      string
	CancellationReason   string

	InvoiceID     *uuid.UUID
	InvoiceNumber string
	PaymentStatus PaymentStatus

	Notes         string
	InternalNotes string
	VendorNotes   string
	Tags          []string
	CreatedBy     string
	UpdatedBy     string
}

// NewPurchaseOrderInput groups the requester-supplied fields of a new order.
type NewPurchaseOrderInput struct {
	VendorID             uuid.UUID
	VendorName           string
	VendorEmail          string
	DepotID              uuid.UUID
	DepotName            string
	RequestedBy          string
	Items                []ItemInput
	Tax                  Tax
	ShippingCharges      decimal.Decimal
	Discount             decimal.Decimal
	ApprovalThreshold    *decimal.Decimal
	RequiresApproval     bool
	Currency             string
	PaymentTerms         string
	DeliveryAddress      string
	ExpectedDeliveryDate *time.Time
	Notes                string
	InternalNotes        string
	Tags                 []string
}

// NewPurchaseOrder creates a draft order with its totals computed.
// The number is assigned separately by the numbering authority.
func NewPurchaseOrder(in NewPurchaseOrderInput) (*PurchaseOrder, error) {
	if in.VendorID == uuid.Nil {
		return nil, validationError("vendor reference is required")
	}
	if in.DepotID == uuid.Nil && strings.TrimSpace(in.RequestedBy) == "" {
		return nil, validationError("depot or requester reference is required")
	}
	if len(in.Items) == 0 {
		return nil, validationError("purchase order must have at least one item")
	}
	threshold := DefaultApprovalThreshold
	if in.ApprovalThreshold != nil {
		if in.ApprovalThreshold.IsNegative() {
			return nil, validationError("approval threshold must not be negative")
		}
		threshold = *in.ApprovalThreshold
	}

	po := &PurchaseOrder{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		VendorID:             in.VendorID,
		VendorName:           in.VendorName,
		VendorEmail:          in.VendorEmail,
		DepotID:              in.DepotID,
		DepotName:            in.DepotName,
		RequestedBy:          in.RequestedBy,
		Currency:             valueOr(in.Currency, DefaultCurrency),
		PaymentTerms:         valueOr(in.PaymentTerms, DefaultPaymentTerms),
		Status:               POStatusDraft,
		ApprovalThreshold:    threshold,
		RequiresApproval:     in.RequiresApproval,
		Approvals:            make([]Approval, 0),
		DeliveryAddress:      in.DeliveryAddress,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		PaymentStatus:        PaymentStatusPending,
		Notes:                in.Notes,
		InternalNotes:        in.InternalNotes,
		Tags:                 in.Tags,
		CreatedBy:            in.RequestedBy,
		UpdatedBy:            in.RequestedBy,
	}
	po.Tax = in.Tax
	po.ShippingCharges = in.ShippingCharges
	po.Discount = in.Discount
	if err := po.replaceItems(in.Items); err != nil {
		return nil, err
	}
	return po, nil
}

// AssignNumber sets the human-readable number and raises the creation event.
// The number is immutable once set.
func (o *PurchaseOrder) AssignNumber(number string) error {
	if strings.TrimSpace(number) == "" {
		return validationError("purchase order number is required")
	}
	if o.PONumber != "" {
		return shared.NewDomainError(shared.CodeImmutableRecord, "Purchase order number is already assigned")
	}
	o.PONumber = number
	o.AddDomainEvent(NewPurchaseOrderCreatedEvent(o))
	return nil
}

// UpdateItems replaces the line items and recomputes the totals. Only drafts are editable.
func (o *PurchaseOrder) UpdateItems(items []ItemInput, tax Tax, shipping, discount decimal.Decimal, actor string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if o.Status != POStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Items can only be changed while the purchase order is in draft status, current status is "+o.Status.String())
	}
	if len(items) == 0 {
		return validationError("purchase order must have at least one item")
	}
	prev := o.Financials
	o.Tax, o.ShippingCharges, o.Discount = tax, shipping, discount
	if err := o.replaceItems(items); err != nil {
		o.Financials = prev
		return err
	}
	o.touch(actor)
	return nil
}

// Submit sends a draft for approval or straight to the vendor. Orders above the
// threshold always need approval; cheaper ones only when the requester asked for it.
func (o *PurchaseOrder) Submit(actor string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if o.Status != POStatusDraft {
		return invalidTransition("purchase order", o.Status, POStatusPending)
	}
	if o.TotalAmount.GreaterThan(o.ApprovalThreshold) {
		o.RequiresApproval = true
	}
	now := time.Now()
	o.SubmittedDate = &now
	if o.RequiresApproval {
		return o.transitionTo(POStatusPendingApproval, actor, "")
	}
	return o.transitionTo(POStatusPending, actor, "")
}

// Approve records an approval and moves the order to approved.
func (o *PurchaseOrder) Approve(level ApprovalLevel, approver, comments string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if !level.IsValid() {
		return validationError("invalid approval level: %s", level)
	}
	if strings.TrimSpace(approver) == "" {
		return validationError("approver is required")
	}
	if o.Status != POStatusPendingApproval {
		return invalidTransition("purchase order", o.Status, POStatusApproved)
	}
	o.Approvals = append(o.Approvals, Approval{
		Level: level, ApprovedBy: approver, ApprovedAt: time.Now(), Approved: true, Comments: comments,
	})
	return o.transitionTo(POStatusApproved, approver, comments)
}

// RejectApproval records a rejection by an approver. A reason is mandatory.
func (o *PurchaseOrder) RejectApproval(level ApprovalLevel, approver, reason string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if !level.IsValid() {
		return validationError("invalid approval level: %s", level)
	}
	if strings.TrimSpace(reason) == "" {
		return validationError("rejection reason is required")
	}
	if o.Status != POStatusPendingApproval {
		return invalidTransition("purchase order", o.Status, POStatusRejected)
	}
	now := time.Now()
	o.Approvals = append(o.Approvals, Approval{
		Level: level, ApprovedBy: approver, ApprovedAt: now, Approved: false, Comments: reason,
	})
	o.RejectedDate = &now
	o.RejectionReason = reason
	return o.transitionTo(POStatusRejected, approver, reason)
}

// SendToVendor releases an approved order to the vendor.
func (o *PurchaseOrder) SendToVendor(actor string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if o.Status != POStatusApproved {
		return invalidTransition("purchase order", o.Status, POStatusPending)
	}
	return o.transitionTo(POStatusPending, actor, "")
}

// Complete closes a delivered order. The linked invoice must be fully paid.
func (o *PurchaseOrder) Complete(invoicePaymentStatus PaymentStatus, actor string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if o.Status != POStatusDelivered {
		return invalidTransition("purchase order", o.Status, POStatusCompleted)
	}
	if invoicePaymentStatus != PaymentStatusPaid {
		return shared.NewDomainError(CodePaymentPending,
			"Purchase order cannot be completed until its invoice is paid, payment status is "+string(invoicePaymentStatus))
	}
	o.PaymentStatus = PaymentStatusPaid
	return o.transitionTo(POStatusCompleted, actor, "")
}

// Cancel moves any non-terminal order to cancelled. Rejected orders may still
// be cancelled to close them out.
func (o *PurchaseOrder) Cancel(actor, reason string) error {
	if o.Status.IsTerminal() {
		return immutableRecord("Purchase order", o.Status)
	}
	now := time.Now()
	o.CancelledDate = &now
	o.CancellationReason = reason
	return o.transitionTo(POStatusCancelled, actor, reason)
}

// LinkInvoice records the invoice that now bills this order.
func (o *PurchaseOrder) LinkInvoice(inv *Invoice) {
	id := inv.ID
	o.InvoiceID = &id
	o.InvoiceNumber = inv.InvoiceNumber
	o.PaymentStatus = inv.PaymentStatus
	o.Financials = o.Financials.WithPaid(inv.PaidAmount)
}

// SyncPayment mirrors the linked invoice's payment position onto the order.
func (o *PurchaseOrder) SyncPayment(inv *Invoice) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if o.InvoiceID == nil || *o.InvoiceID != inv.ID {
		return nil
	}
	paid := inv.PaidAmount
	if paid.GreaterThan(o.TotalAmount) {
		paid = o.TotalAmount
	}
	o.Financials = o.Financials.WithPaid(paid)
	o.PaymentStatus = inv.PaymentStatus
	o.UpdatedAt = time.Now()
	return nil
}

// IsDeliveredOrCompleted reports whether the order counts towards trust scoring.
func (o *PurchaseOrder) IsDeliveredOrCompleted() bool {
	return o.Status == POStatusDelivered || o.Status == POStatusCompleted
}

// DeliveryRecord projects the order onto the trust-scoring input.
func (o *PurchaseOrder) DeliveryRecord() DeliveryRecord {
	return DeliveryRecord{
		OrderID:      o.ID,
		ExpectedDate: o.ExpectedDeliveryDate,
		ActualDate:   o.ActualDeliveryDate,
	}
}

// ensureMutable refuses changes to terminal and rejected orders.
func (o *PurchaseOrder) ensureMutable() error {
	if o.Status.IsTerminal() || o.Status == POStatusRejected {
		return immutableRecord("Purchase order", o.Status)
	}
	return nil
}

func (o *PurchaseOrder) transitionTo(target PurchaseOrderStatus, actor, reason string) error {
	if !o.Status.CanTransitionTo(target, o.RequiresApproval) {
		return invalidTransition("purchase order", o.Status, target)
	}
	from := o.Status
	o.Status = target
	o.touch(actor)
	o.AddDomainEvent(NewPurchaseOrderStatusChangedEvent(o, from, target, actor, reason))
	return nil
}

func (o *PurchaseOrder) touch(actor string) {
	o.UpdatedAt = time.Now()
	if actor != "" {
		o.UpdatedBy = actor
	}
}

func (o *PurchaseOrder) replaceItems(inputs []ItemInput) error {
	items := make([]PurchaseOrderItem, 0, len(inputs))
	totals := make([]decimal.Decimal, 0, len(inputs))
	for _, in := range inputs {
		item, err := NewPurchaseOrderItem(in)
		if err != nil {
			return err
		}
		items = append(items, item)
		totals = append(totals, item.TotalPrice)
	}
	fin, err := CalculateFinancials(totals, o.Tax, o.ShippingCharges, o.Discount, o.PaidAmount)
	if err != nil {
		return err
	}
	o.Items = items
	o.Financials = fin
	return nil
}

// RecalculateTotals re-derives the money block from the current items.
func (o *PurchaseOrder) RecalculateTotals() error {
	totals := make([]decimal.Decimal, 0, len(o.Items))
	for i := range o.Items {
		o.Items[i].TotalPrice = o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
		totals = append(totals, o.Items[i].TotalPrice)
	}
	fin, err := CalculateFinancials(totals, o.Tax, o.ShippingCharges, o.Discount, o.PaidAmount)
	if err != nil {
		return err
	}
	o.Financials = fin
	return nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
