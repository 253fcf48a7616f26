package procurement

import (
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorResponseStatus is the vendor's answer to a purchase order.
type VendorResponseStatus string

const (
	VendorResponseAccepted     VendorResponseStatus = "accepted"
	VendorResponseRejected     VendorResponseStatus = "rejected"
	VendorResponseCounterOffer VendorResponseStatus = "counter_offer"
)

// IsValid checks if the response status is a known value
func (s VendorResponseStatus) IsValid() bool {
	return s == VendorResponseAccepted || s == VendorResponseRejected || s == VendorResponseCounterOffer
}

// CounterOfferItem is a vendor's proposed change to one line. It is a proposal only.
type CounterOfferItem struct {
	ItemID            uuid.UUID       `json:"item_id"`
	ProposedQuantity  int             `json:"proposed_quantity"`
	ProposedUnitPrice decimal.Decimal `json:"proposed_unit_price"`
	Comments          string          `json:"comments,omitempty"`
}

// VendorResponse is populated once the vendor answers.
type VendorResponse struct {
	Status       VendorResponseStatus
	Message      string
	RespondedAt  time.Time
	RespondedBy  string
	CounterOffer []CounterOfferItem
}

// VendorResponseInput carries a vendor's answer.
type VendorResponseInput struct {
	Status               VendorResponseStatus
	Message              string
	CounterOffer         []CounterOfferItem
	ExpectedDeliveryDate *time.Time
}

// RecordVendorResponse applies the vendor's answer. A counter-offer is stored
// for the requester to review and leaves items, totals and status untouched.
func (o *PurchaseOrder) RecordVendorResponse(in VendorResponseInput, actor string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if !in.Status.IsValid() {
		return validationError("invalid vendor response status: %s", in.Status)
	}
	awaitingVendor := o.Status == POStatusPending || o.Status == POStatusApproved ||
		(o.Status == POStatusPendingApproval && !o.RequiresApproval)
	if !awaitingVendor {
		return invalidTransition("purchase order", o.Status, responseTarget(in.Status))
	}

	now := time.Now()
	resp := &VendorResponse{
		Status:      in.Status,
		Message:     in.Message,
		RespondedAt: now,
		RespondedBy: actor,
	}

	switch in.Status {
	case VendorResponseCounterOffer:
		if len(in.CounterOffer) == 0 {
			return validationError("counter offer must propose at least one item change")
		}
		for _, co := range in.CounterOffer {
			if o.findItem(co.ItemID) < 0 {
				return validationError("counter offer references unknown item %s", co.ItemID)
			}
			if co.ProposedQuantity < 1 || co.ProposedUnitPrice.IsNegative() {
				return validationError("counter offer for item %s has invalid quantity or price", co.ItemID)
			}
		}
		resp.CounterOffer = in.CounterOffer
		o.VendorResponse = resp
		o.touch(actor)
		return nil

	case VendorResponseRejected:
		if strings.TrimSpace(in.Message) == "" {
			return validationError("rejection reason is required")
		}
		if err := o.transitionTo(POStatusRejected, actor, in.Message); err != nil {
			return err
		}
		o.RejectedDate = &now
		o.RejectionReason = in.Message

	default:
		if err := o.transitionTo(POStatusAccepted, actor, in.Message); err != nil {
			return err
		}
		o.AcceptedDate = &now
		if in.ExpectedDeliveryDate != nil {
			o.ExpectedDeliveryDate = in.ExpectedDeliveryDate
		}
	}
	o.VendorResponse = resp
	o.VendorNotes = in.Message
	return nil
}

// HasOpenCounterOffer reports whether a counter-offer awaits the requester.
func (o *PurchaseOrder) HasOpenCounterOffer() bool {
	return o.VendorResponse != nil && o.VendorResponse.Status == VendorResponseCounterOffer && !o.Status.IsTerminal()
}

// ApplyCounterOffer is deliberately unavailable: accepting a counter-offer
// must go through an explicit item revision by the requester.
func (o *PurchaseOrder) ApplyCounterOffer() error {
	return ErrCounterOfferNotImplemented
}

func responseTarget(s VendorResponseStatus) PurchaseOrderStatus {
	if s == VendorResponseRejected {
		return POStatusRejected
	}
	return POStatusAccepted
}

// ShipmentStatus is the logistics sub-status of a delivery.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentPartial   ShipmentStatus = "partial"
	ShipmentReturned  ShipmentStatus = "returned"
)

// IsValid checks if the shipment status is a known value
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentPending, ShipmentInTransit, ShipmentDelivered, ShipmentPartial, ShipmentReturned:
		return true
	}
	return false
}

// DeliveryStatus is populated on the first shipment or delivery event.
type DeliveryStatus struct {
	Status         ShipmentStatus
	TrackingNumber string
	ShippingMethod string
	ReceivedBy     string
	DeliveredAt    *time.Time
	UpdatedAt      time.Time
	Notes          string
}

// ShipmentInput carries a vendor's logistics update.
type ShipmentInput struct {
	Status         ShipmentStatus
	TrackingNumber string
	ShippingMethod string
	Notes          string
}

// UpdateShipment records tracking details. in_transit moves an accepted order to in_progress.
func (o *PurchaseOrder) UpdateShipment(in ShipmentInput, actor string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if in.Status != ShipmentPending && in.Status != ShipmentInTransit && in.Status != ShipmentReturned {
		return validationError("shipment status must be pending, in_transit or returned; record receipts as deliveries")
	}
	if o.Status != POStatusAccepted && o.Status != POStatusInProgress {
		return invalidTransition("purchase order", o.Status, POStatusInProgress)
	}
	if in.Status == ShipmentInTransit && o.Status == POStatusAccepted {
		if err := o.transitionTo(POStatusInProgress, actor, ""); err != nil {
			return err
		}
	}
	d := o.ensureDelivery()
	d.Status = in.Status
	if in.TrackingNumber != "" {
		d.TrackingNumber = in.TrackingNumber
	}
	if in.ShippingMethod != "" {
		d.ShippingMethod = in.ShippingMethod
	}
	if in.Notes != "" {
		d.Notes = in.Notes
	}
	o.touch(actor)
	return nil
}

// DeliveryLine is the receipt of one item in a delivery event.
type DeliveryLine struct {
	ItemID           uuid.UUID
	QuantityReceived int
	QuantityAccepted int
	QuantityRejected int
}

// RecordDelivery applies receipts cumulatively. The order becomes delivered once
// every item has accepted+rejected equal to its ordered quantity.
func (o *PurchaseOrder) RecordDelivery(lines []DeliveryLine, receivedDate time.Time, receivedBy string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	switch o.Status {
	case POStatusAccepted, POStatusInProgress, POStatusPartiallyDelivered:
	default:
		return invalidTransition("purchase order", o.Status, POStatusDelivered)
	}
	if len(lines) == 0 {
		return validationError("delivery must include at least one item")
	}
	if receivedDate.IsZero() {
		receivedDate = time.Now()
	}

	// Validate everything before mutating any item.
	updated := make([]PurchaseOrderItem, len(o.Items))
	copy(updated, o.Items)
	received := false
	for _, line := range lines {
		idx := o.findItem(line.ItemID)
		if idx < 0 {
			return validationError("delivery references unknown item %s", line.ItemID)
		}
		if line.QuantityReceived < 0 || line.QuantityAccepted < 0 || line.QuantityRejected < 0 {
			return validationError("delivery quantities must not be negative")
		}
		if line.QuantityAccepted+line.QuantityRejected > line.QuantityReceived {
			return validationError("accepted plus rejected exceeds received quantity for item %s", updated[idx].PartName)
		}
		received = received || line.QuantityReceived > 0
		item := &updated[idx]
		item.QuantityReceived += line.QuantityReceived
		item.QuantityAccepted += line.QuantityAccepted
		item.QuantityRejected += line.QuantityRejected
		if item.QuantityAccepted+item.QuantityRejected > item.Quantity {
			return validationError("delivered quantity exceeds ordered quantity %d for item %s", item.Quantity, item.PartName)
		}
		rd := receivedDate
		item.ReceivedDate = &rd
	}

	if !received {
		return validationError("delivery must receive a positive quantity of at least one item")
	}

	complete := true
	for _, item := range updated {
		if !item.IsFullyResolved() {
			complete = false
			break
		}
	}

	target := POStatusPartiallyDelivered
	shipment := ShipmentPartial
	if complete {
		target = POStatusDelivered
		shipment = ShipmentDelivered
	}
	if target != o.Status {
		if err := o.transitionTo(target, receivedBy, ""); err != nil {
			return err
		}
	} else {
		o.touch(receivedBy)
	}

	o.Items = updated
	d := o.ensureDelivery()
	d.Status = shipment
	d.ReceivedBy = receivedBy
	if complete {
		rd := receivedDate
		d.DeliveredAt = &rd
		o.ActualDeliveryDate = &rd
	}
	return nil
}

func (o *PurchaseOrder) ensureDelivery() *DeliveryStatus {
	if o.Delivery == nil {
		o.Delivery = &DeliveryStatus{Status: ShipmentPending}
	}
	o.Delivery.UpdatedAt = time.Now()
	return o.Delivery
}

func (o *PurchaseOrder) findItem(id uuid.UUID) int {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// QualityStatus is the outcome of an inspection.
type QualityStatus string

const (
	QualityPending QualityStatus = "pending"
	QualityPassed  QualityStatus = "passed"
	QualityFailed  QualityStatus = "failed"
	QualityPartial QualityStatus = "partial"
)

// IsValid checks if the quality status is a known value
func (s QualityStatus) IsValid() bool {
	switch s {
	case QualityPending, QualityPassed, QualityFailed, QualityPartial:
		return true
	}
	return false
}

// IssueSeverity grades a quality issue.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// IsValid checks if the severity is a known value
func (s IssueSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// QualityIssue is one itemized inspection finding.
type QualityIssue struct {
	ItemID      uuid.UUID     `json:"item_id,omitempty"`
	Description string        `json:"description"`
	Severity    IssueSeverity `json:"severity"`
}

// QualityCheck is populated once an inspection is recorded.
type QualityCheck struct {
	Status      QualityStatus
	InspectedBy string
	InspectedAt time.Time
	Issues      []QualityIssue
	Notes       string
}

// QualityCheckInput carries an inspection result.
type QualityCheckInput struct {
	Status QualityStatus
	Issues []QualityIssue
	Notes  string
}

// RecordQualityCheck stores an inspection result. The result is advisory:
// it never changes the order status, even when the inspection failed.
func (o *PurchaseOrder) RecordQualityCheck(in QualityCheckInput, inspector string) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if !in.Status.IsValid() {
		return validationError("invalid quality check status: %s", in.Status)
	}
	switch o.Status {
	case POStatusAccepted, POStatusInProgress, POStatusPartiallyDelivered, POStatusDelivered:
	default:
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Quality check cannot be recorded for a purchase order in "+o.Status.String()+" status")
	}
	for _, issue := range in.Issues {
		if !issue.Severity.IsValid() {
			return validationError("invalid issue severity: %s", issue.Severity)
		}
		if strings.TrimSpace(issue.Description) == "" {
			return validationError("quality issue description is required")
		}
		if issue.ItemID != uuid.Nil && o.findItem(issue.ItemID) < 0 {
			return validationError("quality issue references unknown item %s", issue.ItemID)
		}
	}
	o.QualityCheck = &QualityCheck{
		Status:      in.Status,
		InspectedBy: inspector,
		InspectedAt: time.Now(),
		Issues:      in.Issues,
		Notes:       in.Notes,
	}
	o.touch(inspector)
	return nil
}

// HasFailedQualityCheck reports whether the latest inspection failed.
func (o *PurchaseOrder) HasFailedQualityCheck() bool {
	return o.QualityCheck != nil && o.QualityCheck.Status == QualityFailed
}
