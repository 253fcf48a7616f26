package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultNumberingAttempts bounds number assignment retries after a uniqueness conflict
const DefaultNumberingAttempts = 3

// Defaults holds the organisation-wide values applied when a request leaves them blank
type Defaults struct {
	ApprovalThreshold decimal.Decimal
	Currency          string
	PaymentTerms      string
	NumberingAttempts int
}

// DefaultDefaults returns the built-in procurement defaults
func DefaultDefaults() Defaults {
	return Defaults{
		ApprovalThreshold: procurement.DefaultApprovalThreshold,
		Currency:          procurement.DefaultCurrency,
		PaymentTerms:      procurement.DefaultPaymentTerms,
		NumberingAttempts: DefaultNumberingAttempts,
	}
}

func (d Defaults) attempts() int {
	if d.NumberingAttempts < 1 {
		return DefaultNumberingAttempts
	}
	return d.NumberingAttempts
}

// PurchaseOrderService handles purchase order business operations
type PurchaseOrderService struct {
	orderRepo   procurement.PurchaseOrderRepository
	vendorRepo  procurement.VendorRepository
	invoiceRepo procurement.InvoiceRepository
	numbering   *procurement.NumberingAuthority
	defaults    Defaults
	log         *zap.Logger
	metrics     *telemetry.ProcurementMetrics
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(
	orderRepo procurement.PurchaseOrderRepository,
	vendorRepo procurement.VendorRepository,
	invoiceRepo procurement.InvoiceRepository,
	numbering *procurement.NumberingAuthority,
	defaults Defaults,
	log *zap.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		orderRepo:   orderRepo,
		vendorRepo:  vendorRepo,
		invoiceRepo: invoiceRepo,
		numbering:   numbering,
		defaults:    defaults,
		log:         log,
	}
}

// SetMetrics sets the procurement metrics collector
func (s *PurchaseOrderService) SetMetrics(m *telemetry.ProcurementMetrics) {
	s.metrics = m
}

// Create creates a draft purchase order and assigns its number.
// A number collision at insert time is retried with a fresh number.
func (s *PurchaseOrderService) Create(ctx context.Context, actor string, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "create",
		telemetry.WithAttribute(telemetry.SpanAttrVendorID, req.VendorID.String()))
	defer span.End()

	vendor, err := s.vendorRepo.FindByID(ctx, req.VendorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	input := s.newOrderInput(actor, vendor, req)
	attempts := s.defaults.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		order, err := procurement.NewPurchaseOrder(input)
		if err != nil {
			return nil, err
		}
		number, err := s.numbering.NextNumberNow(ctx, procurement.DocumentPurchaseOrder)
		if err != nil {
			s.logFailure(ctx, "create", uuid.Nil, actor, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := order.AssignNumber(number); err != nil {
			return nil, err
		}

		err = s.orderRepo.Create(ctx, order)
		if errors.Is(err, procurement.ErrNumberingConflict) {
			s.metrics.RecordNumberingRetry(ctx, string(procurement.DocumentPurchaseOrder))
			telemetry.AddEvent(span, "number_conflict", "attempt", attempt, telemetry.SpanAttrPONumber, number)
			logger.Enrich(ctx, s.log).Warn("purchase order number already in use, retrying",
				zap.String("po_number", number),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			s.logFailure(ctx, "create", order.ID, actor, err)
			telemetry.RecordError(span, err)
			return nil, err
		}

		telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, order.ID, telemetry.SpanAttrPONumber, number)
		resp := ToPurchaseOrderResponse(order)
		return &resp, nil
	}

	logger.Enrich(ctx, s.log).Error("purchase order numbering exhausted",
		zap.String("operation", "create"),
		zap.String("vendor_id", req.VendorID.String()),
		zap.String("principal", actor),
		zap.Int("attempts", attempts),
	)
	telemetry.RecordError(span, shared.ErrServiceUnavailable)
	return nil, shared.ErrServiceUnavailable
}

func (s *PurchaseOrderService) newOrderInput(actor string, vendor *procurement.Vendor, req CreatePurchaseOrderRequest) procurement.NewPurchaseOrderInput {
	threshold := req.ApprovalThreshold
	if threshold == nil {
		t := s.defaults.ApprovalThreshold
		threshold = &t
	}
	currency := req.Currency
	if currency == "" {
		currency = s.defaults.Currency
	}
	terms := req.PaymentTerms
	if terms == "" {
		terms = s.defaults.PaymentTerms
	}
	return procurement.NewPurchaseOrderInput{
		VendorID:             vendor.ID,
		VendorName:           vendor.Name,
		VendorEmail:          vendor.Email,
		DepotID:              req.DepotID,
		DepotName:            req.DepotName,
		RequestedBy:          actor,
		Items:                toItemInputs(req.Items),
		Tax:                  toTax(req.Tax),
		ShippingCharges:      req.ShippingCharges,
		Discount:             req.Discount,
		ApprovalThreshold:    threshold,
		RequiresApproval:     req.RequiresApproval,
		Currency:             currency,
		PaymentTerms:         terms,
		DeliveryAddress:      req.DeliveryAddress,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Notes:                req.Notes,
		InternalNotes:        req.InternalNotes,
		Tags:                 req.Tags,
	}
}

// GetByID retrieves a purchase order by ID
func (s *PurchaseOrderService) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// GetByNumber retrieves a purchase order by its PO number
func (s *PurchaseOrderService) GetByNumber(ctx context.Context, number string) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByPONumber(ctx, number)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// List retrieves a page of purchase orders
func (s *PurchaseOrderService) List(ctx context.Context, filter PurchaseOrderListFilter) ([]PurchaseOrderListItemResponse, int64, error) {
	domainFilter := procurement.PurchaseOrderFilter{
		Filter:   pageFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		VendorID: filter.VendorID,
		DepotID:  filter.DepotID,
		From:     filter.From,
		To:       filter.To,
	}
	for _, st := range filter.Statuses {
		status := procurement.PurchaseOrderStatus(st)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError(shared.CodeValidation, "invalid purchase order status: "+st)
		}
		domainFilter.Statuses = append(domainFilter.Statuses, status)
	}

	orders, total, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PurchaseOrderListItemResponse, len(orders))
	for i := range orders {
		items[i] = ToPurchaseOrderListItemResponse(&orders[i])
	}
	return items, total, nil
}

// UpdateItems replaces the lines of a draft order
func (s *PurchaseOrderService) UpdateItems(ctx context.Context, id uuid.UUID, actor string, req UpdateItemsRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, id, actor, "update_items", func(o *procurement.PurchaseOrder) error {
		return o.UpdateItems(toItemInputs(req.Items), toTax(req.Tax), req.ShippingCharges, req.Discount, actor)
	})
}

// Submit sends a draft for approval or straight to the vendor
func (s *PurchaseOrderService) Submit(ctx context.Context, id uuid.UUID, actor string) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, id, actor, "submit", func(o *procurement.PurchaseOrder) error {
		return o.Submit(actor)
	})
}

// Approve records the approval and releases the order to the vendor in the same save
func (s *PurchaseOrderService) Approve(ctx context.Context, id uuid.UUID, actor string, req ApproveRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, id, actor, "approve", func(o *procurement.PurchaseOrder) error {
		if err := o.Approve(procurement.ApprovalLevel(req.Level), actor, req.Comments); err != nil {
			return err
		}
		return o.SendToVendor(actor)
	})
}

// RejectApproval records an approver's refusal
func (s *PurchaseOrderService) RejectApproval(ctx context.Context, id uuid.UUID, actor string, req RejectApprovalRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, id, actor, "reject_approval", func(o *procurement.PurchaseOrder) error {
		return o.RejectApproval(procurement.ApprovalLevel(req.Level), actor, req.Reason)
	})
}

// RecordVendorResponse applies the vendor's accept, reject or counter-offer
func (s *PurchaseOrderService) RecordVendorResponse(ctx context.Context, id uuid.UUID, actor string, req VendorResponseRequest) (*PurchaseOrderResponse, error) {
	offers := make([]procurement.CounterOfferItem, len(req.CounterOffer))
	for i, co := range req.CounterOffer {
		offers[i] = procurement.CounterOfferItem{
			ItemID:            co.ItemID,
			ProposedQuantity:  co.ProposedQuantity,
			ProposedUnitPrice: co.ProposedUnitPrice,
			Comments:          co.Comments,
		}
	}
	return s.mutate(ctx, id, actor, "vendor_response", func(o *procurement.PurchaseOrder) error {
		return o.RecordVendorResponse(procurement.VendorResponseInput{
			Status:               procurement.VendorResponseStatus(req.Status),
			Message:              req.Message,
			CounterOffer:         offers,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		}, actor)
	})
}

// ApplyCounterOffer is not supported; the requester revises items explicitly instead
func (s *PurchaseOrderService) ApplyCounterOffer(ctx context.Context, id uuid.UUID) error {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return order.ApplyCounterOffer()
}

// UpdateShipment records the vendor's tracking details
func (s *PurchaseOrderService) UpdateShipment(ctx context.Context, id uuid.UUID, actor string, req ShipmentRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, id, actor, "update_shipment", func(o *procurement.PurchaseOrder) error {
		return o.UpdateShipment(procurement.ShipmentInput{
			Status:         procurement.ShipmentStatus(req.Status),
			TrackingNumber: req.TrackingNumber,
			ShippingMethod: req.ShippingMethod,
			Notes:          req.Notes,
		}, actor)
	})
}

// RecordDelivery applies received quantities
func (s *PurchaseOrderService) RecordDelivery(ctx context.Context, id uuid.UUID, actor string, req DeliveryRequest) (*PurchaseOrderResponse, error) {
	lines := make([]procurement.DeliveryLine, len(req.Items))
	for i, l := range req.Items {
		lines[i] = procurement.DeliveryLine{
			ItemID:           l.ItemID,
			QuantityReceived: l.QuantityReceived,
			QuantityAccepted: l.QuantityAccepted,
			QuantityRejected: l.QuantityRejected,
		}
	}
	var received time.Time
	if req.ReceivedDate != nil {
		received = *req.ReceivedDate
	}
	return s.mutate(ctx, id, actor, "record_delivery", func(o *procurement.PurchaseOrder) error {
		return o.RecordDelivery(lines, received, actor)
	})
}

// RecordQualityCheck stores an advisory inspection result
func (s *PurchaseOrderService) RecordQualityCheck(ctx context.Context, id uuid.UUID, actor string, req QualityCheckRequest) (*PurchaseOrderResponse, error) {
	issues := make([]procurement.QualityIssue, len(req.Issues))
	for i, is := range req.Issues {
		issues[i] = procurement.QualityIssue{
			ItemID:      is.ItemID,
			Description: is.Description,
			Severity:    procurement.IssueSeverity(is.Severity),
		}
	}
	return s.mutate(ctx, id, actor, "quality_check", func(o *procurement.PurchaseOrder) error {
		return o.RecordQualityCheck(procurement.QualityCheckInput{
			Status: procurement.QualityStatus(req.Status),
			Issues: issues,
			Notes:  req.Notes,
		}, actor)
	})
}

// Complete closes a delivered order once the invoice billing it is fully paid.
// Cancelled and rejected invoices are ignored.
func (s *PurchaseOrderService) Complete(ctx context.Context, id uuid.UUID, actor string) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, id, actor, "complete", func(o *procurement.PurchaseOrder) error {
		invoices, err := s.invoiceRepo.FindByPurchaseOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		status := procurement.PaymentStatusPending
		if inv := procurement.BillingInvoice(invoices); inv != nil {
			inv.RefreshPaymentStatus(time.Now())
			status = inv.PaymentStatus
			o.LinkInvoice(inv)
		}
		return o.Complete(status, actor)
	})
}

// Cancel cancels any non-terminal order
func (s *PurchaseOrderService) Cancel(ctx context.Context, id uuid.UUID, actor string, req CancelRequest) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, id, actor, "cancel", func(o *procurement.PurchaseOrder) error {
		return o.Cancel(actor, req.Reason)
	})
}

// mutate loads the order, applies fn and saves it under optimistic locking
func (s *PurchaseOrderService) mutate(ctx context.Context, id uuid.UUID, actor, operation string, fn func(*procurement.PurchaseOrder) error) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", operation,
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, id.String()),
		telemetry.WithAttribute(telemetry.SpanAttrActor, actor),
	)
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		s.logFailure(ctx, operation, id, actor, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := fn(order); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	transitions := statusTransitions(order.GetDomainEvents())
	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		s.logFailure(ctx, operation, id, actor, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, t := range transitions {
		s.metrics.RecordTransition(ctx, string(t.FromStatus), string(t.ToStatus))
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrOrderStatus, string(order.Status))
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// logFailure logs infrastructure failures; domain rejections are the caller's concern
func (s *PurchaseOrderService) logFailure(ctx context.Context, operation string, id uuid.UUID, actor string, err error) {
	if _, ok := shared.AsDomainError(err); ok {
		return
	}
	logger.Enrich(ctx, s.log).Error("purchase order operation failed",
		zap.String("po_id", id.String()),
		zap.String("operation", operation),
		zap.String("principal", actor),
		zap.Error(err),
	)
}

func statusTransitions(events []shared.DomainEvent) []*procurement.PurchaseOrderStatusChangedEvent {
	var out []*procurement.PurchaseOrderStatusChangedEvent
	for _, e := range events {
		if sc, ok := e.(*procurement.PurchaseOrderStatusChangedEvent); ok {
			out = append(out, sc)
		}
	}
	return out
}

func toItemInputs(items []ItemRequest) []procurement.ItemInput {
	out := make([]procurement.ItemInput, len(items))
	for i, it := range items {
		out[i] = procurement.ItemInput{
			SparePartID:    it.SparePartID,
			PartNumber:     it.PartNumber,
			PartName:       it.PartName,
			Unit:           it.Unit,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Specifications: it.Specifications,
		}
	}
	return out
}

func toTax(t TaxRequest) procurement.Tax {
	return procurement.Tax{CGST: t.CGST, SGST: t.SGST, IGST: t.IGST, Total: t.Total}
}

func pageFilter(page, pageSize int, orderBy, orderDir, search string) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	f.Search = search
	return f
}
