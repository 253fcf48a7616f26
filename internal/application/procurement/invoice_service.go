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

// saveAttempts bounds reload-and-reapply cycles after an optimistic lock conflict
const saveAttempts = 3

// InvoiceService handles invoice generation and payment reconciliation
type InvoiceService struct {
	invoiceRepo procurement.InvoiceRepository
	orderRepo   procurement.PurchaseOrderRepository
	numbering   *procurement.NumberingAuthority
	defaults    Defaults
	log         *zap.Logger
	metrics     *telemetry.ProcurementMetrics
	now         func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo procurement.InvoiceRepository,
	orderRepo procurement.PurchaseOrderRepository,
	numbering *procurement.NumberingAuthority,
	defaults Defaults,
	log *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		numbering:   numbering,
		defaults:    defaults,
		log:         log,
		now:         time.Now,
	}
}

// SetMetrics sets the procurement metrics collector
func (s *InvoiceService) SetMetrics(m *telemetry.ProcurementMetrics) {
	s.metrics = m
}

// Generate bills an invoiceable purchase order and links the invoice back to it
func (s *InvoiceService) Generate(ctx context.Context, actor string, req GenerateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "generate",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, req.PurchaseOrderID.String()))
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, req.PurchaseOrderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	existing, err := s.invoiceRepo.FindByPurchaseOrder(ctx, order.ID)
	if err != nil {
		s.logFailure(ctx, "generate", order.ID, actor, err)
		return nil, err
	}
	if billing := procurement.BillingInvoice(existing); billing != nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists,
			"Purchase order "+order.PONumber+" is already billed by invoice "+billing.InvoiceNumber)
	}

	invoiceDate := s.now()
	if req.InvoiceDate != nil {
		invoiceDate = *req.InvoiceDate
	}

	var inv *procurement.Invoice
	attempts := s.defaults.attempts()
	for attempt := 1; attempt <= attempts && inv == nil; attempt++ {
		number, err := s.numbering.NextNumberNow(ctx, procurement.DocumentInvoice)
		if err != nil {
			s.logFailure(ctx, "generate", order.ID, actor, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
		candidate, err := procurement.GenerateInvoice(order, number, invoiceDate, actor)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		candidate.Notes = req.Notes

		err = s.invoiceRepo.Create(ctx, candidate)
		switch {
		case errors.Is(err, procurement.ErrNumberingConflict):
			s.metrics.RecordNumberingRetry(ctx, string(procurement.DocumentInvoice))
			logger.Enrich(ctx, s.log).Warn("invoice number already in use, retrying",
				zap.String("invoice_number", number),
				zap.Int("attempt", attempt),
			)
		case err != nil:
			s.logFailure(ctx, "generate", order.ID, actor, err)
			telemetry.RecordError(span, err)
			return nil, err
		default:
			inv = candidate
		}
	}
	if inv == nil {
		logger.Enrich(ctx, s.log).Error("invoice numbering exhausted",
			zap.String("operation", "generate"),
			zap.String("po_id", order.ID.String()),
			zap.String("principal", actor),
			zap.Int("attempts", attempts),
		)
		telemetry.RecordError(span, shared.ErrServiceUnavailable)
		return nil, shared.ErrServiceUnavailable
	}

	// The invoice is committed; completion reads it from the invoice store, so a
	// failed link only leaves the order's mirrored fields stale.
	if err := s.updateOrder(ctx, order, func(o *procurement.PurchaseOrder) error {
		o.LinkInvoice(inv)
		return nil
	}); err != nil {
		s.logFailure(ctx, "link_invoice", order.ID, actor, err)
		telemetry.AddEvent(span, "link_failed", "error", err.Error())
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, inv.ID, telemetry.SpanAttrInvoiceNumber, inv.InvoiceNumber)
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// RecordPayment applies a gateway-verified payment. Replaying a transaction id
// returns the invoice unchanged.
func (s *InvoiceService) RecordPayment(ctx context.Context, id uuid.UUID, actor string, req RecordPaymentRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "record_payment",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, id.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTransactionID, req.TransactionID),
	)
	defer span.End()

	input := procurement.PaymentInput{
		Amount:        req.Amount,
		Method:        req.Method,
		TransactionID: req.TransactionID,
	}
	if req.PaymentDate != nil {
		input.PaymentDate = *req.PaymentDate
	}

	for attempt := 1; ; attempt++ {
		inv, err := s.invoiceRepo.FindByID(ctx, id)
		if err != nil {
			s.logInvoiceFailure(ctx, "record_payment", id, actor, err)
			telemetry.RecordError(span, err)
			return nil, err
		}

		now := s.now()
		applied, err := inv.RecordPayment(input, actor, now)
		if err != nil {
			s.metrics.RecordPayment(ctx, req.Method, telemetry.PaymentRejected)
			telemetry.RecordError(span, err)
			return nil, err
		}
		if !applied {
			s.metrics.RecordPayment(ctx, req.Method, telemetry.PaymentDuplicate)
			resp := ToInvoiceResponse(inv)
			return &resp, nil
		}

		err = s.invoiceRepo.SaveWithLock(ctx, inv)
		switch {
		case errors.Is(err, procurement.ErrDuplicatePayment):
			// A concurrent callback with the same transaction id won the insert.
			s.metrics.RecordPayment(ctx, req.Method, telemetry.PaymentDuplicate)
			return s.reload(ctx, id)
		case errors.Is(err, shared.ErrConcurrentModification) && attempt < saveAttempts:
			telemetry.AddEvent(span, "version_conflict", "attempt", attempt)
			continue
		case err != nil:
			s.logInvoiceFailure(ctx, "record_payment", id, actor, err)
			telemetry.RecordError(span, err)
			return nil, err
		}

		s.metrics.RecordPayment(ctx, req.Method, telemetry.PaymentApplied)
		s.syncOrder(ctx, inv, actor)
		resp := ToInvoiceResponse(inv)
		return &resp, nil
	}
}

// syncOrder mirrors the invoice's payment position onto its order. The payment is
// already committed, so a failure here is logged and left for the next payment.
func (s *InvoiceService) syncOrder(ctx context.Context, inv *procurement.Invoice, actor string) {
	order, err := s.orderRepo.FindByID(ctx, inv.PurchaseOrderID)
	if err != nil {
		s.logFailure(ctx, "sync_payment", inv.PurchaseOrderID, actor, err)
		return
	}
	if order.Status.IsTerminal() {
		return
	}
	if err := s.updateOrder(ctx, order, func(o *procurement.PurchaseOrder) error {
		return o.SyncPayment(inv)
	}); err != nil {
		logger.Enrich(ctx, s.log).Error("failed to mirror payment onto purchase order",
			zap.String("po_id", inv.PurchaseOrderID.String()),
			zap.String("invoice_id", inv.ID.String()),
			zap.String("operation", "sync_payment"),
			zap.String("principal", actor),
			zap.Error(err),
		)
	}
}

// updateOrder applies fn and saves, reloading the order on version conflicts
func (s *InvoiceService) updateOrder(ctx context.Context, order *procurement.PurchaseOrder, fn func(*procurement.PurchaseOrder) error) error {
	for attempt := 1; ; attempt++ {
		if err := fn(order); err != nil {
			return err
		}
		err := s.orderRepo.SaveWithLock(ctx, order)
		if err == nil || !errors.Is(err, shared.ErrConcurrentModification) || attempt >= saveAttempts {
			return err
		}
		if order, err = s.orderRepo.FindByID(ctx, order.ID); err != nil {
			return err
		}
	}
}

// MarkSent records that the invoice was sent to the payer
func (s *InvoiceService) MarkSent(ctx context.Context, id uuid.UUID, actor string) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, actor, "mark_sent", func(inv *procurement.Invoice) error {
		return inv.MarkSent()
	})
}

// Approve signs the invoice off for payment
func (s *InvoiceService) Approve(ctx context.Context, id uuid.UUID, actor string) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, actor, "approve", func(inv *procurement.Invoice) error {
		return inv.Approve(actor)
	})
}

// Reject refuses the invoice
func (s *InvoiceService) Reject(ctx context.Context, id uuid.UUID, actor string, req RejectInvoiceRequest) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, actor, "reject", func(inv *procurement.Invoice) error {
		return inv.Reject(actor, req.Reason)
	})
}

// Cancel voids an unpaid invoice
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID, actor string, req CancelRequest) (*InvoiceResponse, error) {
	return s.mutate(ctx, id, actor, "cancel", func(inv *procurement.Invoice) error {
		return inv.Cancel(req.Reason)
	})
}

func (s *InvoiceService) mutate(ctx context.Context, id uuid.UUID, actor, operation string, fn func(*procurement.Invoice) error) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", operation,
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, id.String()),
		telemetry.WithAttribute(telemetry.SpanAttrActor, actor),
	)
	defer span.End()

	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		s.logInvoiceFailure(ctx, operation, id, actor, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := fn(inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		s.logInvoiceFailure(ctx, operation, id, actor, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	inv.RefreshPaymentStatus(s.now())
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

func (s *InvoiceService) reload(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.RefreshPaymentStatus(s.now())
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// GetByID retrieves an invoice, surfacing overdue status as of now
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.reload(ctx, id)
}

// GetByNumber retrieves an invoice by its number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByInvoiceNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	inv.RefreshPaymentStatus(s.now())
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// List retrieves a page of invoices together with the per-status summary
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) (*InvoiceListResponse, error) {
	domainFilter := procurement.InvoiceFilter{
		Filter:          pageFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		VendorID:        filter.VendorID,
		PurchaseOrderID: filter.PurchaseOrderID,
		From:            filter.From,
		To:              filter.To,
	}
	for _, st := range filter.Statuses {
		status := procurement.InvoiceStatus(st)
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeValidation, "invalid invoice status: "+st)
		}
		domainFilter.Statuses = append(domainFilter.Statuses, status)
	}
	for _, ps := range filter.PaymentStatuses {
		status := procurement.PaymentStatus(ps)
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeValidation, "invalid payment status: "+ps)
		}
		if status == procurement.PaymentStatusOverdue {
			// overdue is derived at read time, so it is selected by due date
			now := s.now()
			domainFilter.OverdueAt = &now
			continue
		}
		domainFilter.PaymentStatuses = append(domainFilter.PaymentStatuses, status)
	}

	invoices, total, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	vendorID := uuid.Nil
	if filter.VendorID != nil {
		vendorID = *filter.VendorID
	}
	summaries, err := s.invoiceRepo.SummarizeByStatus(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp := &InvoiceListResponse{
		Invoices: make([]InvoiceResponse, len(invoices)),
		Total:    total,
		Page:     domainFilter.Page,
		PageSize: domainFilter.PageSize,
		Summary:  make([]InvoiceStatusSummary, len(summaries)),
	}
	for i := range invoices {
		invoices[i].RefreshPaymentStatus(now)
		resp.Invoices[i] = ToInvoiceResponse(&invoices[i])
	}
	for i, sum := range summaries {
		resp.Summary[i] = InvoiceStatusSummary{
			Status:      string(sum.Status),
			Count:       sum.Count,
			TotalAmount: sum.TotalAmount,
			PaidAmount:  sum.PaidAmount,
			DueAmount:   sum.DueAmount,
		}
	}
	return resp, nil
}

// ListPayments builds the vendor payments view: outstanding and settled invoices with totals.
// Cancelled and rejected invoices are not payable and are left out.
func (s *InvoiceService) ListPayments(ctx context.Context, vendorID uuid.UUID) (*PaymentListResponse, error) {
	filter := procurement.InvoiceFilter{
		Filter:   pageFilter(1, maxListWindow, "invoice_date", "desc", ""),
		VendorID: &vendorID,
		Statuses: payableInvoiceStatuses,
	}
	invoices, _, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp := &PaymentListResponse{
		Pending:       make([]VendorPaymentResponse, 0),
		Completed:     make([]VendorPaymentResponse, 0),
		TotalInvoiced: decimal.Zero,
		TotalPaid:     decimal.Zero,
		TotalPending:  decimal.Zero,
	}
	for i := range invoices {
		inv := &invoices[i]
		inv.RefreshPaymentStatus(now)
		full := ToInvoiceResponse(inv)
		row := VendorPaymentResponse{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			PONumber:      inv.PONumber,
			TotalAmount:   inv.TotalAmount,
			PaidAmount:    inv.PaidAmount,
			DueAmount:     inv.DueAmount,
			DueDate:       inv.DueDate,
			PaymentStatus: string(inv.PaymentStatus),
			Stage:         inv.PaymentStage(),
			Payments:      full.Payments,
		}
		resp.TotalInvoiced = resp.TotalInvoiced.Add(inv.TotalAmount)
		resp.TotalPaid = resp.TotalPaid.Add(inv.PaidAmount)
		resp.TotalPending = resp.TotalPending.Add(inv.DueAmount)
		if inv.PaymentStatus == procurement.PaymentStatusPaid {
			resp.Completed = append(resp.Completed, row)
		} else {
			resp.Pending = append(resp.Pending, row)
		}
	}
	return resp, nil
}

// SweepOverdue stores the overdue payment status on every unpaid invoice past
// its due date and returns how many invoices changed. An invoice modified
// concurrently is skipped; the next sweep picks it up.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "sweep_overdue")
	defer span.End()

	now := s.now()
	filter := procurement.InvoiceFilter{
		Filter:          shared.Filter{Page: 1, PageSize: 100, OrderBy: "due_date", OrderDir: "asc"},
		PaymentStatuses: []procurement.PaymentStatus{procurement.PaymentStatusPending},
		OverdueAt:       &now,
	}

	var candidates []procurement.Invoice
	for {
		page, total, err := s.invoiceRepo.FindAll(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return 0, err
		}
		candidates = append(candidates, page...)
		if len(page) == 0 || int64(len(candidates)) >= total {
			break
		}
		filter.Page++
	}

	swept := 0
	for i := range candidates {
		inv := &candidates[i]
		before := inv.PaymentStatus
		inv.RefreshPaymentStatus(now)
		if inv.PaymentStatus == before {
			continue
		}
		err := s.invoiceRepo.SaveWithLock(ctx, inv)
		switch {
		case errors.Is(err, shared.ErrConcurrentModification):
			logger.Enrich(ctx, s.log).Info("invoice changed during overdue sweep, skipping",
				zap.String("invoice_id", inv.ID.String()),
			)
		case err != nil:
			telemetry.RecordError(span, err)
			return swept, err
		default:
			swept++
		}
	}

	telemetry.SetAttributes(span, "sweep.candidates", len(candidates), "sweep.updated", swept)
	logger.Enrich(ctx, s.log).Info("overdue invoice sweep finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("updated", swept),
	)
	return swept, nil
}

func (s *InvoiceService) logFailure(ctx context.Context, operation string, poID uuid.UUID, actor string, err error) {
	if _, ok := shared.AsDomainError(err); ok {
		return
	}
	logger.Enrich(ctx, s.log).Error("invoice operation failed",
		zap.String("po_id", poID.String()),
		zap.String("operation", operation),
		zap.String("principal", actor),
		zap.Error(err),
	)
}

func (s *InvoiceService) logInvoiceFailure(ctx context.Context, operation string, id uuid.UUID, actor string, err error) {
	if _, ok := shared.AsDomainError(err); ok {
		return
	}
	logger.Enrich(ctx, s.log).Error("invoice operation failed",
		zap.String("invoice_id", id.String()),
		zap.String("operation", operation),
		zap.String("principal", actor),
		zap.Error(err),
	)
}

// maxListWindow caps the rows read by the in-memory vendor views
const maxListWindow = 500

var payableInvoiceStatuses = []procurement.InvoiceStatus{
	procurement.InvoiceStatusGenerated,
	procurement.InvoiceStatusSent,
	procurement.InvoiceStatusApproved,
	procurement.InvoiceStatusPaid,
}
