package procurement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Alert thresholds
const (
	pendingOrdersAlertThreshold = 5
	lowTrustScoreThreshold      = 60
	dashboardSeriesDays         = 7
)

var pendingPaymentsAlertThreshold = decimal.NewFromInt(100000)

// DashboardService composes the vendor read models. It never writes.
type DashboardService struct {
	orderRepo   procurement.PurchaseOrderRepository
	invoiceRepo procurement.InvoiceRepository
	vendorRepo  procurement.VendorRepository
	log         *zap.Logger
	now         func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	orderRepo procurement.PurchaseOrderRepository,
	invoiceRepo procurement.InvoiceRepository,
	vendorRepo procurement.VendorRepository,
	log *zap.Logger,
) *DashboardService {
	return &DashboardService{
		orderRepo:   orderRepo,
		invoiceRepo: invoiceRepo,
		vendorRepo:  vendorRepo,
		log:         log,
		now:         time.Now,
	}
}

// orderTotals folds per-status summaries into the figures every view shares
type orderTotals struct {
	counts    map[string]int64
	total     int64
	active    int64
	pending   int64
	delivered int64
	revenue   decimal.Decimal
}

func foldStatusSummaries(summaries []procurement.StatusSummary) orderTotals {
	t := orderTotals{counts: make(map[string]int64, len(summaries)), revenue: decimal.Zero}
	for _, sum := range summaries {
		t.counts[string(sum.Status)] += sum.Count
		t.total += sum.Count
		switch sum.Status {
		case procurement.POStatusPending:
			t.pending += sum.Count
			t.active += sum.Count
		case procurement.POStatusAccepted, procurement.POStatusInProgress:
			t.active += sum.Count
		case procurement.POStatusDelivered, procurement.POStatusCompleted:
			t.delivered += sum.Count
			t.revenue = t.revenue.Add(sum.Amount)
		}
	}
	return t
}

// outstandingDue sums what is still owed on payable invoices
func outstandingDue(summaries []procurement.InvoiceSummary) decimal.Decimal {
	due := decimal.Zero
	for _, sum := range summaries {
		if sum.Status == procurement.InvoiceStatusCancelled || sum.Status == procurement.InvoiceStatusRejected {
			continue
		}
		due = due.Add(sum.DueAmount)
	}
	return due
}

// GetDashboard builds the vendor dashboard as of now
func (s *DashboardService) GetDashboard(ctx context.Context, vendorID uuid.UUID) (*DashboardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "get",
		telemetry.WithAttribute(telemetry.SpanAttrVendorID, vendorID.String()))
	defer span.End()

	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	statusSummaries, err := s.orderRepo.SummarizeByStatus(ctx, vendorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	invoiceSummaries, err := s.invoiceRepo.SummarizeByStatus(ctx, vendorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -(dashboardSeriesDays - 1))
	daily, err := s.orderRepo.SummarizeByDay(ctx, vendorID, from, today.AddDate(0, 0, 1))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	failedQC, err := s.orderRepo.CountFailedQualityChecks(ctx, vendorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	counterOffers, err := s.orderRepo.CountOpenCounterOffers(ctx, vendorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	totals := foldStatusSummaries(statusSummaries)
	resp := &DashboardResponse{
		VendorID:            vendor.ID,
		VendorName:          vendor.Name,
		StatusCounts:        totals.counts,
		TotalOrders:         totals.total,
		ActiveOrders:        totals.active,
		TotalRevenue:        totals.revenue,
		PendingPayments:     outstandingDue(invoiceSummaries),
		TrustScore:          vendor.TrustScore,
		PerformanceRating:   vendor.PerformanceRating(),
		FailedQualityChecks: failedQC,
		OpenCounterOffers:   counterOffers,
		WeeklyOrders:        weeklySeries(daily, from, dashboardSeriesDays),
		GeneratedAt:         now,
	}
	resp.Alerts = dashboardAlerts(totals.pending, resp.TrustScore, resp.PendingPayments, failedQC, counterOffers)
	return resp, nil
}

// weeklySeries lays the sparse daily summaries onto a dense run of days
func weeklySeries(daily []procurement.DailySummary, from time.Time, days int) []DailyPointResponse {
	byDay := make(map[string]procurement.DailySummary, len(daily))
	for _, d := range daily {
		byDay[d.Day.UTC().Format("2006-01-02")] = d
	}
	series := make([]DailyPointResponse, days)
	for i := range series {
		key := from.AddDate(0, 0, i).Format("2006-01-02")
		point := DailyPointResponse{Date: key, Amount: decimal.Zero}
		if d, ok := byDay[key]; ok {
			point.Orders = d.Count
			point.Amount = d.Amount
		}
		series[i] = point
	}
	return series
}

func dashboardAlerts(pending int64, trustScore int, pendingPayments decimal.Decimal, failedQC, counterOffers int64) []AlertResponse {
	alerts := make([]AlertResponse, 0)
	if pending > pendingOrdersAlertThreshold {
		alerts = append(alerts, AlertResponse{
			Code:     "PENDING_ORDERS",
			Type:     AlertTypeWarning,
			Priority: AlertPriorityHigh,
			Message:  fmt.Sprintf("%d purchase orders are awaiting your response", pending),
		})
	}
	if trustScore < lowTrustScoreThreshold {
		alerts = append(alerts, AlertResponse{
			Code:     "LOW_TRUST_SCORE",
			Type:     AlertTypeError,
			Priority: AlertPriorityHigh,
			Message:  fmt.Sprintf("Trust score %d is below %d", trustScore, lowTrustScoreThreshold),
		})
	}
	if pendingPayments.GreaterThan(pendingPaymentsAlertThreshold) {
		alerts = append(alerts, AlertResponse{
			Code:     "HIGH_PENDING_PAYMENTS",
			Type:     AlertTypeInfo,
			Priority: AlertPriorityMedium,
			Message:  "Outstanding payments of " + pendingPayments.StringFixed(2) + " exceed 100000.00",
		})
	}
	if failedQC > 0 {
		alerts = append(alerts, AlertResponse{
			Code:     "QUALITY_CHECK_FAILED",
			Type:     AlertTypeWarning,
			Priority: AlertPriorityMedium,
			Message:  fmt.Sprintf("%d deliveries failed quality inspection", failedQC),
		})
	}
	if counterOffers > 0 {
		alerts = append(alerts, AlertResponse{
			Code:     "OPEN_COUNTER_OFFERS",
			Type:     AlertTypeInfo,
			Priority: AlertPriorityLow,
			Message:  fmt.Sprintf("%d counter-offers are awaiting review", counterOffers),
		})
	}
	return alerts
}

// GetPerformance summarizes the vendor's order volume and scores
func (s *DashboardService) GetPerformance(ctx context.Context, vendorID uuid.UUID) (*PerformanceResponse, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	summaries, err := s.orderRepo.SummarizeByStatus(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	totals := foldStatusSummaries(summaries)

	avg := decimal.Zero
	if totals.delivered > 0 {
		avg = totals.revenue.Div(decimal.NewFromInt(totals.delivered)).Round(2)
	}
	return &PerformanceResponse{
		VendorID:                 vendor.ID,
		TotalOrders:              totals.total,
		CompletedOrders:          totals.delivered,
		PendingOrders:            totals.pending,
		TotalRevenue:             totals.revenue,
		AvgOrderValue:            avg,
		TrustScore:               vendor.TrustScore,
		ComplianceScore:          vendor.ComplianceScore,
		DeliveryReliabilityScore: vendor.DeliveryReliabilityScore,
		PerformanceRating:        vendor.PerformanceRating(),
	}, nil
}

// GetNotifications derives the vendor's attention items, newest first
func (s *DashboardService) GetNotifications(ctx context.Context, vendorID uuid.UUID) ([]NotificationResponse, error) {
	if _, err := s.vendorRepo.FindByID(ctx, vendorID); err != nil {
		return nil, err
	}
	now := s.now()

	orders, _, err := s.orderRepo.FindAll(ctx, procurement.PurchaseOrderFilter{
		Filter:   pageFilter(1, maxListWindow, "created_at", "desc", ""),
		VendorID: &vendorID,
		Statuses: []procurement.PurchaseOrderStatus{
			procurement.POStatusPending,
			procurement.POStatusAccepted,
			procurement.POStatusInProgress,
			procurement.POStatusPartiallyDelivered,
			procurement.POStatusDelivered,
		},
	})
	if err != nil {
		return nil, err
	}
	overdueInvoices, _, err := s.invoiceRepo.FindAll(ctx, procurement.InvoiceFilter{
		Filter:    pageFilter(1, maxListWindow, "due_date", "asc", ""),
		VendorID:  &vendorID,
		OverdueAt: &now,
	})
	if err != nil {
		return nil, err
	}

	out := make([]NotificationResponse, 0)
	for i := range orders {
		o := &orders[i]
		id := o.ID
		switch {
		case o.Status == procurement.POStatusPending:
			out = append(out, NotificationResponse{
				Type:        NotificationPendingOrder,
				Priority:    AlertPriorityHigh,
				Message:     fmt.Sprintf("Purchase order %s is awaiting your response", o.PONumber),
				ReferenceID: &id,
				Reference:   o.PONumber,
				OccurredAt:  o.UpdatedAt,
			})
		case (o.Status == procurement.POStatusAccepted || o.Status == procurement.POStatusInProgress) &&
			o.ExpectedDeliveryDate != nil && o.ExpectedDeliveryDate.Before(now):
			out = append(out, NotificationResponse{
				Type:        NotificationOverdueDelivery,
				Priority:    AlertPriorityHigh,
				Message:     fmt.Sprintf("Delivery of %s was expected on %s", o.PONumber, o.ExpectedDeliveryDate.Format("2006-01-02")),
				ReferenceID: &id,
				Reference:   o.PONumber,
				OccurredAt:  *o.ExpectedDeliveryDate,
			})
		}
		if o.HasFailedQualityCheck() {
			out = append(out, NotificationResponse{
				Type:        NotificationQualityFailed,
				Priority:    AlertPriorityMedium,
				Message:     fmt.Sprintf("Delivery of %s failed quality inspection", o.PONumber),
				ReferenceID: &id,
				Reference:   o.PONumber,
				OccurredAt:  o.QualityCheck.InspectedAt,
			})
		}
	}
	for i := range overdueInvoices {
		inv := &overdueInvoices[i]
		id := inv.ID
		n := NotificationResponse{
			Type:        NotificationOverdueInvoice,
			Priority:    AlertPriorityMedium,
			Message:     fmt.Sprintf("Invoice %s has %s outstanding past its due date", inv.InvoiceNumber, inv.DueAmount.StringFixed(2)),
			ReferenceID: &id,
			Reference:   inv.InvoiceNumber,
			OccurredAt:  inv.InvoiceDate,
		}
		if inv.DueDate != nil {
			n.OccurredAt = *inv.DueDate
		}
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

// GetAuditFeed derives the vendor's activity trail from stored orders and invoices
func (s *DashboardService) GetAuditFeed(ctx context.Context, vendorID uuid.UUID, page, pageSize int) (*shared.Paginated[AuditEntryResponse], error) {
	if _, err := s.vendorRepo.FindByID(ctx, vendorID); err != nil {
		return nil, err
	}
	window := pageFilter(1, maxListWindow, "created_at", "desc", "")
	orders, _, err := s.orderRepo.FindAll(ctx, procurement.PurchaseOrderFilter{Filter: window, VendorID: &vendorID})
	if err != nil {
		return nil, err
	}
	invoices, _, err := s.invoiceRepo.FindAll(ctx, procurement.InvoiceFilter{Filter: window, VendorID: &vendorID})
	if err != nil {
		return nil, err
	}

	entries := make([]AuditEntryResponse, 0, len(orders)*2+len(invoices)*2)
	for i := range orders {
		entries = append(entries, orderAuditEntries(&orders[i])...)
	}
	for i := range invoices {
		entries = append(entries, invoiceAuditEntries(&invoices[i])...)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })

	f := pageFilter(page, pageSize, "", "", "")
	start := f.Offset()
	if start > len(entries) {
		start = len(entries)
	}
	end := start + f.PageSize
	if end > len(entries) {
		end = len(entries)
	}
	result := shared.NewPaginated(entries[start:end], int64(len(entries)), f.Page, f.PageSize)
	return &result, nil
}

func orderAuditEntries(o *procurement.PurchaseOrder) []AuditEntryResponse {
	entry := func(action, description, actor string, at time.Time) AuditEntryResponse {
		return AuditEntryResponse{
			Action:      action,
			EntityType:  procurement.AggregateTypePurchaseOrder,
			EntityID:    o.ID,
			Reference:   o.PONumber,
			Description: description,
			Amount:      o.TotalAmount,
			Actor:       actor,
			Timestamp:   at,
		}
	}
	entries := []AuditEntryResponse{
		entry(AuditPOCreated, "Purchase order "+o.PONumber+" created", o.CreatedBy, o.CreatedAt),
	}
	var responder string
	if o.VendorResponse != nil {
		responder = o.VendorResponse.RespondedBy
	}
	if o.AcceptedDate != nil {
		entries = append(entries, entry(AuditPOAccepted, "Purchase order "+o.PONumber+" accepted", responder, *o.AcceptedDate))
	}
	if o.RejectedDate != nil {
		entries = append(entries, entry(AuditPORejected, "Purchase order "+o.PONumber+" rejected", responder, *o.RejectedDate))
	}
	if o.Delivery != nil {
		entries = append(entries, entry(AuditDeliveryUpdated,
			fmt.Sprintf("Delivery of %s marked %s", o.PONumber, o.Delivery.Status), o.Delivery.ReceivedBy, o.Delivery.UpdatedAt))
	}
	return entries
}

func invoiceAuditEntries(inv *procurement.Invoice) []AuditEntryResponse {
	entries := []AuditEntryResponse{{
		Action:      AuditInvoiceGenerated,
		EntityType:  procurement.AggregateTypeInvoice,
		EntityID:    inv.ID,
		Reference:   inv.InvoiceNumber,
		Description: "Invoice " + inv.InvoiceNumber + " generated for " + inv.PONumber,
		Amount:      inv.TotalAmount,
		Actor:       inv.CreatedBy,
		Timestamp:   inv.CreatedAt,
	}}
	for _, p := range inv.Payments {
		entries = append(entries, AuditEntryResponse{
			Action:      AuditPaymentReceived,
			EntityType:  procurement.AggregateTypeInvoice,
			EntityID:    inv.ID,
			Reference:   inv.InvoiceNumber,
			Description: fmt.Sprintf("Payment %s received via %s", p.TransactionID, p.Method),
			Amount:      p.Amount,
			Actor:       p.RecordedBy,
			Timestamp:   p.PaidAt,
		})
	}
	return entries
}
