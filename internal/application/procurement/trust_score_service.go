package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrustScoreService recomputes vendor trust scores from delivery history
type TrustScoreService struct {
	vendorRepo      procurement.VendorRepository
	orderRepo       procurement.PurchaseOrderRepository
	invoiceAccuracy int
	log             *zap.Logger
	metrics         *telemetry.ProcurementMetrics
}

// NewTrustScoreService creates a new TrustScoreService. invoiceAccuracy is the
// contribution used when a caller supplies none.
func NewTrustScoreService(
	vendorRepo procurement.VendorRepository,
	orderRepo procurement.PurchaseOrderRepository,
	invoiceAccuracy int,
	log *zap.Logger,
) *TrustScoreService {
	return &TrustScoreService{
		vendorRepo:      vendorRepo,
		orderRepo:       orderRepo,
		invoiceAccuracy: invoiceAccuracy,
		log:             log,
	}
}

// SetMetrics sets the procurement metrics collector
func (s *TrustScoreService) SetMetrics(m *telemetry.ProcurementMetrics) {
	s.metrics = m
}

// RecomputeTrustScore scores the vendor and persists the result only when it changed
func (s *TrustScoreService) RecomputeTrustScore(ctx context.Context, vendorID uuid.UUID, actor string, invoiceAccuracy *int) (*TrustScoreResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "vendor", "recompute_trust_score",
		telemetry.WithAttribute(telemetry.SpanAttrVendorID, vendorID.String()))
	defer span.End()

	accuracy := s.invoiceAccuracy
	if invoiceAccuracy != nil {
		accuracy = *invoiceAccuracy
	}
	if accuracy < 0 || accuracy > 100 {
		return nil, shared.NewDomainError(shared.CodeValidation, "invoice accuracy must be between 0 and 100")
	}

	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	orders, err := s.orderRepo.FindDeliveredByVendor(ctx, vendorID)
	if err != nil {
		s.logFailure(ctx, vendorID, actor, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	records := make([]procurement.DeliveryRecord, len(orders))
	for i := range orders {
		records[i] = orders[i].DeliveryRecord()
	}
	result := procurement.ComputeTrustScore(records, accuracy)

	previous := vendor.TrustScore
	changed := vendor.ApplyTrustScore(result, actor)
	if changed {
		if err := s.vendorRepo.SaveTrustScore(ctx, vendor); err != nil {
			s.logFailure(ctx, vendorID, actor, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
		logger.Enrich(ctx, s.log).Info("vendor trust score updated",
			zap.String("vendor_id", vendorID.String()),
			zap.Int("previous_score", previous),
			zap.Int("trust_score", result.TrustScore),
			zap.Int("deliveries", result.TotalDeliveries),
		)
	}
	s.metrics.RecordTrustScore(ctx, result.TrustScore)
	telemetry.SetAttributes(span, "vendor.trust_score", result.TrustScore, "vendor.trust_score_changed", changed)

	return &TrustScoreResponse{
		VendorID:         vendorID,
		PreviousScore:    previous,
		Changed:          changed,
		TrustScoreResult: result,
	}, nil
}

func (s *TrustScoreService) logFailure(ctx context.Context, vendorID uuid.UUID, actor string, err error) {
	if _, ok := shared.AsDomainError(err); ok {
		return
	}
	logger.Enrich(ctx, s.log).Error("trust score recompute failed",
		zap.String("vendor_id", vendorID.String()),
		zap.String("operation", "recompute_trust_score"),
		zap.String("principal", actor),
		zap.Error(err),
	)
}
