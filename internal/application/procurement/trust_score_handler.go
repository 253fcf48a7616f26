package procurement

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrustScoreActor is recorded on scores recomputed in reaction to deliveries
const TrustScoreActor = "system:trust-score"

// TrustScoreRecomputer is the part of TrustScoreService the handler needs
type TrustScoreRecomputer interface {
	RecomputeTrustScore(ctx context.Context, vendorID uuid.UUID, actor string, invoiceAccuracy *int) (*TrustScoreResponse, error)
}

// TrustScoreHandler handles PurchaseOrderStatusChangedEvent
// and rescores the vendor once an order is delivered or completed
type TrustScoreHandler struct {
	recomputer TrustScoreRecomputer
	logger     *zap.Logger
}

// NewTrustScoreHandler creates a new handler for purchase order status changes
func NewTrustScoreHandler(recomputer TrustScoreRecomputer, logger *zap.Logger) *TrustScoreHandler {
	return &TrustScoreHandler{
		recomputer: recomputer,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *TrustScoreHandler) EventTypes() []string {
	return []string{procurement.EventTypePOStatusChanged}
}

// Handle processes a PurchaseOrderStatusChangedEvent
func (h *TrustScoreHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*procurement.PurchaseOrderStatusChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", procurement.EventTypePOStatusChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			procurement.EventTypePOStatusChanged, event.EventType())
	}

	if changed.ToStatus != procurement.POStatusDelivered && changed.ToStatus != procurement.POStatusCompleted {
		return nil
	}

	h.logger.Info("rescoring vendor after delivery",
		zap.String("po_id", changed.OrderID.String()),
		zap.String("po_number", changed.PONumber),
		zap.String("vendor_id", changed.VendorID.String()),
		zap.String("to_status", string(changed.ToStatus)),
	)

	if _, err := h.recomputer.RecomputeTrustScore(ctx, changed.VendorID, TrustScoreActor, nil); err != nil {
		return fmt.Errorf("recompute trust score for vendor %s: %w", changed.VendorID, err)
	}
	return nil
}
