package procurement

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockTrustScoreRecomputer struct {
	mock.Mock
}

func (m *mockTrustScoreRecomputer) RecomputeTrustScore(ctx context.Context, vendorID uuid.UUID, actor string, invoiceAccuracy *int) (*TrustScoreResponse, error) {
	args := m.Called(ctx, vendorID, actor, invoiceAccuracy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TrustScoreResponse), args.Error(1)
}

func statusChanged(vendorID uuid.UUID, from, to procurement.PurchaseOrderStatus) *procurement.PurchaseOrderStatusChangedEvent {
	order := &procurement.PurchaseOrder{PONumber: "PO-2026-000001", VendorID: vendorID}
	return procurement.NewPurchaseOrderStatusChangedEvent(order, from, to, "storekeeper-1", "")
}

func TestTrustScoreHandler_EventTypes(t *testing.T) {
	h := NewTrustScoreHandler(new(mockTrustScoreRecomputer), zap.NewNop())
	assert.Equal(t, []string{procurement.EventTypePOStatusChanged}, h.EventTypes())
}

func TestTrustScoreHandler_Handle(t *testing.T) {
	ctx := context.Background()
	vendorID := uuid.New()

	t.Run("rescores on delivery and completion", func(t *testing.T) {
		for _, to := range []procurement.PurchaseOrderStatus{procurement.POStatusDelivered, procurement.POStatusCompleted} {
			recomputer := new(mockTrustScoreRecomputer)
			recomputer.On("RecomputeTrustScore", ctx, vendorID, TrustScoreActor, (*int)(nil)).
				Return(&TrustScoreResponse{VendorID: vendorID}, nil)
			h := NewTrustScoreHandler(recomputer, zap.NewNop())

			require.NoError(t, h.Handle(ctx, statusChanged(vendorID, procurement.POStatusInProgress, to)))
			recomputer.AssertExpectations(t)
		}
	})

	t.Run("ignores other transitions", func(t *testing.T) {
		recomputer := new(mockTrustScoreRecomputer)
		h := NewTrustScoreHandler(recomputer, zap.NewNop())

		require.NoError(t, h.Handle(ctx, statusChanged(vendorID, procurement.POStatusPending, procurement.POStatusAccepted)))
		recomputer.AssertNotCalled(t, "RecomputeTrustScore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("propagates recompute failures for redelivery", func(t *testing.T) {
		recomputer := new(mockTrustScoreRecomputer)
		recomputer.On("RecomputeTrustScore", ctx, vendorID, TrustScoreActor, (*int)(nil)).
			Return(nil, errors.New("database unavailable"))
		h := NewTrustScoreHandler(recomputer, zap.NewNop())

		err := h.Handle(ctx, statusChanged(vendorID, procurement.POStatusPartiallyDelivered, procurement.POStatusDelivered))
		require.Error(t, err)
		assert.Contains(t, err.Error(), vendorID.String())
	})

	t.Run("rejects unexpected event types", func(t *testing.T) {
		h := NewTrustScoreHandler(new(mockTrustScoreRecomputer), zap.NewNop())
		v := &procurement.Vendor{}
		err := h.Handle(ctx, procurement.NewTrustScoreUpdatedEvent(v, 50, procurement.TrustScoreBreakdown{}, "system"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})
}
