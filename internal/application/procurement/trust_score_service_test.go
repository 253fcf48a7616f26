package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func deliveredOrders(lateDays ...int) []procurement.PurchaseOrder {
	orders := make([]procurement.PurchaseOrder, len(lateDays))
	for i, late := range lateDays {
		expected := time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC)
		actual := expected.AddDate(0, 0, late)
		orders[i] = procurement.PurchaseOrder{
			BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
			Status:               procurement.POStatusDelivered,
			ExpectedDeliveryDate: &expected,
			ActualDeliveryDate:   &actual,
		}
	}
	return orders
}

func expectedScore(orders []procurement.PurchaseOrder, accuracy int) procurement.TrustScoreResult {
	records := make([]procurement.DeliveryRecord, len(orders))
	for i := range orders {
		records[i] = orders[i].DeliveryRecord()
	}
	return procurement.ComputeTrustScore(records, accuracy)
}

func TestTrustScoreService_RecomputeTrustScore(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a changed score", func(t *testing.T) {
		vendors := new(MockVendorRepository)
		orders := new(MockPurchaseOrderRepository)
		service := NewTrustScoreService(vendors, orders, procurement.DefaultInvoiceAccuracy, zap.NewNop())

		vendor := createTestVendor(t)
		history := deliveredOrders(0, 0, 3, -1)
		want := expectedScore(history, procurement.DefaultInvoiceAccuracy)
		require.NotEqual(t, vendor.TrustScore, want.TrustScore)

		vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
		orders.On("FindDeliveredByVendor", mock.Anything, vendor.ID).Return(history, nil)
		vendors.On("SaveTrustScore", mock.Anything, vendor).Return(nil)

		resp, err := service.RecomputeTrustScore(ctx, vendor.ID, "admin-1", nil)
		require.NoError(t, err)
		assert.True(t, resp.Changed)
		assert.Equal(t, procurement.DefaultVendorScore, resp.PreviousScore)
		assert.Equal(t, want, resp.TrustScoreResult)
		assert.Equal(t, want.TrustScore, vendor.TrustScore)
		require.Len(t, vendor.GetDomainEvents(), 1)
		assert.Equal(t, procurement.EventTypeTrustScoreUpdated, vendor.GetDomainEvents()[0].EventType())
		vendors.AssertNumberOfCalls(t, "SaveTrustScore", 1)
	})

	t.Run("unchanged score is not written", func(t *testing.T) {
		vendors := new(MockVendorRepository)
		orders := new(MockPurchaseOrderRepository)
		service := NewTrustScoreService(vendors, orders, procurement.DefaultInvoiceAccuracy, zap.NewNop())

		vendor := createTestVendor(t)
		history := deliveredOrders(0, 2)
		vendor.TrustScore = expectedScore(history, procurement.DefaultInvoiceAccuracy).TrustScore

		vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
		orders.On("FindDeliveredByVendor", mock.Anything, vendor.ID).Return(history, nil)

		resp, err := service.RecomputeTrustScore(ctx, vendor.ID, "admin-1", nil)
		require.NoError(t, err)
		assert.False(t, resp.Changed)
		assert.Empty(t, vendor.GetDomainEvents())
		vendors.AssertNotCalled(t, "SaveTrustScore", mock.Anything, mock.Anything)
	})

	t.Run("caller supplied invoice accuracy", func(t *testing.T) {
		vendors := new(MockVendorRepository)
		orders := new(MockPurchaseOrderRepository)
		service := NewTrustScoreService(vendors, orders, procurement.DefaultInvoiceAccuracy, zap.NewNop())

		vendor := createTestVendor(t)
		history := deliveredOrders(0)
		vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
		orders.On("FindDeliveredByVendor", mock.Anything, vendor.ID).Return(history, nil)
		vendors.On("SaveTrustScore", mock.Anything, vendor).Return(nil).Maybe()

		accuracy := 0
		resp, err := service.RecomputeTrustScore(ctx, vendor.ID, "admin-1", &accuracy)
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Breakdown.InvoiceAccuracy)
		assert.Equal(t, expectedScore(history, 0), resp.TrustScoreResult)
	})

	t.Run("invoice accuracy out of range", func(t *testing.T) {
		service := NewTrustScoreService(new(MockVendorRepository), new(MockPurchaseOrderRepository), 10, zap.NewNop())
		accuracy := 101
		_, err := service.RecomputeTrustScore(ctx, uuid.New(), "admin-1", &accuracy)
		assertCode(t, err, shared.CodeValidation)
	})

	t.Run("unknown vendor", func(t *testing.T) {
		vendors := new(MockVendorRepository)
		orders := new(MockPurchaseOrderRepository)
		service := NewTrustScoreService(vendors, orders, 10, zap.NewNop())
		id := uuid.New()
		vendors.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := service.RecomputeTrustScore(ctx, id, "admin-1", nil)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		orders.AssertNotCalled(t, "FindDeliveredByVendor", mock.Anything, mock.Anything)
	})

	t.Run("lost update surfaces as concurrent modification", func(t *testing.T) {
		vendors := new(MockVendorRepository)
		orders := new(MockPurchaseOrderRepository)
		service := NewTrustScoreService(vendors, orders, 10, zap.NewNop())
		vendor := createTestVendor(t)
		vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
		orders.On("FindDeliveredByVendor", mock.Anything, vendor.ID).Return(deliveredOrders(0, 0, 0), nil)
		vendors.On("SaveTrustScore", mock.Anything, vendor).Return(shared.ErrConcurrentModification)

		_, err := service.RecomputeTrustScore(ctx, vendor.ID, "admin-1", nil)
		assert.True(t, errors.Is(err, shared.ErrConcurrentModification))
	})
}
