package handler

import (
	"net/http"
	"testing"

	procurementapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/erp/procurement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type poHandlerFixture struct {
	orders   *MockPurchaseOrderRepository
	vendors  *MockVendorRepository
	invoices *MockInvoiceRepository
	engine   *gin.Engine
}

func newPOHandlerFixture() *poHandlerFixture {
	f := &poHandlerFixture{
		orders:   new(MockPurchaseOrderRepository),
		vendors:  new(MockVendorRepository),
		invoices: new(MockInvoiceRepository),
	}
	service := procurementapp.NewPurchaseOrderService(f.orders, f.vendors, f.invoices, testNumbering(), procurementapp.DefaultDefaults(), zap.NewNop())
	h := NewPurchaseOrderHandler(service)

	f.engine = newTestEngine()
	principal := middleware.RequirePrincipal()
	g := f.engine.Group("/api/v1/purchase-orders")
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.GET("/number/:number", h.GetByNumber)
	g.POST("", principal, h.Create)
	g.POST("/:id/submit", principal, h.Submit)
	g.POST("/:id/vendor-response", principal, h.VendorResponse)
	g.POST("/:id/counter-offer/apply", principal, h.ApplyCounterOffer)
	g.POST("/:id/cancel", principal, h.Cancel)
	return f
}

func createBody(vendorID uuid.UUID) map[string]any {
	return map[string]any{
		"vendor_id":  vendorID,
		"depot_id":   uuid.New(),
		"depot_name": "Ernakulam Depot",
		"items": []map[string]any{
			{"spare_part_id": uuid.New(), "part_name": "Brake Pad", "quantity": 3, "unit_price": "100"},
		},
		"shipping_charges": "50",
	}
}

func TestPurchaseOrderHandler_Create(t *testing.T) {
	t.Run("creates a draft with a fresh number", func(t *testing.T) {
		f := newPOHandlerFixture()
		vendor := createTestVendor(t)
		f.vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
		f.orders.On("Create", mock.Anything, mock.AnythingOfType("*procurement.PurchaseOrder")).Return(nil)

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders", "depot-manager-1", createBody(vendor.ID))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var order procurementapp.PurchaseOrderResponse
		resp := decodeResponse(t, w, &order)
		assert.True(t, resp.Success)
		assert.Equal(t, "PO-2026-000001", order.PONumber)
		assert.Equal(t, "draft", order.Status)
		assert.Equal(t, vendor.Name, order.VendorName)
		f.orders.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("requires_approval is carried onto the draft", func(t *testing.T) {
		f := newPOHandlerFixture()
		vendor := createTestVendor(t)
		f.vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
		f.orders.On("Create", mock.Anything, mock.AnythingOfType("*procurement.PurchaseOrder")).Return(nil)
		body := createBody(vendor.ID)
		body["requires_approval"] = true

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders", "depot-manager-1", body)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var order procurementapp.PurchaseOrderResponse
		decodeResponse(t, w, &order)
		assert.True(t, order.RequiresApproval)
	})

	t.Run("missing items is a validation error", func(t *testing.T) {
		f := newPOHandlerFixture()
		body := createBody(uuid.New())
		delete(body, "items")

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders", "depot-manager-1", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w, nil)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error.Details)
		f.vendors.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("anonymous callers are refused", func(t *testing.T) {
		f := newPOHandlerFixture()

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders", "", createBody(uuid.New()))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown vendor", func(t *testing.T) {
		f := newPOHandlerFixture()
		vendorID := uuid.New()
		f.vendors.On("FindByID", mock.Anything, vendorID).Return(nil, shared.ErrNotFound)

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders", "depot-manager-1", createBody(vendorID))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w, nil).Error.Code)
	})

	t.Run("exhausted numbering is service unavailable", func(t *testing.T) {
		f := newPOHandlerFixture()
		vendor := createTestVendor(t)
		f.vendors.On("FindByID", mock.Anything, vendor.ID).Return(vendor, nil)
		f.orders.On("Create", mock.Anything, mock.AnythingOfType("*procurement.PurchaseOrder")).Return(procurement.ErrNumberingConflict)

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders", "depot-manager-1", createBody(vendor.ID))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeServiceUnavailable, decodeResponse(t, w, nil).Error.Code)
	})
}

func TestPurchaseOrderHandler_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		f := newPOHandlerFixture()
		po := createTestOrder(t, uuid.New(), "5000")
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)

		w := doJSON(t, f.engine, http.MethodGet, "/api/v1/purchase-orders/"+po.ID.String(), "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var order procurementapp.PurchaseOrderResponse
		decodeResponse(t, w, &order)
		assert.Equal(t, po.ID, order.ID)
		assert.Len(t, order.Items, 2)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newPOHandlerFixture()

		w := doJSON(t, f.engine, http.MethodGet, "/api/v1/purchase-orders/not-a-uuid", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w, nil).Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		f := newPOHandlerFixture()
		id := uuid.New()
		f.orders.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := doJSON(t, f.engine, http.MethodGet, "/api/v1/purchase-orders/"+id.String(), "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPurchaseOrderHandler_GetByNumber(t *testing.T) {
	f := newPOHandlerFixture()
	po := createTestOrder(t, uuid.New(), "5000")
	f.orders.On("FindByPONumber", mock.Anything, "PO-2026-000001").Return(po, nil)

	w := doJSON(t, f.engine, http.MethodGet, "/api/v1/purchase-orders/number/PO-2026-000001", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var order procurementapp.PurchaseOrderResponse
	decodeResponse(t, w, &order)
	assert.Equal(t, "PO-2026-000001", order.PONumber)
}

func TestPurchaseOrderHandler_List(t *testing.T) {
	t.Run("returns pagination meta", func(t *testing.T) {
		f := newPOHandlerFixture()
		vendorID := uuid.New()
		po := createTestOrder(t, vendorID, "5000")
		f.orders.On("FindAll", mock.Anything, mock.MatchedBy(func(filter procurement.PurchaseOrderFilter) bool {
			return filter.VendorID != nil && *filter.VendorID == vendorID && filter.Page == 2 && filter.PageSize == 10
		})).Return([]procurement.PurchaseOrder{*po}, int64(11), nil)

		w := doJSON(t, f.engine, http.MethodGet, "/api/v1/purchase-orders?vendor_id="+vendorID.String()+"&page=2&page_size=10", "", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var items []procurementapp.PurchaseOrderListItemResponse
		resp := decodeResponse(t, w, &items)
		require.Len(t, items, 1)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(11), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 10, resp.Meta.PageSize)
		assert.Equal(t, 2, resp.Meta.TotalPages)
	})

	t.Run("malformed vendor filter", func(t *testing.T) {
		f := newPOHandlerFixture()

		w := doJSON(t, f.engine, http.MethodGet, "/api/v1/purchase-orders?vendor_id=abc", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newPOHandlerFixture()

		w := doJSON(t, f.engine, http.MethodGet, "/api/v1/purchase-orders?status=shipped", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w, nil).Error.Code)
	})
}

func TestPurchaseOrderHandler_Submit(t *testing.T) {
	t.Run("below threshold goes straight to pending", func(t *testing.T) {
		f := newPOHandlerFixture()
		po := createTestOrder(t, uuid.New(), "5000")
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.orders.On("SaveWithLock", mock.Anything, po).Return(nil)

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/submit", "depot-manager-1", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var order procurementapp.PurchaseOrderResponse
		decodeResponse(t, w, &order)
		assert.Equal(t, string(procurement.POStatusPending), order.Status)
	})

	t.Run("invalid transition is a conflict", func(t *testing.T) {
		f := newPOHandlerFixture()
		po := acceptedTestOrder(t, uuid.New())
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/submit", "depot-manager-1", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidTransition, decodeResponse(t, w, nil).Error.Code)
		f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("lost optimistic lock is a conflict", func(t *testing.T) {
		f := newPOHandlerFixture()
		po := createTestOrder(t, uuid.New(), "5000")
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.orders.On("SaveWithLock", mock.Anything, po).Return(shared.ErrConcurrentModification)

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/submit", "depot-manager-1", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeConcurrencyConflict, decodeResponse(t, w, nil).Error.Code)
	})
}

func TestPurchaseOrderHandler_VendorResponse(t *testing.T) {
	f := newPOHandlerFixture()
	po := createTestOrder(t, uuid.New(), "5000")
	require.NoError(t, po.Submit("depot-manager-1"))
	po.ClearDomainEvents()
	f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
	f.orders.On("SaveWithLock", mock.Anything, po).Return(nil)

	t.Run("unknown response status", func(t *testing.T) {
		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/vendor-response", "vendor-1",
			map[string]any{"status": "maybe"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("acceptance", func(t *testing.T) {
		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/vendor-response", "vendor-1",
			map[string]any{"status": "accepted", "message": "Dispatching Monday"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var order procurementapp.PurchaseOrderResponse
		decodeResponse(t, w, &order)
		assert.Equal(t, string(procurement.POStatusAccepted), order.Status)
	})
}

func TestPurchaseOrderHandler_ApplyCounterOffer(t *testing.T) {
	f := newPOHandlerFixture()
	po := createTestOrder(t, uuid.New(), "5000")
	f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/counter-offer/apply", "depot-manager-1", nil)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, dto.ErrCodeNotImplemented, decodeResponse(t, w, nil).Error.Code)
	f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestPurchaseOrderHandler_Cancel(t *testing.T) {
	t.Run("without a body", func(t *testing.T) {
		f := newPOHandlerFixture()
		po := createTestOrder(t, uuid.New(), "5000")
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.orders.On("SaveWithLock", mock.Anything, po).Return(nil)

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/cancel", "depot-manager-1", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var order procurementapp.PurchaseOrderResponse
		decodeResponse(t, w, &order)
		assert.Equal(t, string(procurement.POStatusCancelled), order.Status)
	})

	t.Run("cancelled orders are immutable", func(t *testing.T) {
		f := newPOHandlerFixture()
		po := createTestOrder(t, uuid.New(), "5000")
		require.NoError(t, po.Cancel("depot-manager-1", "duplicate"))
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)

		w := doJSON(t, f.engine, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/cancel", "depot-manager-1",
			map[string]any{"reason": "too late"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeImmutableRecord, decodeResponse(t, w, nil).Error.Code)
		f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}
