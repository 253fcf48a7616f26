package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/erp/procurement/internal/interfaces/http/middleware"
	"github.com/erp/procurement/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByPONumber(ctx context.Context, number string) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.PurchaseOrderFilter) ([]procurement.PurchaseOrder, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]procurement.PurchaseOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseOrderRepository) FindDeliveredByVendor(ctx context.Context, vendorID uuid.UUID) ([]procurement.PurchaseOrder, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Create(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SummarizeByStatus(ctx context.Context, vendorID uuid.UUID) ([]procurement.StatusSummary, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.StatusSummary), args.Error(1)
}

func (m *MockPurchaseOrderRepository) SummarizeByDay(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]procurement.DailySummary, error) {
	args := m.Called(ctx, vendorID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.DailySummary), args.Error(1)
}

func (m *MockPurchaseOrderRepository) CountFailedQualityChecks(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseOrderRepository) CountOpenCounterOffers(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).(int64), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByInvoiceNumber(ctx context.Context, number string) (*procurement.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]procurement.Invoice, error) {
	args := m.Called(ctx, purchaseOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter procurement.InvoiceFilter) ([]procurement.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]procurement.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *procurement.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *procurement.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SummarizeByStatus(ctx context.Context, vendorID uuid.UUID) ([]procurement.InvoiceSummary, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.InvoiceSummary), args.Error(1)
}

// MockVendorRepository is a mock implementation of VendorRepository
type MockVendorRepository struct {
	mock.Mock
}

func (m *MockVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.Vendor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.Vendor), args.Error(1)
}

func (m *MockVendorRepository) FindAll(ctx context.Context, filter shared.Filter) ([]procurement.Vendor, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]procurement.Vendor), args.Get(1).(int64), args.Error(2)
}

func (m *MockVendorRepository) Create(ctx context.Context, vendor *procurement.Vendor) error {
	args := m.Called(ctx, vendor)
	return args.Error(0)
}

func (m *MockVendorRepository) SaveTrustScore(ctx context.Context, vendor *procurement.Vendor) error {
	args := m.Called(ctx, vendor)
	return args.Error(0)
}

// counterSequence hands out consecutive values per series
type counterSequence struct {
	mu     sync.Mutex
	values map[string]int64
}

func newCounterSequence() *counterSequence {
	return &counterSequence{values: make(map[string]int64)}
}

func (s *counterSequence) Next(_ context.Context, docType procurement.DocumentType, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s/%d", docType, year)
	s.values[key]++
	return s.values[key], nil
}

var fixedNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func testNumbering() *procurement.NumberingAuthority {
	return procurement.NewNumberingAuthority(newCounterSequence()).WithClock(func() time.Time { return fixedNow })
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func createTestVendor(t *testing.T) *procurement.Vendor {
	t.Helper()
	v, err := procurement.NewVendor("Kerala Auto Spares", "orders@kas.example")
	require.NoError(t, err)
	return v
}

// createTestOrder builds a 944.00 order (3 x 100 + 1 x 500, tax 114, shipping 50, discount 20)
func createTestOrder(t *testing.T, vendorID uuid.UUID, threshold string) *procurement.PurchaseOrder {
	t.Helper()
	th := dec(threshold)
	po, err := procurement.NewPurchaseOrder(procurement.NewPurchaseOrderInput{
		VendorID:    vendorID,
		VendorName:  "Kerala Auto Spares",
		DepotID:     uuid.New(),
		RequestedBy: "depot-manager-1",
		Items: []procurement.ItemInput{
			{SparePartID: uuid.New(), PartNumber: "BRK-001", PartName: "Brake Pad", Quantity: 3, UnitPrice: dec("100")},
			{SparePartID: uuid.New(), PartNumber: "CLT-010", PartName: "Clutch Plate", Quantity: 1, UnitPrice: dec("500")},
		},
		Tax:               procurement.Tax{Total: dec("114")},
		ShippingCharges:   dec("50"),
		Discount:          dec("20"),
		ApprovalThreshold: &th,
	})
	require.NoError(t, err)
	require.NoError(t, po.AssignNumber("PO-2026-000001"))
	po.ClearDomainEvents()
	return po
}

func acceptedTestOrder(t *testing.T, vendorID uuid.UUID) *procurement.PurchaseOrder {
	t.Helper()
	po := createTestOrder(t, vendorID, "5000")
	require.NoError(t, po.Submit("depot-manager-1"))
	require.NoError(t, po.RecordVendorResponse(procurement.VendorResponseInput{Status: procurement.VendorResponseAccepted}, "vendor-1"))
	po.ClearDomainEvents()
	return po
}

func deliveredTestOrder(t *testing.T, vendorID uuid.UUID) *procurement.PurchaseOrder {
	t.Helper()
	po := acceptedTestOrder(t, vendorID)
	lines := make([]procurement.DeliveryLine, len(po.Items))
	for i, item := range po.Items {
		lines[i] = procurement.DeliveryLine{ItemID: item.ID, QuantityReceived: item.Quantity, QuantityAccepted: item.Quantity}
	}
	require.NoError(t, po.RecordDelivery(lines, fixedNow, "storekeeper-1"))
	require.Equal(t, procurement.POStatusDelivered, po.Status)
	po.ClearDomainEvents()
	return po
}

func invoiceFor(t *testing.T, po *procurement.PurchaseOrder) *procurement.Invoice {
	t.Helper()
	inv, err := procurement.GenerateInvoice(po, "INV-2026-000001", fixedNow, "finance-1")
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

// newTestEngine mirrors the production middleware that handlers rely on
func newTestEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Principal())
	return engine
}

// doJSON performs a request as the given principal; an empty principal sends no identity headers
func doJSON(t *testing.T, engine *gin.Engine, method, path, principal string, body any) *httptest.ResponseRecorder {
	t.Helper()
	reader := io.Reader(http.NoBody)
	if body != nil {
		reader = testutil.ToJSONReader(t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		for k, v := range testutil.PrincipalHeaders(principal, "depot_manager") {
			req.Header.Set(k, v)
		}
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// decodeResponse unwraps the envelope and decodes data into out when given
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(raw.Data, out), w.Body.String())
	}
	return raw.Response
}
