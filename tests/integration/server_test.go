//go:build integration

package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	procurementapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/infrastructure/event"
	"github.com/erp/procurement/internal/infrastructure/persistence"
	"github.com/erp/procurement/internal/interfaces/http/handler"
	"github.com/erp/procurement/internal/interfaces/http/middleware"
	"github.com/erp/procurement/internal/interfaces/http/router"
	"github.com/erp/procurement/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ProcurementTestServer wires the full procurement stack onto a test database
type ProcurementTestServer struct {
	DB        *TestDB
	Engine    *gin.Engine
	Orders    *persistence.GormPurchaseOrderRepository
	Invoices  *persistence.GormInvoiceRepository
	Numbering *procurement.NumberingAuthority
	Bus       *event.InMemoryEventBus
	Processor *event.OutboxProcessor
	Events    *testutil.EventRecorder
}

// NewProcurementTestServer builds repositories, services and routes the way the
// server binary does, with an outbox processor that tests drive by hand.
func NewProcurementTestServer(t *testing.T) *ProcurementTestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
	testDB := NewTestDB(t)
	log := zap.NewNop()

	serializer := event.NewEventSerializer()
	event.RegisterProcurementEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer, 5)

	orderRepo := persistence.NewGormPurchaseOrderRepository(testDB.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(testDB.DB)
	vendorRepo := persistence.NewGormVendorRepository(testDB.DB)
	orderRepo.SetOutboxEventSaver(publisher)
	invoiceRepo.SetOutboxEventSaver(publisher)
	vendorRepo.SetOutboxEventSaver(publisher)

	numbering := procurement.NewNumberingAuthority(persistence.NewCounterRepository(testDB.DB))
	defaults := procurementapp.DefaultDefaults()

	orderService := procurementapp.NewPurchaseOrderService(orderRepo, vendorRepo, invoiceRepo, numbering, defaults, log)
	invoiceService := procurementapp.NewInvoiceService(invoiceRepo, orderRepo, numbering, defaults, log)
	vendorService := procurementapp.NewVendorService(vendorRepo, log)
	trustScoreService := procurementapp.NewTrustScoreService(vendorRepo, orderRepo, 10, log)
	dashboardService := procurementapp.NewDashboardService(orderRepo, invoiceRepo, vendorRepo, log)

	recorder := testutil.NewEventRecorder()
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(procurementapp.NewTrustScoreHandler(trustScoreService, log))
	bus.Subscribe(recorder)
	require.NoError(t, bus.Start(t.Context()))

	processorConfig := event.DefaultOutboxProcessorConfig()
	processorConfig.Workers = 2
	processor := event.NewOutboxProcessor(event.NewGormOutboxRepository(testDB.DB), bus, serializer, processorConfig, log)

	handlers := router.Handlers{
		PurchaseOrders: handler.NewPurchaseOrderHandler(orderService),
		Invoices:       handler.NewInvoiceHandler(invoiceService),
		Vendors:        handler.NewVendorHandler(vendorService, dashboardService, trustScoreService, invoiceService),
		System:         handler.NewSystemHandler("procurement", "test"),
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Principal())
	engine.GET("/health", handlers.System.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterProcurementRoutes(r, handlers)
	r.Setup()

	return &ProcurementTestServer{
		DB:        testDB,
		Engine:    engine,
		Orders:    orderRepo,
		Invoices:  invoiceRepo,
		Numbering: numbering,
		Bus:       bus,
		Processor: processor,
		Events:    recorder,
	}
}

// apiResponse mirrors the response envelope with the payload left raw
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Request sends a request as testutil.TestUserID to /api/v1 + path
func (ts *ProcurementTestServer) Request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	reader := io.Reader(http.NoBody)
	if body != nil {
		reader = testutil.ToJSONReader(t, body)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range testutil.PrincipalHeaders(testutil.TestUserID, "buyer") {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Engine.ServeHTTP(w, req)
	return w
}

// Do sends a request, checks the status and decodes data into out
func (ts *ProcurementTestServer) Do(t *testing.T, method, path string, body any, wantStatus int, out any) apiResponse {
	t.Helper()

	w := ts.Request(t, method, path, body)
	require.Equal(t, wantStatus, w.Code, "%s %s: %s", method, path, w.Body.String())

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if out != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
	return resp
}

// ErrorCode sends a request expecting wantStatus and returns the error code
func (ts *ProcurementTestServer) ErrorCode(t *testing.T, method, path string, body any, wantStatus int) string {
	t.Helper()

	resp := ts.Do(t, method, path, body, wantStatus, nil)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

// DrainOutbox relays every pending outbox entry to the bus
func (ts *ProcurementTestServer) DrainOutbox(t *testing.T) {
	t.Helper()
	ts.Processor.ProcessBatch(t.Context())
}
