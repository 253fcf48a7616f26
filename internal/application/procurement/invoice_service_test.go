package procurement

import (
	"context"
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

type invoiceServiceFixture struct {
	orders   *MockPurchaseOrderRepository
	invoices *MockInvoiceRepository
	service  *InvoiceService
}

func newInvoiceServiceFixture() *invoiceServiceFixture {
	f := &invoiceServiceFixture{
		orders:   new(MockPurchaseOrderRepository),
		invoices: new(MockInvoiceRepository),
	}
	f.service = NewInvoiceService(f.invoices, f.orders, testNumbering(), DefaultDefaults(), zap.NewNop())
	f.service.now = func() time.Time { return fixedNow }
	return f
}

func TestInvoiceService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("bills the order and links the invoice back", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := acceptedTestOrder(t, uuid.New())
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.invoices.On("FindByPurchaseOrder", mock.Anything, po.ID).Return([]procurement.Invoice{}, nil)
		f.invoices.On("Create", mock.Anything, mock.AnythingOfType("*procurement.Invoice")).Return(nil)
		f.orders.On("SaveWithLock", mock.Anything, po).Return(nil)

		resp, err := f.service.Generate(ctx, "finance-1", GenerateInvoiceRequest{PurchaseOrderID: po.ID, Notes: "March batch"})
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-000001", resp.InvoiceNumber)
		assert.Equal(t, "generated", resp.Status)
		assert.Equal(t, "pending", resp.PaymentStatus)
		assert.Equal(t, "March batch", resp.Notes)
		assert.True(t, po.TotalAmount.Equal(resp.Financials.TotalAmount))
		require.NotNil(t, po.InvoiceID)
		assert.Equal(t, resp.ID, *po.InvoiceID)
		assert.Equal(t, resp.InvoiceNumber, po.InvoiceNumber)
	})

	t.Run("refuses a second invoice for the same order", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := acceptedTestOrder(t, uuid.New())
		existing := invoiceFor(t, po)
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.invoices.On("FindByPurchaseOrder", mock.Anything, po.ID).Return([]procurement.Invoice{*existing}, nil)

		_, err := f.service.Generate(ctx, "finance-1", GenerateInvoiceRequest{PurchaseOrderID: po.ID})
		assertCode(t, err, shared.CodeAlreadyExists)
		f.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("a cancelled invoice does not block a new one", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := acceptedTestOrder(t, uuid.New())
		cancelled := invoiceFor(t, po)
		require.NoError(t, cancelled.Cancel("wrong tax rate"))
		po.LinkInvoice(cancelled)
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.invoices.On("FindByPurchaseOrder", mock.Anything, po.ID).Return([]procurement.Invoice{*cancelled}, nil)
		f.invoices.On("Create", mock.Anything, mock.AnythingOfType("*procurement.Invoice")).Return(nil)
		f.orders.On("SaveWithLock", mock.Anything, po).Return(nil)

		resp, err := f.service.Generate(ctx, "finance-1", GenerateInvoiceRequest{PurchaseOrderID: po.ID})
		require.NoError(t, err)
		assert.NotEqual(t, cancelled.ID, resp.ID)
		require.NotNil(t, po.InvoiceID)
		assert.Equal(t, resp.ID, *po.InvoiceID)
		assert.Equal(t, resp.InvoiceNumber, po.InvoiceNumber)
	})

	t.Run("a failed order link keeps the committed invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := acceptedTestOrder(t, uuid.New())
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.invoices.On("FindByPurchaseOrder", mock.Anything, po.ID).Return([]procurement.Invoice{}, nil)
		f.invoices.On("Create", mock.Anything, mock.AnythingOfType("*procurement.Invoice")).Return(nil)
		f.orders.On("SaveWithLock", mock.Anything, po).Return(shared.ErrConcurrentModification)

		resp, err := f.service.Generate(ctx, "finance-1", GenerateInvoiceRequest{PurchaseOrderID: po.ID})
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-000001", resp.InvoiceNumber)
		f.invoices.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("draft orders are not invoiceable", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := createTestOrder(t, uuid.New(), "5000")
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.invoices.On("FindByPurchaseOrder", mock.Anything, po.ID).Return([]procurement.Invoice{}, nil)

		_, err := f.service.Generate(ctx, "finance-1", GenerateInvoiceRequest{PurchaseOrderID: po.ID})
		assertCode(t, err, shared.CodeInvalidTransition)
	})

	t.Run("retries the number and the order link", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := acceptedTestOrder(t, uuid.New())
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.invoices.On("FindByPurchaseOrder", mock.Anything, po.ID).Return([]procurement.Invoice{}, nil)
		f.invoices.On("Create", mock.Anything, mock.AnythingOfType("*procurement.Invoice")).Return(procurement.ErrNumberingConflict).Once()
		f.invoices.On("Create", mock.Anything, mock.AnythingOfType("*procurement.Invoice")).Return(nil).Once()
		f.orders.On("SaveWithLock", mock.Anything, po).Return(shared.ErrConcurrentModification).Once()
		f.orders.On("SaveWithLock", mock.Anything, po).Return(nil).Once()

		resp, err := f.service.Generate(ctx, "finance-1", GenerateInvoiceRequest{PurchaseOrderID: po.ID})
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-000002", resp.InvoiceNumber)
		f.orders.AssertNumberOfCalls(t, "SaveWithLock", 2)
		f.orders.AssertNumberOfCalls(t, "FindByID", 2)
	})
}

func TestInvoiceService_RecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("full payment settles the invoice and mirrors onto the order", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := deliveredTestOrder(t, uuid.New())
		inv := invoiceFor(t, po)
		po.LinkInvoice(inv)

		f.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		f.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)
		f.orders.On("SaveWithLock", mock.Anything, po).Return(nil)

		resp, err := f.service.RecordPayment(ctx, inv.ID, "gateway", RecordPaymentRequest{
			Amount: po.TotalAmount, Method: "upi", TransactionID: "TXN-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "paid", resp.Status)
		assert.Equal(t, "paid", resp.PaymentStatus)
		assert.Equal(t, "Paid", resp.PaymentStage)
		require.Len(t, resp.Payments, 1)
		assert.True(t, po.PaidAmount.Equal(po.TotalAmount))
		assert.Equal(t, procurement.PaymentStatusPaid, po.PaymentStatus)
	})

	t.Run("replayed transaction id is a no-op", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := deliveredTestOrder(t, uuid.New())
		inv := invoiceFor(t, po)
		_, err := inv.RecordPayment(procurement.PaymentInput{Amount: dec("100"), Method: "upi", TransactionID: "TXN-1"}, "gateway", fixedNow)
		require.NoError(t, err)
		f.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

		resp, err := f.service.RecordPayment(ctx, inv.ID, "gateway", RecordPaymentRequest{
			Amount: dec("100"), Method: "upi", TransactionID: "TXN-1",
		})
		require.NoError(t, err)
		require.Len(t, resp.Payments, 1)
		assert.True(t, dec("100").Equal(resp.Financials.PaidAmount))
		f.invoices.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		f.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("overpayment is rejected", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := deliveredTestOrder(t, uuid.New())
		inv := invoiceFor(t, po)
		f.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

		_, err := f.service.RecordPayment(ctx, inv.ID, "gateway", RecordPaymentRequest{
			Amount: po.TotalAmount.Add(dec("0.01")), Method: "upi", TransactionID: "TXN-2",
		})
		assertCode(t, err, procurement.CodeOverpaymentRejected)
		assert.Empty(t, inv.Payments)
		f.invoices.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("concurrent duplicate insert returns the stored invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := deliveredTestOrder(t, uuid.New())
		inv := invoiceFor(t, po)
		stored := invoiceFor(t, po)
		stored.ID = inv.ID
		_, err := stored.RecordPayment(procurement.PaymentInput{Amount: dec("100"), Method: "upi", TransactionID: "TXN-3"}, "gateway", fixedNow)
		require.NoError(t, err)

		f.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil).Once()
		f.invoices.On("SaveWithLock", mock.Anything, inv).Return(procurement.ErrDuplicatePayment)
		f.invoices.On("FindByID", mock.Anything, inv.ID).Return(stored, nil).Once()

		resp, err := f.service.RecordPayment(ctx, inv.ID, "gateway", RecordPaymentRequest{
			Amount: dec("100"), Method: "upi", TransactionID: "TXN-3",
		})
		require.NoError(t, err)
		require.Len(t, resp.Payments, 1)
		assert.Equal(t, "partial", resp.PaymentStatus)
		f.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("version conflict reloads and reapplies", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := deliveredTestOrder(t, uuid.New())
		first := invoiceFor(t, po)
		second := invoiceFor(t, po)
		second.ID = first.ID

		f.invoices.On("FindByID", mock.Anything, first.ID).Return(first, nil).Once()
		f.invoices.On("FindByID", mock.Anything, first.ID).Return(second, nil).Once()
		f.invoices.On("SaveWithLock", mock.Anything, first).Return(shared.ErrConcurrentModification).Once()
		f.invoices.On("SaveWithLock", mock.Anything, second).Return(nil).Once()
		f.orders.On("FindByID", mock.Anything, po.ID).Return(nil, shared.ErrNotFound)

		resp, err := f.service.RecordPayment(ctx, first.ID, "gateway", RecordPaymentRequest{
			Amount: dec("200"), Method: "card", TransactionID: "TXN-4",
		})
		require.NoError(t, err)
		require.Len(t, resp.Payments, 1)
		assert.True(t, dec("200").Equal(resp.Financials.PaidAmount))
		f.invoices.AssertNumberOfCalls(t, "SaveWithLock", 2)
	})

	t.Run("terminal order is not touched", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		po := deliveredTestOrder(t, uuid.New())
		inv := invoiceFor(t, po)
		po.LinkInvoice(inv)
		require.NoError(t, po.Cancel("admin-1", "vendor closed"))

		f.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		f.invoices.On("SaveWithLock", mock.Anything, inv).Return(nil)
		f.orders.On("FindByID", mock.Anything, po.ID).Return(po, nil)

		_, err := f.service.RecordPayment(ctx, inv.ID, "gateway", RecordPaymentRequest{
			Amount: dec("50"), Method: "upi", TransactionID: "TXN-5",
		})
		require.NoError(t, err)
		f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_ListPayments(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceServiceFixture()
	vendorID := uuid.New()
	po := deliveredTestOrder(t, vendorID)

	paid := invoiceFor(t, po)
	_, err := paid.RecordPayment(procurement.PaymentInput{Amount: paid.TotalAmount, Method: "upi", TransactionID: "TXN-P"}, "gateway", fixedNow)
	require.NoError(t, err)
	partial := invoiceFor(t, po)
	_, err = partial.RecordPayment(procurement.PaymentInput{Amount: dec("44"), Method: "upi", TransactionID: "TXN-Q"}, "gateway", fixedNow)
	require.NoError(t, err)
	approved := invoiceFor(t, po)
	require.NoError(t, approved.Approve("finance-2"))

	f.invoices.On("FindAll", mock.Anything, mock.MatchedBy(func(filter procurement.InvoiceFilter) bool {
		return filter.VendorID != nil && *filter.VendorID == vendorID && len(filter.Statuses) == len(payableInvoiceStatuses)
	})).Return([]procurement.Invoice{*paid, *partial, *approved}, int64(3), nil)

	resp, err := f.service.ListPayments(ctx, vendorID)
	require.NoError(t, err)
	require.Len(t, resp.Completed, 1)
	require.Len(t, resp.Pending, 2)
	assert.Equal(t, "Paid", resp.Completed[0].Stage)
	assert.Equal(t, "Partially Paid", resp.Pending[0].Stage)
	assert.Equal(t, "Payment Scheduled", resp.Pending[1].Stage)
	assert.True(t, dec("2832").Equal(resp.TotalInvoiced), resp.TotalInvoiced.String())
	assert.True(t, dec("988").Equal(resp.TotalPaid), resp.TotalPaid.String())
	assert.True(t, dec("1844").Equal(resp.TotalPending), resp.TotalPending.String())
}

func TestInvoiceService_List_OverdueFilter(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceServiceFixture()
	f.invoices.On("FindAll", mock.Anything, mock.MatchedBy(func(filter procurement.InvoiceFilter) bool {
		return filter.OverdueAt != nil && filter.OverdueAt.Equal(fixedNow) && len(filter.PaymentStatuses) == 0
	})).Return([]procurement.Invoice{}, int64(0), nil)
	f.invoices.On("SummarizeByStatus", mock.Anything, uuid.Nil).Return([]procurement.InvoiceSummary{
		{Status: procurement.InvoiceStatusGenerated, Count: 2, TotalAmount: dec("1888"), PaidAmount: dec("0"), DueAmount: dec("1888")},
	}, nil)

	resp, err := f.service.List(ctx, InvoiceListFilter{PaymentStatuses: []string{"overdue"}})
	require.NoError(t, err)
	assert.Empty(t, resp.Invoices)
	require.Len(t, resp.Summary, 1)
	assert.Equal(t, "generated", resp.Summary[0].Status)

	_, err = f.service.List(ctx, InvoiceListFilter{PaymentStatuses: []string{"settled"}})
	assertCode(t, err, shared.CodeValidation)
}

func TestInvoiceService_SweepOverdue(t *testing.T) {
	ctx := context.Background()

	t.Run("stores overdue status and skips invoices changed meanwhile", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		f.service.now = func() time.Time { return fixedNow.AddDate(0, 0, 45) }

		stale := invoiceFor(t, deliveredTestOrder(t, uuid.New()))
		busy := invoiceFor(t, deliveredTestOrder(t, uuid.New()))
		busy.InvoiceNumber = "INV-2026-000002"

		f.invoices.On("FindAll", mock.Anything, mock.MatchedBy(func(filter procurement.InvoiceFilter) bool {
			return filter.OverdueAt != nil && filter.Page == 1 &&
				len(filter.PaymentStatuses) == 1 && filter.PaymentStatuses[0] == procurement.PaymentStatusPending
		})).Return([]procurement.Invoice{*stale, *busy}, int64(2), nil)
		f.invoices.On("SaveWithLock", mock.Anything, mock.MatchedBy(func(inv *procurement.Invoice) bool {
			return inv.ID == stale.ID
		})).Return(nil)
		f.invoices.On("SaveWithLock", mock.Anything, mock.MatchedBy(func(inv *procurement.Invoice) bool {
			return inv.ID == busy.ID
		})).Return(shared.ErrConcurrentModification)

		swept, err := f.service.SweepOverdue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, swept)
		f.invoices.AssertNumberOfCalls(t, "SaveWithLock", 2)
	})

	t.Run("nothing is saved before the due date", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := invoiceFor(t, deliveredTestOrder(t, uuid.New()))
		f.invoices.On("FindAll", mock.Anything, mock.Anything).Return([]procurement.Invoice{*inv}, int64(1), nil)

		swept, err := f.service.SweepOverdue(ctx)
		require.NoError(t, err)
		assert.Zero(t, swept)
		f.invoices.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("repository failure aborts the sweep", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		f.invoices.On("FindAll", mock.Anything, mock.Anything).Return(nil, int64(0), assert.AnError)

		_, err := f.service.SweepOverdue(ctx)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
