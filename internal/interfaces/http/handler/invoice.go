package handler

import (
	"time"

	procurementapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles invoice and payment HTTP requests
type InvoiceHandler struct {
	BaseHandler
	invoiceService *procurementapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *procurementapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// InvoiceListQuery represents the query string of the invoice list
type InvoiceListQuery struct {
	Search          string     `form:"search"`
	VendorID        string     `form:"vendor_id" binding:"omitempty,uuid"`
	PurchaseOrderID string     `form:"purchase_order_id" binding:"omitempty,uuid"`
	Status          []string   `form:"status"`
	PaymentStatus   []string   `form:"payment_status"`
	From            *time.Time `form:"from" time_format:"2006-01-02"`
	To              *time.Time `form:"to" time_format:"2006-01-02"`
	Page            int        `form:"page" binding:"min=0"`
	PageSize        int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy         string     `form:"order_by"`
	OrderDir        string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Generate godoc
// @ID           generateInvoice
// @Summary      Generate the invoice of a purchase order
// @Description  One invoice per order; the order must be accepted, in progress or delivered
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body procurementapp.GenerateInvoiceRequest true "Invoice request"
// @Success      201 {object} dto.Response{data=procurementapp.InvoiceResponse}
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /invoices [post]
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var req procurementapp.GenerateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.invoiceService.Generate(c.Request.Context(), getActor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, inv)
}

// GetByID godoc
// @ID           getInvoice
// @Summary      Get invoice by ID
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.InvoiceResponse}
// @Failure      404 {object} dto.Response
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	h.respond(c)(h.invoiceService.GetByID(c.Request.Context(), id))
}

// GetByNumber godoc
// @ID           getInvoiceByNumber
// @Summary      Get invoice by number
// @Tags         invoices
// @Produce      json
// @Param        number path string true "Invoice number" example(INV-2026-000001)
// @Success      200 {object} dto.Response{data=procurementapp.InvoiceResponse}
// @Failure      404 {object} dto.Response
// @Router       /invoices/number/{number} [get]
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	h.respond(c)(h.invoiceService.GetByNumber(c.Request.Context(), c.Param("number")))
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices with a per-status summary
// @Description  payment_status=overdue selects unpaid invoices past their due date
// @Tags         invoices
// @Produce      json
// @Param        vendor_id query string false "Vendor ID" format(uuid)
// @Param        status query []string false "Invoice statuses" collectionFormat(multi)
// @Param        payment_status query []string false "Payment statuses" collectionFormat(multi)
// @Success      200 {object} dto.Response{data=procurementapp.InvoiceListResponse}
// @Failure      400 {object} dto.Response
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var q InvoiceListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	resp, err := h.invoiceService.List(c.Request.Context(), procurementapp.InvoiceListFilter{
		Search:          q.Search,
		VendorID:        optionalUUID(q.VendorID),
		PurchaseOrderID: optionalUUID(q.PurchaseOrderID),
		Statuses:        q.Status,
		PaymentStatuses: q.PaymentStatus,
		From:            q.From,
		To:              q.To,
		Page:            q.Page,
		PageSize:        q.PageSize,
		OrderBy:         q.OrderBy,
		OrderDir:        q.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RecordPayment godoc
// @ID           recordInvoicePayment
// @Summary      Apply a verified gateway payment
// @Description  Replaying a transaction_id is a no-op that returns the current invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body procurementapp.RecordPaymentRequest true "Payment"
// @Success      200 {object} dto.Response{data=procurementapp.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.invoiceService.RecordPayment(c.Request.Context(), id, getActor(c), req))
}

// MarkSent godoc
// @ID           sendInvoice
// @Summary      Mark an invoice as sent to the buyer
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.InvoiceResponse}
// @Failure      409 {object} dto.Response
// @Router       /invoices/{id}/send [post]
func (h *InvoiceHandler) MarkSent(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	h.respond(c)(h.invoiceService.MarkSent(c.Request.Context(), id, getActor(c)))
}

// Approve godoc
// @ID           approveInvoice
// @Summary      Approve an invoice for payment
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.InvoiceResponse}
// @Failure      409 {object} dto.Response
// @Router       /invoices/{id}/approve [post]
func (h *InvoiceHandler) Approve(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	h.respond(c)(h.invoiceService.Approve(c.Request.Context(), id, getActor(c)))
}

// Reject godoc
// @ID           rejectInvoice
// @Summary      Reject an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body procurementapp.RejectInvoiceRequest true "Reason"
// @Success      200 {object} dto.Response{data=procurementapp.InvoiceResponse}
// @Failure      409 {object} dto.Response
// @Router       /invoices/{id}/reject [post]
func (h *InvoiceHandler) Reject(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.RejectInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.invoiceService.Reject(c.Request.Context(), id, getActor(c), req))
}

// Cancel godoc
// @ID           cancelInvoice
// @Summary      Cancel an unpaid invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body procurementapp.CancelRequest false "Reason"
// @Success      200 {object} dto.Response{data=procurementapp.InvoiceResponse}
// @Failure      409 {object} dto.Response
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.CancelRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.invoiceService.Cancel(c.Request.Context(), id, getActor(c), req))
}

func (h *InvoiceHandler) respond(c *gin.Context) func(*procurementapp.InvoiceResponse, error) {
	return func(inv *procurementapp.InvoiceResponse, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, inv)
	}
}
