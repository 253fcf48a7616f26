package handler

import (
	procurementapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// VendorHandler serves the vendor registry and the vendor-facing read models
type VendorHandler struct {
	BaseHandler
	vendorService     *procurementapp.VendorService
	dashboardService  *procurementapp.DashboardService
	trustScoreService *procurementapp.TrustScoreService
	invoiceService    *procurementapp.InvoiceService
}

// NewVendorHandler creates a new VendorHandler
func NewVendorHandler(
	vendorService *procurementapp.VendorService,
	dashboardService *procurementapp.DashboardService,
	trustScoreService *procurementapp.TrustScoreService,
	invoiceService *procurementapp.InvoiceService,
) *VendorHandler {
	return &VendorHandler{
		vendorService:     vendorService,
		dashboardService:  dashboardService,
		trustScoreService: trustScoreService,
		invoiceService:    invoiceService,
	}
}

// RecomputeTrustScoreRequest optionally overrides the invoice accuracy input
type RecomputeTrustScoreRequest struct {
	InvoiceAccuracy *int `json:"invoice_accuracy" binding:"omitempty,min=0,max=100"`
}

// Create godoc
// @ID           createVendor
// @Summary      Register a vendor
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        request body procurementapp.CreateVendorRequest true "Vendor"
// @Success      201 {object} dto.Response{data=procurementapp.VendorResponse}
// @Failure      400 {object} dto.Response
// @Router       /vendors [post]
func (h *VendorHandler) Create(c *gin.Context) {
	var req procurementapp.CreateVendorRequest
	if !h.bindJSON(c, &req) {
		return
	}

	vendor, err := h.vendorService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, vendor)
}

// GetByID godoc
// @ID           getVendor
// @Summary      Get vendor by ID
// @Tags         vendors
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.VendorResponse}
// @Failure      404 {object} dto.Response
// @Router       /vendors/{id} [get]
func (h *VendorHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	vendor, err := h.vendorService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, vendor)
}

// List godoc
// @ID           listVendors
// @Summary      List vendors
// @Tags         vendors
// @Produce      json
// @Param        search query string false "Name search"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]procurementapp.VendorResponse}
// @Router       /vendors [get]
func (h *VendorHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if !h.bindQuery(c, &req) {
		return
	}
	req.Normalize()

	vendors, total, err := h.vendorService.List(c.Request.Context(), req.Page, req.PageSize, req.Search)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, vendors, total, req.Page, req.PageSize)
}

// GetDashboard godoc
// @ID           getVendorDashboard
// @Summary      Vendor dashboard
// @Description  Order counts, revenue, pending payments, a 7-day series and alerts
// @Tags         vendors
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.DashboardResponse}
// @Failure      404 {object} dto.Response
// @Router       /vendors/{id}/dashboard [get]
func (h *VendorHandler) GetDashboard(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.dashboardService.GetDashboard(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetPerformance godoc
// @ID           getVendorPerformance
// @Summary      Vendor performance summary
// @Tags         vendors
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.PerformanceResponse}
// @Failure      404 {object} dto.Response
// @Router       /vendors/{id}/performance [get]
func (h *VendorHandler) GetPerformance(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.dashboardService.GetPerformance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetNotifications godoc
// @ID           getVendorNotifications
// @Summary      Vendor notification feed
// @Tags         vendors
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]procurementapp.NotificationResponse}
// @Failure      404 {object} dto.Response
// @Router       /vendors/{id}/notifications [get]
func (h *VendorHandler) GetNotifications(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.dashboardService.GetNotifications(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetAuditFeed godoc
// @ID           getVendorAuditFeed
// @Summary      Vendor audit feed, newest first
// @Tags         vendors
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]procurementapp.AuditEntryResponse}
// @Failure      404 {object} dto.Response
// @Router       /vendors/{id}/audit [get]
func (h *VendorHandler) GetAuditFeed(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	req := dto.DefaultListRequest()
	if !h.bindQuery(c, &req) {
		return
	}
	req.Normalize()

	feed, err := h.dashboardService.GetAuditFeed(c.Request.Context(), id, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, feed.Items, feed.Total, feed.Page, feed.PageSize)
}

// ListPayments godoc
// @ID           listVendorPayments
// @Summary      Vendor payments view
// @Description  Invoices split into pending and completed with invoiced, paid and pending totals
// @Tags         vendors
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.PaymentListResponse}
// @Router       /vendors/{id}/payments [get]
func (h *VendorHandler) ListPayments(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.invoiceService.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RecomputeTrustScore godoc
// @ID           recomputeVendorTrustScore
// @Summary      Recompute the vendor trust score from delivery history
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        id path string true "Vendor ID" format(uuid)
// @Param        request body RecomputeTrustScoreRequest false "Inputs"
// @Success      200 {object} dto.Response{data=procurementapp.TrustScoreResponse}
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /vendors/{id}/trust-score [post]
func (h *VendorHandler) RecomputeTrustScore(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req RecomputeTrustScoreRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.trustScoreService.RecomputeTrustScore(c.Request.Context(), id, getActor(c), req.InvoiceAccuracy)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
