package handler

import (
	"time"

	procurementapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseOrderHandler handles purchase order HTTP requests
type PurchaseOrderHandler struct {
	BaseHandler
	orderService *procurementapp.PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(orderService *procurementapp.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		orderService: orderService,
	}
}

// PurchaseOrderListQuery represents the query string of the order list
type PurchaseOrderListQuery struct {
	Search   string     `form:"search"`
	VendorID string     `form:"vendor_id" binding:"omitempty,uuid"`
	DepotID  string     `form:"depot_id" binding:"omitempty,uuid"`
	Status   []string   `form:"status"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// optionalUUID parses an already validated optional id
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

// pageOrDefault mirrors the defaults the services apply so meta matches the page served
func pageOrDefault(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize
}

// Create godoc
// @ID           createPurchaseOrder
// @Summary      Create a purchase order
// @Description  Creates a draft purchase order with a freshly assigned PO number
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        request body procurementapp.CreatePurchaseOrderRequest true "Purchase order request"
// @Success      201 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req procurementapp.CreatePurchaseOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), getActor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// GetByID godoc
// @ID           getPurchaseOrder
// @Summary      Get purchase order by ID
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      404 {object} dto.Response
// @Router       /purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// GetByNumber godoc
// @ID           getPurchaseOrderByNumber
// @Summary      Get purchase order by PO number
// @Tags         purchase-orders
// @Produce      json
// @Param        number path string true "PO number" example(PO-2026-000001)
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      404 {object} dto.Response
// @Router       /purchase-orders/number/{number} [get]
func (h *PurchaseOrderHandler) GetByNumber(c *gin.Context) {
	order, err := h.orderService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// List godoc
// @ID           listPurchaseOrders
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Produce      json
// @Param        vendor_id query string false "Vendor ID" format(uuid)
// @Param        status query []string false "Statuses" collectionFormat(multi)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]procurementapp.PurchaseOrderListItemResponse}
// @Failure      400 {object} dto.Response
// @Router       /purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q PurchaseOrderListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	filter := procurementapp.PurchaseOrderListFilter{
		Search:   q.Search,
		VendorID: optionalUUID(q.VendorID),
		DepotID:  optionalUUID(q.DepotID),
		Statuses: q.Status,
		From:     q.From,
		To:       q.To,
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := pageOrDefault(q.Page, q.PageSize)
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// UpdateItems godoc
// @ID           updatePurchaseOrderItems
// @Summary      Replace the lines of a draft purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Param        request body procurementapp.UpdateItemsRequest true "Items"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/items [put]
func (h *PurchaseOrderHandler) UpdateItems(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.UpdateItemsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.orderService.UpdateItems(c.Request.Context(), id, getActor(c), req))
}

// Submit godoc
// @ID           submitPurchaseOrder
// @Summary      Submit a draft purchase order
// @Description  Orders at or above the approval threshold wait for approval; the rest go to the vendor
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/submit [post]
func (h *PurchaseOrderHandler) Submit(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	h.respond(c)(h.orderService.Submit(c.Request.Context(), id, getActor(c)))
}

// Approve godoc
// @ID           approvePurchaseOrder
// @Summary      Approve a purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Param        request body procurementapp.ApproveRequest true "Approval"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/approve [post]
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.ApproveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.orderService.Approve(c.Request.Context(), id, getActor(c), req))
}

// RejectApproval godoc
// @ID           rejectPurchaseOrderApproval
// @Summary      Reject a purchase order awaiting approval
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Param        request body procurementapp.RejectApprovalRequest true "Rejection"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/reject-approval [post]
func (h *PurchaseOrderHandler) RejectApproval(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.RejectApprovalRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.orderService.RejectApproval(c.Request.Context(), id, getActor(c), req))
}

// VendorResponse godoc
// @ID           respondToPurchaseOrder
// @Summary      Record the vendor's response
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Param        request body procurementapp.VendorResponseRequest true "Vendor response"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/vendor-response [post]
func (h *PurchaseOrderHandler) VendorResponse(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.VendorResponseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.orderService.RecordVendorResponse(c.Request.Context(), id, getActor(c), req))
}

// ApplyCounterOffer godoc
// @ID           applyPurchaseOrderCounterOffer
// @Summary      Apply a vendor counter-offer
// @Description  Not supported; revise the draft items instead
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Failure      501 {object} dto.Response
// @Router       /purchase-orders/{id}/counter-offer/apply [post]
func (h *PurchaseOrderHandler) ApplyCounterOffer(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	// always fails; kept so the route reports 501 rather than 404
	h.HandleError(c, h.orderService.ApplyCounterOffer(c.Request.Context(), id))
}

// UpdateShipment godoc
// @ID           updatePurchaseOrderShipment
// @Summary      Record shipment details
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Param        request body procurementapp.ShipmentRequest true "Shipment"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/shipment [post]
func (h *PurchaseOrderHandler) UpdateShipment(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.ShipmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.orderService.UpdateShipment(c.Request.Context(), id, getActor(c), req))
}

// RecordDelivery godoc
// @ID           recordPurchaseOrderDelivery
// @Summary      Record received goods
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Param        request body procurementapp.DeliveryRequest true "Delivery"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/deliveries [post]
func (h *PurchaseOrderHandler) RecordDelivery(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.DeliveryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.orderService.RecordDelivery(c.Request.Context(), id, getActor(c), req))
}

// RecordQualityCheck godoc
// @ID           recordPurchaseOrderQualityCheck
// @Summary      Record a quality inspection
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Param        request body procurementapp.QualityCheckRequest true "Quality check"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/quality-check [post]
func (h *PurchaseOrderHandler) RecordQualityCheck(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.QualityCheckRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.orderService.RecordQualityCheck(c.Request.Context(), id, getActor(c), req))
}

// Complete godoc
// @ID           completePurchaseOrder
// @Summary      Complete a delivered and paid purchase order
// @Tags         purchase-orders
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/complete [post]
func (h *PurchaseOrderHandler) Complete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	h.respond(c)(h.orderService.Complete(c.Request.Context(), id, getActor(c)))
}

// Cancel godoc
// @ID           cancelPurchaseOrder
// @Summary      Cancel a purchase order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID" format(uuid)
// @Param        request body procurementapp.CancelRequest false "Reason"
// @Success      200 {object} dto.Response{data=procurementapp.PurchaseOrderResponse}
// @Failure      409 {object} dto.Response
// @Router       /purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req procurementapp.CancelRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	h.respond(c)(h.orderService.Cancel(c.Request.Context(), id, getActor(c), req))
}

// respond writes the usual (order, error) result of a lifecycle command
func (h *PurchaseOrderHandler) respond(c *gin.Context) func(*procurementapp.PurchaseOrderResponse, error) {
	return func(order *procurementapp.PurchaseOrderResponse, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, order)
	}
}
