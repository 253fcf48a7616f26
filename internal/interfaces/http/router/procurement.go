package router

import (
	"github.com/erp/procurement/internal/interfaces/http/handler"
	"github.com/erp/procurement/internal/interfaces/http/middleware"
)

// Handlers bundles the procurement HTTP handlers
type Handlers struct {
	PurchaseOrders *handler.PurchaseOrderHandler
	Invoices       *handler.InvoiceHandler
	Vendors        *handler.VendorHandler
	System         *handler.SystemHandler
}

// RegisterProcurementRoutes wires the procurement API under the router.
// Reads are open to any caller; every mutation must name its principal.
func RegisterProcurementRoutes(r *Router, h Handlers) {
	principal := middleware.RequirePrincipal()

	orders := NewDomainGroup("purchase-orders", "/purchase-orders")
	orders.GET("", h.PurchaseOrders.List).
		GET("/:id", h.PurchaseOrders.GetByID).
		GET("/number/:number", h.PurchaseOrders.GetByNumber).
		POST("", principal, h.PurchaseOrders.Create).
		PUT("/:id/items", principal, h.PurchaseOrders.UpdateItems).
		POST("/:id/submit", principal, h.PurchaseOrders.Submit).
		POST("/:id/approve", principal, h.PurchaseOrders.Approve).
		POST("/:id/reject-approval", principal, h.PurchaseOrders.RejectApproval).
		POST("/:id/vendor-response", principal, h.PurchaseOrders.VendorResponse).
		POST("/:id/counter-offer/apply", principal, h.PurchaseOrders.ApplyCounterOffer).
		POST("/:id/shipment", principal, h.PurchaseOrders.UpdateShipment).
		POST("/:id/deliveries", principal, h.PurchaseOrders.RecordDelivery).
		POST("/:id/quality-check", principal, h.PurchaseOrders.RecordQualityCheck).
		POST("/:id/complete", principal, h.PurchaseOrders.Complete).
		POST("/:id/cancel", principal, h.PurchaseOrders.Cancel)

	invoices := NewDomainGroup("invoices", "/invoices")
	invoices.GET("", h.Invoices.List).
		GET("/:id", h.Invoices.GetByID).
		GET("/number/:number", h.Invoices.GetByNumber).
		POST("", principal, h.Invoices.Generate).
		POST("/:id/payments", principal, h.Invoices.RecordPayment).
		POST("/:id/send", principal, h.Invoices.MarkSent).
		POST("/:id/approve", principal, h.Invoices.Approve).
		POST("/:id/reject", principal, h.Invoices.Reject).
		POST("/:id/cancel", principal, h.Invoices.Cancel)

	vendors := NewDomainGroup("vendors", "/vendors")
	vendors.GET("", h.Vendors.List).
		GET("/:id", h.Vendors.GetByID).
		GET("/:id/dashboard", h.Vendors.GetDashboard).
		GET("/:id/performance", h.Vendors.GetPerformance).
		GET("/:id/notifications", h.Vendors.GetNotifications).
		GET("/:id/audit", h.Vendors.GetAuditFeed).
		GET("/:id/payments", h.Vendors.ListPayments).
		POST("", principal, h.Vendors.Create).
		POST("/:id/trust-score", principal, h.Vendors.RecomputeTrustScore)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	r.Register(orders).
		Register(invoices).
		Register(vendors).
		Register(system)
}
