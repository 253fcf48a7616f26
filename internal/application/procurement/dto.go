package procurement

import (
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Purchase Order DTOs ====================

// ItemRequest is one requested order line
type ItemRequest struct {
	SparePartID    uuid.UUID       `json:"spare_part_id" binding:"required"`
	PartNumber     string          `json:"part_number" binding:"max=100"`
	PartName       string          `json:"part_name" binding:"required,min=1,max=200"`
	Unit           string          `json:"unit" binding:"max=20"`
	Quantity       int             `json:"quantity" binding:"required,min=1"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Specifications map[string]any  `json:"specifications"`
}

// TaxRequest is the GST split; total is derived from the components when omitted
type TaxRequest struct {
	CGST  decimal.Decimal `json:"cgst"`
	SGST  decimal.Decimal `json:"sgst"`
	IGST  decimal.Decimal `json:"igst"`
	Total decimal.Decimal `json:"total"`
}

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	VendorID             uuid.UUID        `json:"vendor_id" binding:"required"`
	DepotID              uuid.UUID        `json:"depot_id"`
	DepotName            string           `json:"depot_name" binding:"max=200"`
	Items                []ItemRequest    `json:"items" binding:"required,min=1,dive"`
	Tax                  TaxRequest       `json:"tax"`
	ShippingCharges      decimal.Decimal  `json:"shipping_charges"`
	Discount             decimal.Decimal  `json:"discount"`
	ApprovalThreshold    *decimal.Decimal `json:"approval_threshold"`
	RequiresApproval     bool             `json:"requires_approval"`
	Currency             string           `json:"currency" binding:"omitempty,len=3"`
	PaymentTerms         string           `json:"payment_terms" binding:"max=50"`
	DeliveryAddress      string           `json:"delivery_address" binding:"max=500"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date"`
	Notes                string           `json:"notes"`
	InternalNotes        string           `json:"internal_notes"`
	Tags                 []string         `json:"tags"`
}

// UpdateItemsRequest replaces the lines of a draft order
type UpdateItemsRequest struct {
	Items           []ItemRequest   `json:"items" binding:"required,min=1,dive"`
	Tax             TaxRequest      `json:"tax"`
	ShippingCharges decimal.Decimal `json:"shipping_charges"`
	Discount        decimal.Decimal `json:"discount"`
}

// ApproveRequest represents an approver's sign-off
type ApproveRequest struct {
	Level    string `json:"level" binding:"required,oneof=depot_manager admin finance"`
	Comments string `json:"comments" binding:"max=1000"`
}

// RejectApprovalRequest represents an approver's refusal
type RejectApprovalRequest struct {
	Level  string `json:"level" binding:"required,oneof=depot_manager admin finance"`
	Reason string `json:"reason" binding:"required,min=1,max=1000"`
}

// CounterOfferRequest is a vendor's proposal for one line
type CounterOfferRequest struct {
	ItemID            uuid.UUID       `json:"item_id" binding:"required"`
	ProposedQuantity  int             `json:"proposed_quantity" binding:"required,min=1"`
	ProposedUnitPrice decimal.Decimal `json:"proposed_unit_price"`
	Comments          string          `json:"comments"`
}

// VendorResponseRequest represents the vendor's answer to an order
type VendorResponseRequest struct {
	Status               string                `json:"status" binding:"required,oneof=accepted rejected counter_offer"`
	Message              string                `json:"message" binding:"max=2000"`
	CounterOffer         []CounterOfferRequest `json:"counter_offer" binding:"omitempty,dive"`
	ExpectedDeliveryDate *time.Time            `json:"expected_delivery_date"`
}

// ShipmentRequest represents a logistics update from the vendor
type ShipmentRequest struct {
	Status         string `json:"status" binding:"required,oneof=pending in_transit returned"`
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
	ShippingMethod string `json:"shipping_method" binding:"max=100"`
	Notes          string `json:"notes"`
}

// DeliveryLineRequest is the receipt of one line
type DeliveryLineRequest struct {
	ItemID           uuid.UUID `json:"item_id" binding:"required"`
	QuantityReceived int       `json:"quantity_received" binding:"min=0"`
	QuantityAccepted int       `json:"quantity_accepted" binding:"min=0"`
	QuantityRejected int       `json:"quantity_rejected" binding:"min=0"`
}

// DeliveryRequest records received goods
type DeliveryRequest struct {
	Items        []DeliveryLineRequest `json:"items" binding:"required,min=1,dive"`
	ReceivedDate *time.Time            `json:"received_date"`
}

// QualityIssueRequest is one inspection finding
type QualityIssueRequest struct {
	ItemID      uuid.UUID `json:"item_id"`
	Description string    `json:"description" binding:"required,min=1"`
	Severity    string    `json:"severity" binding:"required,oneof=low medium high critical"`
}

// QualityCheckRequest records an inspection
type QualityCheckRequest struct {
	Status string                `json:"status" binding:"required,oneof=pending passed failed partial"`
	Issues []QualityIssueRequest `json:"issues" binding:"omitempty,dive"`
	Notes  string                `json:"notes"`
}

// CancelRequest carries an optional cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// PurchaseOrderListFilter represents filter options for purchase order list
type PurchaseOrderListFilter struct {
	Search   string     `form:"search"`
	VendorID *uuid.UUID `form:"vendor_id"`
	DepotID  *uuid.UUID `form:"depot_id"`
	Statuses []string   `form:"status"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PurchaseOrderItemResponse represents an order line in API responses
type PurchaseOrderItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	SparePartID      uuid.UUID       `json:"spare_part_id"`
	PartNumber       string          `json:"part_number"`
	PartName         string          `json:"part_name"`
	Unit             string          `json:"unit"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	Specifications   map[string]any  `json:"specifications,omitempty"`
	QuantityReceived int             `json:"quantity_received"`
	QuantityAccepted int             `json:"quantity_accepted"`
	QuantityRejected int             `json:"quantity_rejected"`
	ReceivedDate     *time.Time      `json:"received_date,omitempty"`
}

// ApprovalResponse is one approval audit entry
type ApprovalResponse struct {
	Level      string    `json:"level"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
	Approved   bool      `json:"approved"`
	Comments   string    `json:"comments,omitempty"`
}

// VendorResponseResponse is the stored vendor answer
type VendorResponseResponse struct {
	Status       string                         `json:"status"`
	Message      string                         `json:"message,omitempty"`
	RespondedAt  time.Time                      `json:"responded_at"`
	RespondedBy  string                         `json:"responded_by,omitempty"`
	CounterOffer []procurement.CounterOfferItem `json:"counter_offer,omitempty"`
}

// DeliveryResponse is the logistics sub-record
type DeliveryResponse struct {
	Status         string     `json:"status"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	ShippingMethod string     `json:"shipping_method,omitempty"`
	ReceivedBy     string     `json:"received_by,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Notes          string     `json:"notes,omitempty"`
}

// QualityCheckResponse is the stored inspection
type QualityCheckResponse struct {
	Status      string                     `json:"status"`
	InspectedBy string                     `json:"inspected_by"`
	InspectedAt time.Time                  `json:"inspected_at"`
	Issues      []procurement.QualityIssue `json:"issues,omitempty"`
	Notes       string                     `json:"notes,omitempty"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID                   uuid.UUID                   `json:"id"`
	PONumber             string                      `json:"po_number"`
	VendorID             uuid.UUID                   `json:"vendor_id"`
	VendorName           string                      `json:"vendor_name"`
	VendorEmail          string                      `json:"vendor_email,omitempty"`
	DepotID              uuid.UUID                   `json:"depot_id"`
	DepotName            string                      `json:"depot_name,omitempty"`
	RequestedBy          string                      `json:"requested_by"`
	Items                []PurchaseOrderItemResponse `json:"items"`
	Financials           procurement.Financials      `json:"financials"`
	Currency             string                      `json:"currency"`
	PaymentTerms         string                      `json:"payment_terms"`
	Status               string                      `json:"status"`
	RequiresApproval     bool                        `json:"requires_approval"`
	ApprovalThreshold    decimal.Decimal             `json:"approval_threshold"`
	Approvals            []ApprovalResponse          `json:"approvals"`
	VendorResponse       *VendorResponseResponse     `json:"vendor_response,omitempty"`
	Delivery             *DeliveryResponse           `json:"delivery,omitempty"`
	QualityCheck         *QualityCheckResponse       `json:"quality_check,omitempty"`
	DeliveryAddress      string                      `json:"delivery_address,omitempty"`
	ExpectedDeliveryDate *time.Time                  `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time                  `json:"actual_delivery_date,omitempty"`
	SubmittedDate        *time.Time                  `json:"submitted_date,omitempty"`
	AcceptedDate         *time.Time                  `json:"accepted_date,omitempty"`
	RejectedDate         *time.Time                  `json:"rejected_date,omitempty"`
	CancelledDate        *time.Time                  `json:"cancelled_date,omitempty"`
	RejectionReason      string                      `json:"rejection_reason,omitempty"`
	CancellationReason   string                      `json:"cancellation_reason,omitempty"`
	InvoiceID            *uuid.UUID                  `json:"invoice_id,omitempty"`
	InvoiceNumber        string                      `json:"invoice_number,omitempty"`
	PaymentStatus        string                      `json:"payment_status"`
	Notes                string                      `json:"notes,omitempty"`
	InternalNotes        string                      `json:"internal_notes,omitempty"`
	VendorNotes          string                      `json:"vendor_notes,omitempty"`
	Tags                 []string                    `json:"tags,omitempty"`
	CreatedBy            string                      `json:"created_by,omitempty"`
	UpdatedBy            string                      `json:"updated_by,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
	Version              int                         `json:"version"`
}

// PurchaseOrderListItemResponse represents a purchase order row in list views
type PurchaseOrderListItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	PONumber             string          `json:"po_number"`
	VendorID             uuid.UUID       `json:"vendor_id"`
	VendorName           string          `json:"vendor_name"`
	DepotName            string          `json:"depot_name,omitempty"`
	Status               string          `json:"status"`
	ItemCount            int             `json:"item_count"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	PaymentStatus        string          `json:"payment_status"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// ToPurchaseOrderResponse converts the aggregate to its API shape
func ToPurchaseOrderResponse(o *procurement.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = PurchaseOrderItemResponse{
			ID:               it.ID,
			SparePartID:      it.SparePartID,
			PartNumber:       it.PartNumber,
			PartName:         it.PartName,
			Unit:             it.Unit,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
			TotalPrice:       it.TotalPrice,
			Specifications:   it.Specifications,
			QuantityReceived: it.QuantityReceived,
			QuantityAccepted: it.QuantityAccepted,
			QuantityRejected: it.QuantityRejected,
			ReceivedDate:     it.ReceivedDate,
		}
	}
	approvals := make([]ApprovalResponse, len(o.Approvals))
	for i, a := range o.Approvals {
		approvals[i] = ApprovalResponse{
			Level:      string(a.Level),
			ApprovedBy: a.ApprovedBy,
			ApprovedAt: a.ApprovedAt,
			Approved:   a.Approved,
			Comments:   a.Comments,
		}
	}

	resp := PurchaseOrderResponse{
		ID:                   o.ID,
		PONumber:             o.PONumber,
		VendorID:             o.VendorID,
		VendorName:           o.VendorName,
		VendorEmail:          o.VendorEmail,
		DepotID:              o.DepotID,
		DepotName:            o.DepotName,
		RequestedBy:          o.RequestedBy,
		Items:                items,
		Financials:           o.Financials,
		Currency:             o.Currency,
		PaymentTerms:         o.PaymentTerms,
		Status:               string(o.Status),
		RequiresApproval:     o.RequiresApproval,
		ApprovalThreshold:    o.ApprovalThreshold,
		Approvals:            approvals,
		DeliveryAddress:      o.DeliveryAddress,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		ActualDeliveryDate:   o.ActualDeliveryDate,
		SubmittedDate:        o.SubmittedDate,
		AcceptedDate:         o.AcceptedDate,
		RejectedDate:         o.RejectedDate,
		CancelledDate:        o.CancelledDate,
		RejectionReason:      o.RejectionReason,
		CancellationReason:   o.CancellationReason,
		InvoiceID:            o.InvoiceID,
		InvoiceNumber:        o.InvoiceNumber,
		PaymentStatus:        string(o.PaymentStatus),
		Notes:                o.Notes,
		InternalNotes:        o.InternalNotes,
		VendorNotes:          o.VendorNotes,
		Tags:                 o.Tags,
		CreatedBy:            o.CreatedBy,
		UpdatedBy:            o.UpdatedBy,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		Version:              o.Version,
	}
	if vr := o.VendorResponse; vr != nil {
		resp.VendorResponse = &VendorResponseResponse{
			Status:       string(vr.Status),
			Message:      vr.Message,
			RespondedAt:  vr.RespondedAt,
			RespondedBy:  vr.RespondedBy,
			CounterOffer: vr.CounterOffer,
		}
	}
	if d := o.Delivery; d != nil {
		resp.Delivery = &DeliveryResponse{
			Status:         string(d.Status),
			TrackingNumber: d.TrackingNumber,
			ShippingMethod: d.ShippingMethod,
			ReceivedBy:     d.ReceivedBy,
			DeliveredAt:    d.DeliveredAt,
			UpdatedAt:      d.UpdatedAt,
			Notes:          d.Notes,
		}
	}
	if qc := o.QualityCheck; qc != nil {
		resp.QualityCheck = &QualityCheckResponse{
			Status:      string(qc.Status),
			InspectedBy: qc.InspectedBy,
			InspectedAt: qc.InspectedAt,
			Issues:      qc.Issues,
			Notes:       qc.Notes,
		}
	}
	return resp
}

// ToPurchaseOrderListItemResponse converts the aggregate to a list row
func ToPurchaseOrderListItemResponse(o *procurement.PurchaseOrder) PurchaseOrderListItemResponse {
	return PurchaseOrderListItemResponse{
		ID:                   o.ID,
		PONumber:             o.PONumber,
		VendorID:             o.VendorID,
		VendorName:           o.VendorName,
		DepotName:            o.DepotName,
		Status:               string(o.Status),
		ItemCount:            len(o.Items),
		TotalAmount:          o.TotalAmount,
		PaidAmount:           o.PaidAmount,
		PaymentStatus:        string(o.PaymentStatus),
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		CreatedAt:            o.CreatedAt,
	}
}

// ==================== Invoice DTOs ====================

// GenerateInvoiceRequest represents a request to bill a purchase order
type GenerateInvoiceRequest struct {
	PurchaseOrderID uuid.UUID  `json:"purchase_order_id" binding:"required"`
	InvoiceDate     *time.Time `json:"invoice_date"`
	Notes           string     `json:"notes"`
}

// RecordPaymentRequest is a gateway-verified payment callback
type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   *time.Time      `json:"payment_date"`
	Method        string          `json:"method" binding:"required,max=50"`
	TransactionID string          `json:"transaction_id" binding:"required,max=100"`
}

// RejectInvoiceRequest carries the mandatory rejection reason
type RejectInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=1000"`
}

// InvoiceListFilter represents filter options for invoice lists
type InvoiceListFilter struct {
	Search          string     `form:"search"`
	VendorID        *uuid.UUID `form:"vendor_id"`
	PurchaseOrderID *uuid.UUID `form:"purchase_order_id"`
	Statuses        []string   `form:"status"`
	PaymentStatuses []string   `form:"payment_status"`
	From            *time.Time `form:"from" time_format:"2006-01-02"`
	To              *time.Time `form:"to" time_format:"2006-01-02"`
	Page            int        `form:"page" binding:"min=0"`
	PageSize        int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy         string     `form:"order_by"`
	OrderDir        string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PaymentResponse is one ledger entry
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	PaidAt        time.Time       `json:"paid_at"`
	RecordedBy    string          `json:"recorded_by,omitempty"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	InvoiceNumber      string                    `json:"invoice_number"`
	PurchaseOrderID    uuid.UUID                 `json:"purchase_order_id"`
	PONumber           string                    `json:"po_number"`
	VendorID           uuid.UUID                 `json:"vendor_id"`
	VendorName         string                    `json:"vendor_name"`
	Items              []procurement.InvoiceItem `json:"items"`
	Financials         procurement.Financials    `json:"financials"`
	Currency           string                    `json:"currency"`
	PaymentTerms       string                    `json:"payment_terms"`
	InvoiceDate        time.Time                 `json:"invoice_date"`
	DueDate            *time.Time                `json:"due_date,omitempty"`
	Status             string                    `json:"status"`
	PaymentStatus      string                    `json:"payment_status"`
	PaymentStage       string                    `json:"payment_stage"`
	Payments           []PaymentResponse         `json:"payments"`
	PaymentDate        *time.Time                `json:"payment_date,omitempty"`
	ApprovedBy         string                    `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time                `json:"approved_at,omitempty"`
	RejectionReason    string                    `json:"rejection_reason,omitempty"`
	CancellationReason string                    `json:"cancellation_reason,omitempty"`
	Notes              string                    `json:"notes,omitempty"`
	CreatedBy          string                    `json:"created_by,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	Version            int                       `json:"version"`
}

// ToInvoiceResponse converts the aggregate to its API shape
func ToInvoiceResponse(inv *procurement.Invoice) InvoiceResponse {
	payments := make([]PaymentResponse, len(inv.Payments))
	for i, p := range inv.Payments {
		payments[i] = PaymentResponse{
			ID:            p.ID,
			TransactionID: p.TransactionID,
			Amount:        p.Amount,
			Method:        p.Method,
			PaidAt:        p.PaidAt,
			RecordedBy:    p.RecordedBy,
		}
	}
	return InvoiceResponse{
		ID:                 inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		PurchaseOrderID:    inv.PurchaseOrderID,
		PONumber:           inv.PONumber,
		VendorID:           inv.VendorID,
		VendorName:         inv.VendorName,
		Items:              inv.Items,
		Financials:         inv.Financials,
		Currency:           inv.Currency,
		PaymentTerms:       inv.PaymentTerms,
		InvoiceDate:        inv.InvoiceDate,
		DueDate:            inv.DueDate,
		Status:             string(inv.Status),
		PaymentStatus:      string(inv.PaymentStatus),
		PaymentStage:       inv.PaymentStage(),
		Payments:           payments,
		PaymentDate:        inv.PaymentDate,
		ApprovedBy:         inv.ApprovedBy,
		ApprovedAt:         inv.ApprovedAt,
		RejectionReason:    inv.RejectionReason,
		CancellationReason: inv.CancellationReason,
		Notes:              inv.Notes,
		CreatedBy:          inv.CreatedBy,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
		Version:            inv.Version,
	}
}

// InvoiceStatusSummary aggregates invoices sharing one status
type InvoiceStatusSummary struct {
	Status      string          `json:"status"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	DueAmount   decimal.Decimal `json:"due_amount"`
}

// InvoiceListResponse is a page of invoices plus the per-status summary
type InvoiceListResponse struct {
	Invoices []InvoiceResponse     `json:"invoices"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Summary  []InvoiceStatusSummary `json:"summary"`
}

// VendorPaymentResponse is one invoice as seen in the vendor payments view
type VendorPaymentResponse struct {
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	InvoiceNumber string            `json:"invoice_number"`
	PONumber      string            `json:"po_number"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaidAmount    decimal.Decimal   `json:"paid_amount"`
	DueAmount     decimal.Decimal   `json:"due_amount"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	PaymentStatus string            `json:"payment_status"`
	Stage         string            `json:"stage"`
	Payments      []PaymentResponse `json:"payments"`
}

// PaymentListResponse is the vendor payments view
type PaymentListResponse struct {
	Pending       []VendorPaymentResponse `json:"pending"`
	Completed     []VendorPaymentResponse `json:"completed"`
	TotalInvoiced decimal.Decimal         `json:"total_invoiced"`
	TotalPaid     decimal.Decimal         `json:"total_paid"`
	TotalPending  decimal.Decimal         `json:"total_pending"`
}

// ==================== Vendor DTOs ====================

// CreateVendorRequest registers a vendor known to the procurement core
type CreateVendorRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone" binding:"max=30"`
}

// VendorResponse represents a vendor in API responses
type VendorResponse struct {
	ID                       uuid.UUID  `json:"id"`
	Name                     string     `json:"name"`
	Email                    string     `json:"email,omitempty"`
	Phone                    string     `json:"phone,omitempty"`
	TrustScore               int        `json:"trust_score"`
	ComplianceScore          int        `json:"compliance_score"`
	DeliveryReliabilityScore int        `json:"delivery_reliability_score"`
	PerformanceRating        int        `json:"performance_rating"`
	TrustScoreUpdatedAt      *time.Time `json:"trust_score_updated_at,omitempty"`
	IsActive                 bool       `json:"is_active"`
	CreatedAt                time.Time  `json:"created_at"`
}

// ToVendorResponse converts the vendor to its API shape
func ToVendorResponse(v *procurement.Vendor) VendorResponse {
	return VendorResponse{
		ID:                       v.ID,
		Name:                     v.Name,
		Email:                    v.Email,
		Phone:                    v.Phone,
		TrustScore:               v.TrustScore,
		ComplianceScore:          v.ComplianceScore,
		DeliveryReliabilityScore: v.DeliveryReliabilityScore,
		PerformanceRating:        v.PerformanceRating(),
		TrustScoreUpdatedAt:      v.TrustScoreUpdatedAt,
		IsActive:                 v.IsActive,
		CreatedAt:                v.CreatedAt,
	}
}

// TrustScoreResponse is the outcome of a recompute
type TrustScoreResponse struct {
	VendorID      uuid.UUID `json:"vendor_id"`
	PreviousScore int       `json:"previous_score"`
	Changed       bool      `json:"changed"`
	procurement.TrustScoreResult
}

// ==================== Dashboard DTOs ====================

// Alert severities and priorities
const (
	AlertTypeWarning = "warning"
	AlertTypeError   = "error"
	AlertTypeInfo    = "info"

	AlertPriorityHigh   = "high"
	AlertPriorityMedium = "medium"
	AlertPriorityLow    = "low"
)

// AlertResponse is one dashboard alert
type AlertResponse struct {
	Code     string `json:"code"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

// DailyPointResponse is one day of the weekly order series
type DailyPointResponse struct {
	Date   string          `json:"date"`
	Orders int64           `json:"orders"`
	Amount decimal.Decimal `json:"amount"`
}

// DashboardResponse is the vendor dashboard read model
type DashboardResponse struct {
	VendorID            uuid.UUID            `json:"vendor_id"`
	VendorName          string               `json:"vendor_name"`
	StatusCounts        map[string]int64     `json:"status_counts"`
	TotalOrders         int64                `json:"total_orders"`
	ActiveOrders        int64                `json:"active_orders"`
	TotalRevenue        decimal.Decimal      `json:"total_revenue"`
	PendingPayments     decimal.Decimal      `json:"pending_payments"`
	TrustScore          int                  `json:"trust_score"`
	PerformanceRating   int                  `json:"performance_rating"`
	FailedQualityChecks int64                `json:"failed_quality_checks"`
	OpenCounterOffers   int64                `json:"open_counter_offers"`
	WeeklyOrders        []DailyPointResponse `json:"weekly_orders"`
	Alerts              []AlertResponse      `json:"alerts"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

// PerformanceResponse is the vendor performance summary
type PerformanceResponse struct {
	VendorID                 uuid.UUID       `json:"vendor_id"`
	TotalOrders              int64           `json:"total_orders"`
	CompletedOrders          int64           `json:"completed_orders"`
	PendingOrders            int64           `json:"pending_orders"`
	TotalRevenue             decimal.Decimal `json:"total_revenue"`
	AvgOrderValue            decimal.Decimal `json:"avg_order_value"`
	TrustScore               int             `json:"trust_score"`
	ComplianceScore          int             `json:"compliance_score"`
	DeliveryReliabilityScore int             `json:"delivery_reliability_score"`
	PerformanceRating        int             `json:"performance_rating"`
}

// Notification kinds
const (
	NotificationPendingOrder    = "PENDING_ORDER"
	NotificationOverdueDelivery = "OVERDUE_DELIVERY"
	NotificationQualityFailed   = "QUALITY_CHECK_FAILED"
	NotificationOverdueInvoice  = "OVERDUE_INVOICE"
)

// NotificationResponse is one entry of the vendor notification feed
type NotificationResponse struct {
	Type        string     `json:"type"`
	Priority    string     `json:"priority"`
	Message     string     `json:"message"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Audit actions derived from stored records
const (
	AuditPOCreated        = "PO_CREATED"
	AuditPOAccepted       = "PO_ACCEPTED"
	AuditPORejected       = "PO_REJECTED"
	AuditDeliveryUpdated  = "DELIVERY_UPDATED"
	AuditInvoiceGenerated = "INVOICE_GENERATED"
	AuditPaymentReceived  = "PAYMENT_RECEIVED"
)

// AuditEntryResponse is one entry of the vendor audit feed
type AuditEntryResponse struct {
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    uuid.UUID       `json:"entity_id"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Actor       string          `json:"actor,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}
