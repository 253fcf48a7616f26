package models

import (
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FinancialsModel flattens the shared money block into columns.
type FinancialsModel struct {
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxCGST         decimal.Decimal `gorm:"column:tax_cgst;type:decimal(18,4);not null;default:0"`
	TaxSGST         decimal.Decimal `gorm:"column:tax_sgst;type:decimal(18,4);not null;default:0"`
	TaxIGST         decimal.Decimal `gorm:"column:tax_igst;type:decimal(18,4);not null;default:0"`
	TaxTotal        decimal.Decimal `gorm:"column:tax_total;type:decimal(18,4);not null;default:0"`
	Discount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingCharges decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DueAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

func financialsFromDomain(f procurement.Financials) FinancialsModel {
	return FinancialsModel{
		Subtotal:        f.Subtotal,
		TaxCGST:         f.Tax.CGST,
		TaxSGST:         f.Tax.SGST,
		TaxIGST:         f.Tax.IGST,
		TaxTotal:        f.Tax.Total,
		Discount:        f.Discount,
		ShippingCharges: f.ShippingCharges,
		TotalAmount:     f.TotalAmount,
		PaidAmount:      f.PaidAmount,
		DueAmount:       f.DueAmount,
	}
}

func (m FinancialsModel) toDomain() procurement.Financials {
	return procurement.Financials{
		Subtotal: m.Subtotal,
		Tax: procurement.Tax{
			CGST:  m.TaxCGST,
			SGST:  m.TaxSGST,
			IGST:  m.TaxIGST,
			Total: m.TaxTotal,
		},
		Discount:        m.Discount,
		ShippingCharges: m.ShippingCharges,
		TotalAmount:     m.TotalAmount,
		PaidAmount:      m.PaidAmount,
		DueAmount:       m.DueAmount,
	}
}

// approvalJSON is the stored shape of one approval trail entry.
type approvalJSON struct {
	Level      procurement.ApprovalLevel `json:"level"`
	ApprovedBy string                    `json:"approved_by"`
	ApprovedAt time.Time                 `json:"approved_at"`
	Approved   bool                      `json:"approved"`
	Comments   string                    `json:"comments,omitempty"`
}

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate.
type PurchaseOrderModel struct {
	AggregateModel
	PONumber    string                   `gorm:"column:po_number;type:varchar(30);not null;uniqueIndex:uq_purchase_orders_po_number"`
	VendorID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	VendorName  string                   `gorm:"type:varchar(200)"`
	VendorEmail string                   `gorm:"type:varchar(200)"`
	DepotID     uuid.UUID                `gorm:"type:uuid;not null;index"`
	DepotName   string                   `gorm:"type:varchar(200)"`
	RequestedBy string                   `gorm:"type:varchar(100)"`
	Items       []PurchaseOrderItemModel `gorm:"foreignKey:OrderID;references:ID"`

	FinancialsModel
	Currency          string                          `gorm:"type:varchar(3);not null;default:'INR'"`
	PaymentTerms      string                          `gorm:"type:varchar(50);not null;default:'Net 30'"`
	Status            procurement.PurchaseOrderStatus `gorm:"type:varchar(30);not null;default:'draft';index"`
	RequiresApproval  bool                            `gorm:"not null;default:false"`
	ApprovalThreshold decimal.Decimal                 `gorm:"type:decimal(18,4);not null;default:50000"`
	Approvals         datatypes.JSON                  `gorm:"type:jsonb;not null;default:'[]'"`

	VendorResponseStatus  *string `gorm:"type:varchar(20)"`
	VendorResponseMessage string  `gorm:"type:text"`
	VendorRespondedAt     *time.Time
	VendorRespondedBy     string         `gorm:"type:varchar(100)"`
	CounterOffer          datatypes.JSON `gorm:"type:jsonb"`

	DeliveryStatus         *string `gorm:"type:varchar(20)"`
	TrackingNumber         string  `gorm:"type:varchar(100)"`
	ShippingMethod         string  `gorm:"type:varchar(100)"`
	DeliveryReceivedBy     string  `gorm:"type:varchar(100)"`
	DeliveredAt            *time.Time
	DeliveryUpdatedAt      *time.Time
	DeliveryNotes          string  `gorm:"type:text"`
	QualityStatus          *string `gorm:"type:varchar(20)"`
	QualityInspectedBy     string  `gorm:"type:varchar(100)"`
	QualityInspectedAt     *time.Time
	QualityIssues          datatypes.JSON `gorm:"type:jsonb"`
	QualityNotes           string         `gorm:"type:text"`
	DeliveryAddress        string         `gorm:"type:text"`
	ExpectedDeliveryDate   *time.Time     `gorm:"index"`
	ActualDeliveryDate     *time.Time
	SubmittedDate          *time.Time
	AcceptedDate           *time.Time
	RejectedDate           *time.Time
	CancelledDate          *time.Time
	RejectionReason        string     `gorm:"type:text"`
	CancellationReason     string     `gorm:"type:text"`
	InvoiceID              *uuid.UUID `gorm:"type:uuid"`
	InvoiceNumber          string     `gorm:"type:varchar(30)"`
	PaymentStatus          string     `gorm:"type:varchar(20)"`
	Notes                  string     `gorm:"type:text"`
	InternalNotes          string     `gorm:"type:text"`
	VendorNotes            string     `gorm:"type:text"`
	Tags                   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedBy              string         `gorm:"type:varchar(100)"`
	UpdatedBy              string         `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	o := &procurement.PurchaseOrder{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		PONumber:             m.PONumber,
		VendorID:             m.VendorID,
		VendorName:           m.VendorName,
		VendorEmail:          m.VendorEmail,
		DepotID:              m.DepotID,
		DepotName:            m.DepotName,
		RequestedBy:          m.RequestedBy,
		Items:                make([]procurement.PurchaseOrderItem, len(m.Items)),
		Financials:           m.FinancialsModel.toDomain(),
		Currency:             m.Currency,
		PaymentTerms:         m.PaymentTerms,
		Status:               m.Status,
		RequiresApproval:     m.RequiresApproval,
		ApprovalThreshold:    m.ApprovalThreshold,
		DeliveryAddress:      m.DeliveryAddress,
		ExpectedDeliveryDate: m.ExpectedDeliveryDate,
		ActualDeliveryDate:   m.ActualDeliveryDate,
		SubmittedDate:        m.SubmittedDate,
		AcceptedDate:         m.AcceptedDate,
		RejectedDate:         m.RejectedDate,
		CancelledDate:        m.CancelledDate,
		RejectionReason:      m.RejectionReason,
		CancellationReason:   m.CancellationReason,
		InvoiceID:            m.InvoiceID,
		InvoiceNumber:        m.InvoiceNumber,
		PaymentStatus:        procurement.PaymentStatus(m.PaymentStatus),
		Notes:                m.Notes,
		InternalNotes:        m.InternalNotes,
		VendorNotes:          m.VendorNotes,
		Tags:                 decodeJSON[[]string](m.Tags),
		CreatedBy:            m.CreatedBy,
		UpdatedBy:            m.UpdatedBy,
	}
	for i := range m.Items {
		o.Items[i] = m.Items[i].ToDomain()
	}
	for _, a := range decodeJSON[[]approvalJSON](m.Approvals) {
		o.Approvals = append(o.Approvals, procurement.Approval{
			Level:      a.Level,
			ApprovedBy: a.ApprovedBy,
			ApprovedAt: a.ApprovedAt,
			Approved:   a.Approved,
			Comments:   a.Comments,
		})
	}
	if m.VendorResponseStatus != nil {
		resp := &procurement.VendorResponse{
			Status:       procurement.VendorResponseStatus(*m.VendorResponseStatus),
			Message:      m.VendorResponseMessage,
			RespondedBy:  m.VendorRespondedBy,
			CounterOffer: decodeJSON[[]procurement.CounterOfferItem](m.CounterOffer),
		}
		if m.VendorRespondedAt != nil {
			resp.RespondedAt = *m.VendorRespondedAt
		}
		o.VendorResponse = resp
	}
	if m.DeliveryStatus != nil {
		d := &procurement.DeliveryStatus{
			Status:         procurement.ShipmentStatus(*m.DeliveryStatus),
			TrackingNumber: m.TrackingNumber,
			ShippingMethod: m.ShippingMethod,
			ReceivedBy:     m.DeliveryReceivedBy,
			DeliveredAt:    m.DeliveredAt,
			Notes:          m.DeliveryNotes,
		}
		if m.DeliveryUpdatedAt != nil {
			d.UpdatedAt = *m.DeliveryUpdatedAt
		}
		o.Delivery = d
	}
	if m.QualityStatus != nil {
		qc := &procurement.QualityCheck{
			Status:      procurement.QualityStatus(*m.QualityStatus),
			InspectedBy: m.QualityInspectedBy,
			Issues:      decodeJSON[[]procurement.QualityIssue](m.QualityIssues),
			Notes:       m.QualityNotes,
		}
		if m.QualityInspectedAt != nil {
			qc.InspectedAt = *m.QualityInspectedAt
		}
		o.QualityCheck = qc
	}
	return o
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder
func PurchaseOrderModelFromDomain(o *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{
		PONumber:             o.PONumber,
		VendorID:             o.VendorID,
		VendorName:           o.VendorName,
		VendorEmail:          o.VendorEmail,
		DepotID:              o.DepotID,
		DepotName:            o.DepotName,
		RequestedBy:          o.RequestedBy,
		Items:                make([]PurchaseOrderItemModel, len(o.Items)),
		FinancialsModel:      financialsFromDomain(o.Financials),
		Currency:             o.Currency,
		PaymentTerms:         o.PaymentTerms,
		Status:               o.Status,
		RequiresApproval:     o.RequiresApproval,
		ApprovalThreshold:    o.ApprovalThreshold,
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
		Tags:                 encodeJSON(o.Tags),
		CreatedBy:            o.CreatedBy,
		UpdatedBy:            o.UpdatedBy,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	for i := range o.Items {
		m.Items[i] = *PurchaseOrderItemModelFromDomain(o.ID, i+1, o.Items[i])
	}
	approvals := make([]approvalJSON, len(o.Approvals))
	for i, a := range o.Approvals {
		approvals[i] = approvalJSON{
			Level:      a.Level,
			ApprovedBy: a.ApprovedBy,
			ApprovedAt: a.ApprovedAt,
			Approved:   a.Approved,
			Comments:   a.Comments,
		}
	}
	m.Approvals = encodeJSON(approvals)
	if r := o.VendorResponse; r != nil {
		status := string(r.Status)
		respondedAt := r.RespondedAt
		m.VendorResponseStatus = &status
		m.VendorResponseMessage = r.Message
		m.VendorRespondedAt = &respondedAt
		m.VendorRespondedBy = r.RespondedBy
		m.CounterOffer = encodeJSON(r.CounterOffer)
	}
	if d := o.Delivery; d != nil {
		status := string(d.Status)
		updatedAt := d.UpdatedAt
		m.DeliveryStatus = &status
		m.TrackingNumber = d.TrackingNumber
		m.ShippingMethod = d.ShippingMethod
		m.DeliveryReceivedBy = d.ReceivedBy
		m.DeliveredAt = d.DeliveredAt
		m.DeliveryUpdatedAt = &updatedAt
		m.DeliveryNotes = d.Notes
	}
	if qc := o.QualityCheck; qc != nil {
		status := string(qc.Status)
		inspectedAt := qc.InspectedAt
		m.QualityStatus = &status
		m.QualityInspectedBy = qc.InspectedBy
		m.QualityInspectedAt = &inspectedAt
		m.QualityIssues = encodeJSON(qc.Issues)
		m.QualityNotes = qc.Notes
	}
	return m
}

// PurchaseOrderItemModel is the persistence model for one order line.
type PurchaseOrderItemModel struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrderID          uuid.UUID         `gorm:"type:uuid;not null;index"`
	LineNo           int               `gorm:"not null;default:0"`
	SparePartID      uuid.UUID         `gorm:"type:uuid;not null"`
	PartNumber       string            `gorm:"type:varchar(100)"`
	PartName         string            `gorm:"type:varchar(200);not null"`
	Unit             string            `gorm:"type:varchar(20);not null;default:'pcs'"`
	Quantity         int               `gorm:"not null"`
	UnitPrice        decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	TotalPrice       decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Specifications   datatypes.JSONMap `gorm:"type:jsonb"`
	QuantityReceived int               `gorm:"not null;default:0"`
	QuantityAccepted int               `gorm:"not null;default:0"`
	QuantityRejected int               `gorm:"not null;default:0"`
	ReceivedDate     *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// ToDomain converts the persistence model to a domain PurchaseOrderItem
func (m *PurchaseOrderItemModel) ToDomain() procurement.PurchaseOrderItem {
	return procurement.PurchaseOrderItem{
		ID:               m.ID,
		SparePartID:      m.SparePartID,
		PartNumber:       m.PartNumber,
		PartName:         m.PartName,
		Unit:             m.Unit,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		TotalPrice:       m.TotalPrice,
		Specifications:   map[string]any(m.Specifications),
		QuantityReceived: m.QuantityReceived,
		QuantityAccepted: m.QuantityAccepted,
		QuantityRejected: m.QuantityRejected,
		ReceivedDate:     m.ReceivedDate,
	}
}

// PurchaseOrderItemModelFromDomain creates a new persistence model from a domain item
func PurchaseOrderItemModelFromDomain(orderID uuid.UUID, lineNo int, it procurement.PurchaseOrderItem) *PurchaseOrderItemModel {
	return &PurchaseOrderItemModel{
		ID:               it.ID,
		OrderID:          orderID,
		LineNo:           lineNo,
		SparePartID:      it.SparePartID,
		PartNumber:       it.PartNumber,
		PartName:         it.PartName,
		Unit:             it.Unit,
		Quantity:         it.Quantity,
		UnitPrice:        it.UnitPrice,
		TotalPrice:       it.TotalPrice,
		Specifications:   datatypes.JSONMap(it.Specifications),
		QuantityReceived: it.QuantityReceived,
		QuantityAccepted: it.QuantityAccepted,
		QuantityRejected: it.QuantityRejected,
		ReceivedDate:     it.ReceivedDate,
	}
}
