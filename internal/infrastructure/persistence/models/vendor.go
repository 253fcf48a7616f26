package models

import (
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
)

// VendorModel is the persistence model for the Vendor aggregate.
type VendorModel struct {
	AggregateModel
	Name                     string `gorm:"type:varchar(200);not null"`
	Email                    string `gorm:"type:varchar(200)"`
	Phone                    string `gorm:"type:varchar(50)"`
	TrustScore               int    `gorm:"not null;default:50"`
	ComplianceScore          int    `gorm:"not null;default:50"`
	DeliveryReliabilityScore int    `gorm:"not null;default:50"`
	TrustScoreUpdatedAt      *time.Time
	IsActive                 bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "vendors"
}

// ToDomain converts the persistence model to a domain Vendor
func (m *VendorModel) ToDomain() *procurement.Vendor {
	return &procurement.Vendor{
		BaseAggregateRoot:        m.ToDomainAggregateRoot(),
		Name:                     m.Name,
		Email:                    m.Email,
		Phone:                    m.Phone,
		TrustScore:               m.TrustScore,
		ComplianceScore:          m.ComplianceScore,
		DeliveryReliabilityScore: m.DeliveryReliabilityScore,
		TrustScoreUpdatedAt:      m.TrustScoreUpdatedAt,
		IsActive:                 m.IsActive,
	}
}

// VendorModelFromDomain creates a new persistence model from a domain Vendor
func VendorModelFromDomain(v *procurement.Vendor) *VendorModel {
	m := &VendorModel{
		Name:                     v.Name,
		Email:                    v.Email,
		Phone:                    v.Phone,
		TrustScore:               v.TrustScore,
		ComplianceScore:          v.ComplianceScore,
		DeliveryReliabilityScore: v.DeliveryReliabilityScore,
		TrustScoreUpdatedAt:      v.TrustScoreUpdatedAt,
		IsActive:                 v.IsActive,
	}
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	return m
}
