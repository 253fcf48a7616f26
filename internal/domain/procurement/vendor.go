package procurement

import (
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
)

// DefaultVendorScore seeds the three vendor scores for a newly registered vendor.
const DefaultVendorScore = 50

// Vendor is owned elsewhere; this core writes only TrustScore.
// ComplianceScore and DeliveryReliabilityScore are read-only inputs.
type Vendor struct {
	shared.BaseAggregateRoot
	Name                     string
	Email                    string
	Phone                    string
	TrustScore               int
	ComplianceScore          int
	DeliveryReliabilityScore int
	TrustScoreUpdatedAt      *time.Time
	IsActive                 bool
}

// NewVendor registers a vendor with neutral scores.
func NewVendor(name, email string) (*Vendor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationError("vendor name is required")
	}
	return &Vendor{
		BaseAggregateRoot:        shared.NewBaseAggregateRoot(),
		Name:                     name,
		Email:                    email,
		TrustScore:               DefaultVendorScore,
		ComplianceScore:          DefaultVendorScore,
		DeliveryReliabilityScore: DefaultVendorScore,
		IsActive:                 true,
	}, nil
}

// ApplyTrustScore stores a freshly computed score. It reports false and changes
// nothing when the score is unchanged.
func (v *Vendor) ApplyTrustScore(result TrustScoreResult, actor string) bool {
	if v.TrustScore == result.TrustScore {
		return false
	}
	old := v.TrustScore
	now := time.Now()
	v.TrustScore = result.TrustScore
	v.TrustScoreUpdatedAt = &now
	v.UpdatedAt = now
	v.AddDomainEvent(NewTrustScoreUpdatedEvent(v, old, result.Breakdown, actor))
	return true
}

// PerformanceRating averages the three vendor scores.
func (v *Vendor) PerformanceRating() int {
	return roundHalfUp(float64(v.TrustScore+v.ComplianceScore+v.DeliveryReliabilityScore) / 3)
}
