package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VendorService exposes the vendor records the procurement core reads
type VendorService struct {
	vendorRepo procurement.VendorRepository
	log        *zap.Logger
}

// NewVendorService creates a new VendorService
func NewVendorService(vendorRepo procurement.VendorRepository, log *zap.Logger) *VendorService {
	return &VendorService{vendorRepo: vendorRepo, log: log}
}

// Create registers a vendor with neutral scores
func (s *VendorService) Create(ctx context.Context, req CreateVendorRequest) (*VendorResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "vendor", "create")
	defer span.End()

	vendor, err := procurement.NewVendor(req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	vendor.Phone = req.Phone

	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		if _, ok := shared.AsDomainError(err); !ok {
			logger.Enrich(ctx, s.log).Error("failed to create vendor", zap.Error(err))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToVendorResponse(vendor)
	return &resp, nil
}

// GetByID retrieves a vendor
func (s *VendorService) GetByID(ctx context.Context, id uuid.UUID) (*VendorResponse, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToVendorResponse(vendor)
	return &resp, nil
}

// List retrieves a page of vendors
func (s *VendorService) List(ctx context.Context, page, pageSize int, search string) ([]VendorResponse, int64, error) {
	vendors, total, err := s.vendorRepo.FindAll(ctx, pageFilter(page, pageSize, "name", "asc", search))
	if err != nil {
		return nil, 0, err
	}
	out := make([]VendorResponse, len(vendors))
	for i := range vendors {
		out[i] = ToVendorResponse(&vendors[i])
	}
	return out, total, nil
}
