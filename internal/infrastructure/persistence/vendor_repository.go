package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVendorRepository implements procurement.VendorRepository using GORM
type GormVendorRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormVendorRepository creates a new GormVendorRepository
func NewGormVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormVendorRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a vendor by its ID
func (r *GormVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.Vendor, error) {
	var model models.VendorModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of vendors and the total count
func (r *GormVendorRepository) FindAll(ctx context.Context, filter shared.Filter) ([]procurement.Vendor, int64, error) {
	build := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.VendorModel{})
		if filter.Search != "" {
			pattern := "%" + strings.ToLower(filter.Search) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
		}
		if active, ok := filter.Filters["is_active"].(bool); ok {
			q = q.Where("is_active = ?", active)
		}
		return q
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := build().Order(orderClause(filter.OrderBy, filter.OrderDir, VendorSortFields))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	var rows []models.VendorModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]procurement.Vendor, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Create inserts a vendor
func (r *GormVendorRepository) Create(ctx context.Context, vendor *procurement.Vendor) error {
	if err := r.db.WithContext(ctx).Create(models.VendorModelFromDomain(vendor)).Error; err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// SaveTrustScore writes only the trust score columns under optimistic locking,
// together with the vendor's pending events.
func (r *GormVendorRepository) SaveTrustScore(ctx context.Context, vendor *procurement.Vendor) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.VendorModel{}).
			Where("id = ? AND version = ?", vendor.ID, vendor.Version).
			Updates(map[string]interface{}{
				"trust_score":            vendor.TrustScore,
				"trust_score_updated_at": vendor.TrustScoreUpdatedAt,
				"version":                vendor.Version + 1,
				"updated_at":             now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.VendorModel{}).Where("id = ?", vendor.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return concurrentModification("vendor")
		}

		events := vendor.GetDomainEvents()
		if r.outboxSaver == nil || len(events) == 0 {
			return nil
		}
		if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
			return fmt.Errorf("failed to save events to outbox: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	vendor.Version++
	vendor.UpdatedAt = now
	vendor.ClearDomainEvents()
	return nil
}
