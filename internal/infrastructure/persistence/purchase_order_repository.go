package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements procurement.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormPurchaseOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

func itemsByLine(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a purchase order by its ID
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", itemsByLine).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPONumber finds a purchase order by its human-readable number
func (r *GormPurchaseOrderRepository) FindByPONumber(ctx context.Context, number string) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", itemsByLine).
		Where("po_number = ?", number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of orders matching filter and the total match count
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.PurchaseOrderFilter) ([]procurement.PurchaseOrder, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(ctx, filter).
		Preload("Items", itemsByLine).
		Order(orderClause(filter.OrderBy, filter.OrderDir, PurchaseOrderSortFields))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.PurchaseOrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toPurchaseOrders(rows), total, nil
}

// FindDeliveredByVendor returns the vendor's delivered and completed orders
func (r *GormPurchaseOrderRepository) FindDeliveredByVendor(ctx context.Context, vendorID uuid.UUID) ([]procurement.PurchaseOrder, error) {
	var rows []models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND status IN ?", vendorID, []string{
			string(procurement.POStatusDelivered),
			string(procurement.POStatusCompleted),
		}).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toPurchaseOrders(rows), nil
}

// Create inserts the order, its items and its pending events in one transaction.
// A po_number collision is reported as procurement.ErrNumberingConflict.
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, order *procurement.PurchaseOrder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.PurchaseOrderModelFromDomain(order)
		if err := tx.Omit("Items").Create(model).Error; err != nil {
			if uniqueViolation(err, "po_number") {
				return procurement.ErrNumberingConflict
			}
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		return r.saveEvents(ctx, tx, order.GetDomainEvents())
	})
	if err != nil {
		return err
	}
	order.ClearDomainEvents()
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		res := tx.Model(&models.PurchaseOrderModel{}).
			Where("id = ?", order.ID).
			Select("version").
			Scan(&currentVersion)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		if currentVersion != order.Version {
			return concurrentModification("purchase order")
		}

		model := models.PurchaseOrderModelFromDomain(order)
		model.Version = currentVersion + 1
		model.UpdatedAt = now

		result := tx.Model(&models.PurchaseOrderModel{}).
			Where("id = ? AND version = ?", order.ID, currentVersion).
			Select("*").
			Omit("id", "created_at", "Items").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return concurrentModification("purchase order")
		}

		// Items are rewritten as a whole; line numbers follow slice order.
		if err := tx.Where("order_id = ?", order.ID).
			Delete(&models.PurchaseOrderItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}

		return r.saveEvents(ctx, tx, order.GetDomainEvents())
	})
	if err != nil {
		return err
	}
	order.Version++
	order.UpdatedAt = now
	order.ClearDomainEvents()
	return nil
}

// SummarizeByStatus counts orders and sums their totals per status.
// uuid.Nil summarizes every vendor.
func (r *GormPurchaseOrderRepository) SummarizeByStatus(ctx context.Context, vendorID uuid.UUID) ([]procurement.StatusSummary, error) {
	var rows []struct {
		Status string
		Count  int64
		Amount decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount")
	if vendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]procurement.StatusSummary, len(rows))
	for i, row := range rows {
		out[i] = procurement.StatusSummary{
			Status: procurement.PurchaseOrderStatus(row.Status),
			Count:  row.Count,
			Amount: row.Amount,
		}
	}
	return out, nil
}

// SummarizeByDay buckets orders created in [from, to) by UTC calendar day.
// Days without orders are omitted.
func (r *GormPurchaseOrderRepository) SummarizeByDay(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]procurement.DailySummary, error) {
	var rows []struct {
		CreatedAt   time.Time
		TotalAmount decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Select("created_at, total_amount").
		Where("created_at >= ? AND created_at < ?", from, to)
	if vendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	buckets := make(map[time.Time]*procurement.DailySummary)
	for _, row := range rows {
		t := row.CreatedAt.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := buckets[day]
		if !ok {
			b = &procurement.DailySummary{Day: day, Amount: decimal.Zero}
			buckets[day] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(row.TotalAmount)
	}

	out := make([]procurement.DailySummary, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// CountFailedQualityChecks counts orders whose latest inspection failed
func (r *GormPurchaseOrderRepository) CountFailedQualityChecks(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("quality_status = ?", string(procurement.QualityFailed))
	if vendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountOpenCounterOffers counts live orders holding an unanswered vendor counter-offer
func (r *GormPurchaseOrderRepository) CountOpenCounterOffers(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("vendor_response_status = ?", string(procurement.VendorResponseCounterOffer)).
		Where("status NOT IN ?", []string{
			string(procurement.POStatusCompleted),
			string(procurement.POStatusCancelled),
			string(procurement.POStatusRejected),
		})
	if vendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// filtered builds a fresh query for filter so count and page queries do not share state.
func (r *GormPurchaseOrderRepository) filtered(ctx context.Context, filter procurement.PurchaseOrderFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(po_number) LIKE ? OR LOWER(vendor_name) LIKE ?", pattern, pattern)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.DepotID != nil {
		query = query.Where("depot_id = ?", *filter.DepotID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if filter.ExpectedBefore != nil {
		query = query.Where("expected_delivery_date IS NOT NULL AND expected_delivery_date < ?", *filter.ExpectedBefore)
	}
	return query
}

func (r *GormPurchaseOrderRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

func toPurchaseOrders(rows []models.PurchaseOrderModel) []procurement.PurchaseOrder {
	out := make([]procurement.PurchaseOrder, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

func concurrentModification(entity string) error {
	return shared.NewDomainError(shared.CodeConcurrentModification,
		fmt.Sprintf("The %s has been modified by another user", entity))
}
