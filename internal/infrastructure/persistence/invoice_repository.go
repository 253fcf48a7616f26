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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements procurement.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormInvoiceRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

func paymentsByDate(db *gorm.DB) *gorm.DB {
	return db.Order("paid_at ASC")
}

// FindByID finds an invoice with its payment ledger
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Payments", paymentsByDate).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceNumber finds an invoice by its human-readable number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, number string) (*procurement.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Payments", paymentsByDate).
		Where("invoice_number = ?", number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPurchaseOrder returns the invoices billing the given order
func (r *GormInvoiceRepository) FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]procurement.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Payments", paymentsByDate).
		Where("purchase_order_id = ?", purchaseOrderID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInvoices(rows), nil
}

// FindAll returns one page of invoices matching filter and the total match count
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter procurement.InvoiceFilter) ([]procurement.Invoice, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(ctx, filter).
		Preload("Payments", paymentsByDate).
		Order(orderClause(filter.OrderBy, filter.OrderDir, InvoiceSortFields))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.InvoiceModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toInvoices(rows), total, nil
}

// Create inserts the invoice and its pending events in one transaction.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *procurement.Invoice) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.InvoiceModelFromDomain(invoice)
		if err := tx.Omit("Payments").Create(model).Error; err != nil {
			switch {
			case uniqueViolation(err, "invoice_number"):
				return procurement.ErrNumberingConflict
			case uniqueViolation(err, "purchase_order_id"):
				return shared.NewDomainError(shared.CodeAlreadyExists,
					"An invoice already exists for purchase order "+invoice.PONumber)
			}
			return err
		}
		if len(model.Payments) > 0 {
			if err := tx.Create(&model.Payments).Error; err != nil {
				return err
			}
		}
		return r.saveEvents(ctx, tx, invoice.GetDomainEvents())
	})
	if err != nil {
		return err
	}
	invoice.ClearDomainEvents()
	return nil
}

// SaveWithLock updates the invoice under optimistic locking and appends ledger
// entries not yet stored. Ledger rows are never updated or deleted.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *procurement.Invoice) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		res := tx.Model(&models.InvoiceModel{}).
			Where("id = ?", invoice.ID).
			Select("version").
			Scan(&currentVersion)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		if currentVersion != invoice.Version {
			return concurrentModification("invoice")
		}

		model := models.InvoiceModelFromDomain(invoice)
		model.Version = currentVersion + 1
		model.UpdatedAt = now

		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, currentVersion).
			Select("*").
			Omit("id", "created_at", "Payments").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return concurrentModification("invoice")
		}

		var stored []string
		if err := tx.Model(&models.InvoicePaymentModel{}).
			Where("invoice_id = ?", invoice.ID).
			Pluck("transaction_id", &stored).Error; err != nil {
			return err
		}
		known := make(map[string]bool, len(stored))
		for _, id := range stored {
			known[id] = true
		}
		for i := range model.Payments {
			p := &model.Payments[i]
			if known[p.TransactionID] {
				continue
			}
			if err := tx.Create(p).Error; err != nil {
				if uniqueViolation(err, "transaction_id") {
					return procurement.ErrDuplicatePayment
				}
				return err
			}
		}

		return r.saveEvents(ctx, tx, invoice.GetDomainEvents())
	})
	if err != nil {
		return err
	}
	invoice.Version++
	invoice.UpdatedAt = now
	invoice.ClearDomainEvents()
	return nil
}

// SummarizeByStatus aggregates invoice money per status. uuid.Nil summarizes every vendor.
func (r *GormInvoiceRepository) SummarizeByStatus(ctx context.Context, vendorID uuid.UUID) ([]procurement.InvoiceSummary, error) {
	var rows []struct {
		Status      string
		Count       int64
		TotalAmount decimal.Decimal
		PaidAmount  decimal.Decimal
		DueAmount   decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("status, COUNT(*) AS count, " +
			"COALESCE(SUM(total_amount), 0) AS total_amount, " +
			"COALESCE(SUM(paid_amount), 0) AS paid_amount, " +
			"COALESCE(SUM(due_amount), 0) AS due_amount")
	if vendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]procurement.InvoiceSummary, len(rows))
	for i, row := range rows {
		out[i] = procurement.InvoiceSummary{
			Status:      procurement.InvoiceStatus(row.Status),
			Count:       row.Count,
			TotalAmount: row.TotalAmount,
			PaidAmount:  row.PaidAmount,
			DueAmount:   row.DueAmount,
		}
	}
	return out, nil
}

func (r *GormInvoiceRepository) filtered(ctx context.Context, filter procurement.InvoiceFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(invoice_number) LIKE ? OR LOWER(po_number) LIKE ?", pattern, pattern)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.PurchaseOrderID != nil {
		query = query.Where("purchase_order_id = ?", *filter.PurchaseOrderID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where("status IN ?", statuses)
	}
	if len(filter.PaymentStatuses) > 0 {
		statuses := make([]string, len(filter.PaymentStatuses))
		for i, s := range filter.PaymentStatuses {
			statuses[i] = string(s)
		}
		query = query.Where("payment_status IN ?", statuses)
	}
	if filter.From != nil {
		query = query.Where("invoice_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("invoice_date <= ?", *filter.To)
	}
	if filter.OverdueAt != nil {
		query = query.Where("due_date < ? AND due_amount > 0 AND status NOT IN ?", *filter.OverdueAt, []string{
			string(procurement.InvoiceStatusCancelled),
			string(procurement.InvoiceStatusRejected),
			string(procurement.InvoiceStatusPaid),
		})
	}
	return query
}

func (r *GormInvoiceRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

func toInvoices(rows []models.InvoiceModel) []procurement.Invoice {
	out := make([]procurement.Invoice, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}
