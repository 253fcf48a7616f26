package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"gorm.io/gorm"
)

const nextCounterSQL = `INSERT INTO document_counters (entity_type, year, value, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (entity_type, year) DO UPDATE SET value = document_counters.value + 1, updated_at = excluded.updated_at
RETURNING value`

// CounterRepository is the database-backed procurement.NumberSequence.
// The upsert is a single statement, so concurrent callers serialize on the row lock.
type CounterRepository struct {
	db *gorm.DB
}

// NewCounterRepository creates a new CounterRepository
func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Next atomically advances the (docType, year) counter and returns the new value
func (r *CounterRepository) Next(ctx context.Context, docType procurement.DocumentType, year int) (int64, error) {
	var value int64
	res := r.db.WithContext(ctx).Raw(nextCounterSQL, string(docType), year, time.Now()).Scan(&value)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to advance counter %s/%d: %w", docType, year, res.Error)
	}
	if res.RowsAffected == 0 || value < 1 {
		return 0, fmt.Errorf("counter %s/%d returned no value", docType, year)
	}
	return value, nil
}

// Current returns the last issued value, or 0 when the series has not started
func (r *CounterRepository) Current(ctx context.Context, docType procurement.DocumentType, year int) (int64, error) {
	var value int64
	if err := r.db.WithContext(ctx).
		Table("document_counters").
		Select("value").
		Where("entity_type = ? AND year = ?", string(docType), year).
		Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}
