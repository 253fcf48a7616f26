package models

import "time"

// DocumentCounterModel is the atomic sequence row for one (entity type, year) series.
type DocumentCounterModel struct {
	EntityType string    `gorm:"type:varchar(50);primaryKey"`
	Year       int       `gorm:"primaryKey"`
	Value      int64     `gorm:"not null;default:0"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentCounterModel) TableName() string {
	return "document_counters"
}
