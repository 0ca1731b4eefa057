package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/beautyhaven/storefront/internal/models"
)

// OrderRecord archives a completed order. The full order snapshot is
// kept as JSON next to the queryable columns.
type OrderRecord struct {
	ID        string `gorm:"primaryKey"`
	Reference string `gorm:"uniqueIndex;not null"`
	Method    string `gorm:"not null"`
	Total     float64
	Payload   string `gorm:"not null"`
	CreatedAt time.Time
}

func (OrderRecord) TableName() string {
	return "orders"
}

type OrderArchive struct {
	DB *gorm.DB
}

func (a *OrderArchive) Record(ctx context.Context, o models.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("serialize order: %w", err)
	}

	record := OrderRecord{
		ID:        o.ID,
		Reference: o.Reference,
		Method:    string(o.Method),
		Total:     o.Total,
		Payload:   string(payload),
		CreatedAt: o.CreatedAt,
	}
	if err := a.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("archive order: %w", err)
	}
	return nil
}

// AutoMigrate creates the storage tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&KVEntry{}, &OrderRecord{})
}
