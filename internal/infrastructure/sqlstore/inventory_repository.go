package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (*dominv.Record, error) {
	var m inventoryModel
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dominv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get inventory: %w", err)
	}
	return m.toDomain(), nil
}

// Save upserts the record keyed by product id.
func (r *InventoryRepository) Save(ctx context.Context, record *dominv.Record) error {
	if record == nil || record.ProductID == "" {
		return dominv.ErrProductIDRequired
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"available_quantity", "updated_at"}),
	}).Create(inventoryFromDomain(record)).Error
	if err != nil {
		return fmt.Errorf("sqlstore: save inventory: %w", err)
	}
	return nil
}

// Decrement runs a single relative UPDATE so concurrent deductions never overwrite
// each other. Sufficiency is not checked.
func (r *InventoryRepository) Decrement(ctx context.Context, productID string, quantity int) (int, error) {
	var remaining int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&inventoryModel{}).
			Where("product_id = ?", productID).
			Updates(map[string]any{
				"available_quantity": gorm.Expr("available_quantity - ?", quantity),
				"updated_at":         time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return dominv.ErrNotFound
		}

		var m inventoryModel
		if err := tx.Where("product_id = ?", productID).First(&m).Error; err != nil {
			return err
		}
		remaining = m.AvailableQuantity
		return nil
	})
	if errors.Is(err, dominv.ErrNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("sqlstore: decrement inventory: %w", err)
	}
	return remaining, nil
}
