package sqlstore

import (
	"context"
	"errors"
	"fmt"

	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domorder.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("sqlstore: order id is required")
	}
	err := r.db.WithContext(ctx).Create(orderFromDomain(order)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domorder.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlstore: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domorder.Order, error) {
	var m orderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domorder.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get order: %w", err)
	}
	return m.toDomain(), nil
}

// Len reports how many orders are stored.
func (r *OrderRepository) Len(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&orderModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("sqlstore: count orders: %w", err)
	}
	return int(n), nil
}
