package sqlstore

import (
	"context"
	"errors"
	"fmt"

	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Save inserts or overwrites the payment row.
func (r *PaymentRepository) Save(ctx context.Context, record *dompay.Record) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("sqlstore: payment id is required")
	}
	if err := r.db.WithContext(ctx).Save(paymentFromDomain(record)).Error; err != nil {
		return fmt.Errorf("sqlstore: save payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*dompay.Record, error) {
	var m paymentModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dompay.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get payment: %w", err)
	}
	return m.toDomain(), nil
}
