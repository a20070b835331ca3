package sqlstore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	"gorm.io/gorm"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Save(ctx context.Context, attempt *domain.Attempt) error {
	if attempt == nil || attempt.ID == "" {
		return domain.ErrAttemptIDRequired
	}
	if err := r.db.WithContext(ctx).Save(attemptFromDomain(attempt)).Error; err != nil {
		return fmt.Errorf("sqlstore: save attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) Get(ctx context.Context, id string) (*domain.Attempt, error) {
	var m attemptModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get attempt: %w", err)
	}
	return m.toDomain(), nil
}
