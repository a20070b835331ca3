package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
)

type AttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]*domain.Attempt
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{
		attempts: make(map[string]*domain.Attempt),
	}
}

func (r *AttemptRepository) Save(ctx context.Context, attempt *domain.Attempt) error {
	_ = ctx
	if attempt == nil || attempt.ID == "" {
		return domain.ErrAttemptIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts[attempt.ID] = attempt.Clone()
	return nil
}

func (r *AttemptRepository) Get(ctx context.Context, id string) (*domain.Attempt, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	attempt, ok := r.attempts[id]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return attempt.Clone(), nil
}
