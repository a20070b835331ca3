package order

import "context"

type Repository interface {
	// Insert stores a new order and fails with ErrConflict when the id is taken.
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
}
