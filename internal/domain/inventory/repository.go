package inventory

import (
	"context"
)

type Repository interface {
	// Get returns ErrNotFound when no record exists for productID.
	Get(ctx context.Context, productID string) (*Record, error)
	// Save creates or replaces the record.
	Save(ctx context.Context, record *Record) error
	// Decrement subtracts quantity in a single atomic step and returns the new
	// available quantity. It returns ErrNotFound for unknown products and never
	// checks that enough stock is left.
	Decrement(ctx context.Context, productID string, quantity int) (int, error)
}
