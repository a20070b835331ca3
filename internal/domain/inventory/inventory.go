package inventory

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/shared"
)

var (
	ErrNotFound          = fmt.Errorf("%w: inventory: product not found", shared.ErrNotFound)
	ErrProductIDRequired = fmt.Errorf("%w: inventory: product id is required", shared.ErrInvalidArgument)
	ErrInvalidQuantity   = fmt.Errorf("%w: inventory: quantity must be zero or greater", shared.ErrInvalidArgument)
)

// Record is the available stock of a single product.
type Record struct {
	ProductID         string
	AvailableQuantity int
	UpdatedAt         time.Time
}

func NewRecord(productID string, quantity int) (*Record, error) {
	if productID == "" {
		return nil, ErrProductIDRequired
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Record{
		ProductID:         productID,
		AvailableQuantity: quantity,
		UpdatedAt:         time.Now().UTC(),
	}, nil
}

// Covers reports whether the record can satisfy quantity units.
func (r *Record) Covers(quantity int) bool {
	return r != nil && r.AvailableQuantity >= quantity
}

// Deduct subtracts quantity without checking sufficiency. Callers are expected to
// have asked Covers first; the result may go negative when they did not.
func (r *Record) Deduct(quantity int) {
	r.AvailableQuantity -= quantity
	r.touch()
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

func (r *Record) touch() {
	r.UpdatedAt = time.Now().UTC()
}
