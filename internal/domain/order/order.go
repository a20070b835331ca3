package order

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = fmt.Errorf("%w: order: not found", shared.ErrNotFound)
	ErrConflict          = fmt.Errorf("order: already exists")
	ErrOrderRequired     = fmt.Errorf("%w: order: order is required", shared.ErrInvalidArgument)
	ErrProductIDRequired = fmt.Errorf("%w: order: product id is required", shared.ErrInvalidArgument)
	ErrInvalidQuantity   = fmt.Errorf("%w: order: quantity must be greater than zero", shared.ErrInvalidArgument)
	ErrInvalidAmount     = fmt.Errorf("%w: order: amount must be zero or greater", shared.ErrInvalidArgument)
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusCreated Status = "CREATED"
)

type Order struct {
	ID        string
	ProductID string
	Quantity  int
	Amount    decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a pending order. The id may be empty; the order ledger assigns one on create.
func New(id, productID string, quantity int, amount decimal.Decimal) (*Order, error) {
	if productID == "" {
		return nil, ErrProductIDRequired
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Order{
		ID:        id,
		ProductID: productID,
		Quantity:  quantity,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (o *Order) MarkCreated() {
	o.Status = StatusCreated
	o.touch()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
