package payment

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = fmt.Errorf("%w: payment: not found", shared.ErrNotFound)
	ErrPaymentRequired = fmt.Errorf("%w: payment: payment is required", shared.ErrInvalidArgument)
	ErrInvalidAmount   = fmt.Errorf("%w: payment: amount must be zero or greater", shared.ErrInvalidArgument)
	ErrAlreadySettled  = fmt.Errorf("%w: payment: already settled", shared.ErrInvalidArgument)
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Record is a single capture attempt tied to an order reference.
type Record struct {
	ID             string
	OrderReference string
	Amount         decimal.Decimal
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(id, orderReference string, amount decimal.Decimal) (*Record, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &Record{
		ID:             id,
		OrderReference: orderReference,
		Amount:         amount,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Settled reports whether the record has left PENDING.
func (r *Record) Settled() bool {
	return r.Status != StatusPending
}

func (r *Record) MarkSucceeded() error {
	if r.Settled() {
		return ErrAlreadySettled
	}
	r.Status = StatusSuccess
	r.touch()
	return nil
}

func (r *Record) MarkFailed() error {
	if r.Settled() {
		return ErrAlreadySettled
	}
	r.Status = StatusFailed
	r.touch()
	return nil
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
