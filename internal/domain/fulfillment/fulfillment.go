package fulfillment

import (
	"fmt"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrRequestRequired   = fmt.Errorf("%w: fulfillment: request is required", shared.ErrInvalidArgument)
	ErrProductIDRequired = fmt.Errorf("%w: fulfillment: product id is required", shared.ErrInvalidArgument)
	ErrInvalidQuantity   = fmt.Errorf("%w: fulfillment: quantity must be greater than zero", shared.ErrInvalidArgument)
	ErrInvalidAmount     = fmt.Errorf("%w: fulfillment: amount must be zero or greater", shared.ErrInvalidArgument)
	ErrAttemptNotFound   = fmt.Errorf("%w: fulfillment: attempt not found", shared.ErrNotFound)
	ErrAttemptIDRequired = fmt.Errorf("%w: fulfillment: attempt id is required", shared.ErrInvalidArgument)
)

// Request asks for quantity units of a product to be sold for amount.
type Request struct {
	ProductID string
	Quantity  int
	Amount    decimal.Decimal
}

// Validate checks the shape of the request only. An empty product id is left to the
// inventory ledger, which owns that rule.
func (r *Request) Validate() error {
	if r == nil {
		return ErrRequestRequired
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

type Outcome string

const (
	OutcomeSuccess               Outcome = "success"
	OutcomeInsufficientInventory Outcome = "insufficient_inventory"
	OutcomePaymentFailed         Outcome = "payment_failed"
)

// Message is the human readable text shown by presentation layers.
func (o Outcome) Message() string {
	switch o {
	case OutcomeSuccess:
		return "processed successfully"
	case OutcomeInsufficientInventory:
		return "insufficient inventory"
	case OutcomePaymentFailed:
		return "payment processing failed"
	default:
		return string(o)
	}
}
