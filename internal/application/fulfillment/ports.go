package fulfillment

import (
	"context"

	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
)

// InventoryLedger answers availability and applies deductions. Deduct must not
// re-check sufficiency.
type InventoryLedger interface {
	CheckAvailability(ctx context.Context, productID string, quantity int) (bool, error)
	Deduct(ctx context.Context, productID string, quantity int) error
}

// PaymentProcessor captures a pending payment. false with a nil error is a decline.
type PaymentProcessor interface {
	Capture(ctx context.Context, record *dompay.Record) (bool, error)
}

type OrderLedger interface {
	Create(ctx context.Context, order *domorder.Order) (*domorder.Order, error)
}

type IDGenerator interface {
	NewID() string
}

// AttemptPublisher receives the finished attempt. Delivery is best effort.
type AttemptPublisher interface {
	Publish(ctx context.Context, e domoutbox.Event) error
}
