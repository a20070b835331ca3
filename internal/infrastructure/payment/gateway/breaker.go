package gateway

import (
	"context"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/sony/gobreaker"
)

// Breaker stops calling the wrapped gateway after maxFailures consecutive errors
// and fails fast until openTimeout has passed. Declines are not failures.
type Breaker struct {
	next dompay.Gateway
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next dompay.Gateway, maxFailures uint32, openTimeout time.Duration) *Breaker {
	if maxFailures == 0 {
		maxFailures = 1
	}
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "payment-gateway",
			Timeout: openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
		}),
	}
}

func (b *Breaker) Authorize(ctx context.Context, record *dompay.Record) (bool, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Authorize(ctx, record)
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// State reports "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
