package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
)

// AlwaysApprove approves every capture.
type AlwaysApprove struct{}

func (AlwaysApprove) Authorize(ctx context.Context, _ *dompay.Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Simulated approves a capture with probability successRate.
type Simulated struct {
	mu          sync.Mutex
	random      *rand.Rand
	successRate float64
}

// NewSimulated builds a simulated gateway. A zero seed picks one from the clock.
func NewSimulated(successRate float64, seed int64) *Simulated {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Simulated{random: rand.New(rand.NewSource(seed))}
	g.SetSuccessRate(successRate)
	return g
}

func (g *Simulated) Authorize(ctx context.Context, _ *dompay.Record) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// respect cancellation even though this is mocked
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	return g.random.Float64() < g.successRate, nil
}

// SetSuccessRate clamps rate into [0, 1].
func (g *Simulated) SetSuccessRate(rate float64) {
	g.mu.Lock()
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	g.successRate = rate
	g.mu.Unlock()
}

func (g *Simulated) SuccessRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.successRate
}
