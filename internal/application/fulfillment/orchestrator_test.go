package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calls is the ordered log shared by every spy in one test.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, name)
}

// guard runs fn under the log lock so spies can mutate their own state from
// concurrent Fulfill calls.
func (c *calls) guard(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *calls) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

type spyInventory struct {
	calls     *calls
	available bool
	checkErr  error
	deductErr error

	deducted []int
}

func (s *spyInventory) CheckAvailability(_ context.Context, productID string, quantity int) (bool, error) {
	s.calls.add("check")
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.available, nil
}

func (s *spyInventory) Deduct(_ context.Context, _ string, quantity int) error {
	s.calls.add("deduct")
	if s.deductErr != nil {
		return s.deductErr
	}
	s.calls.guard(func() { s.deducted = append(s.deducted, quantity) })
	return nil
}

type spyPayments struct {
	calls    *calls
	approve  bool
	err      error
	captured []*dompay.Record
}

func (s *spyPayments) Capture(_ context.Context, rec *dompay.Record) (bool, error) {
	s.calls.add("capture")
	rec.ID = "pay-1"
	s.calls.guard(func() { s.captured = append(s.captured, rec.Clone()) })
	if s.err != nil {
		return false, s.err
	}
	return s.approve, nil
}

type spyOrders struct {
	calls   *calls
	err     error
	created []*domorder.Order
}

func (s *spyOrders) Create(_ context.Context, o *domorder.Order) (*domorder.Order, error) {
	s.calls.add("create")
	if s.err != nil {
		return nil, s.err
	}
	stored := o.Clone()
	stored.MarkCreated()
	s.calls.guard(func() { s.created = append(s.created, stored) })
	return stored.Clone(), nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type spyPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *spyPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type fixture struct {
	calls     *calls
	inventory *spyInventory
	payments  *spyPayments
	orders    *spyOrders
	publisher *spyPublisher
	orch      *Orchestrator
}

func newFixture() *fixture {
	c := &calls{}
	f := &fixture{
		calls:     c,
		inventory: &spyInventory{calls: c, available: true},
		payments:  &spyPayments{calls: c, approve: true},
		orders:    &spyOrders{calls: c},
		publisher: &spyPublisher{},
	}
	f.orch = NewOrchestrator(f.inventory, f.payments, f.orders, &seqIDs{}, f.publisher, nil)
	return f
}

func validRequest() *domain.Request {
	return &domain.Request{ProductID: "PROD123", Quantity: 5, Amount: decimal.RequireFromString("49.95")}
}

func stepNames(res *Result) []domain.StepName {
	out := make([]domain.StepName, 0, len(res.Steps))
	for _, s := range res.Steps {
		out = append(out, s.Name)
	}
	return out
}

func TestFulfillSuccess(t *testing.T) {
	f := newFixture()

	res, err := f.orch.Fulfill(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "processed successfully", res.Message())
	assert.Equal(t, domain.StageDone, res.Stage)
	assert.Equal(t, []string{"check", "capture", "create", "deduct"}, f.calls.names())
	assert.Equal(t, []domain.StepName{
		domain.StepCheckInventory, domain.StepCapturePayment, domain.StepCreateOrder, domain.StepDeductInventory,
	}, stepNames(res))
	assert.Equal(t, []int{5}, f.inventory.deducted)

	require.Len(t, f.orders.created, 1)
	order := f.orders.created[0]
	assert.Equal(t, res.OrderID, order.ID)
	assert.Equal(t, domorder.StatusCreated, order.Status)
	assert.Equal(t, "PROD123", order.ProductID)
	assert.Equal(t, 5, order.Quantity)
	assert.True(t, order.Amount.Equal(decimal.RequireFromString("49.95")))

	require.Len(t, f.payments.captured, 1)
	assert.Equal(t, order.ID, f.payments.captured[0].OrderReference)
	assert.True(t, f.payments.captured[0].Amount.Equal(decimal.RequireFromString("49.95")))
	assert.Equal(t, "pay-1", res.PaymentID)
}

func TestFulfillInsufficientInventory(t *testing.T) {
	f := newFixture()
	f.inventory.available = false

	res, err := f.orch.Fulfill(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeInsufficientInventory, res.Outcome)
	assert.Equal(t, "insufficient inventory", res.Message())
	assert.Equal(t, domain.StageRejectedInventory, res.Stage)
	assert.Equal(t, []string{"check"}, f.calls.names())
	assert.True(t, res.Ran(domain.StepCheckInventory))
	assert.False(t, res.Ran(domain.StepCapturePayment))
	assert.Empty(t, res.OrderID)
	assert.Empty(t, res.PaymentID)
}

func TestFulfillPaymentDeclined(t *testing.T) {
	f := newFixture()
	f.payments.approve = false

	res, err := f.orch.Fulfill(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePaymentFailed, res.Outcome)
	assert.Equal(t, "payment processing failed", res.Message())
	assert.Equal(t, domain.StageRejectedPayment, res.Stage)
	assert.Equal(t, []string{"check", "capture"}, f.calls.names())
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.inventory.deducted)
	assert.Equal(t, domain.StepRejected, res.Steps[1].Status)
}

func TestFulfillInvalidRequestsCallNothing(t *testing.T) {
	tests := []struct {
		name string
		req  *domain.Request
	}{
		{"nil", nil},
		{"zero quantity", &domain.Request{ProductID: "PROD123", Quantity: 0}},
		{"negative quantity", &domain.Request{ProductID: "PROD123", Quantity: -1}},
		{"negative amount", &domain.Request{ProductID: "PROD123", Quantity: 1, Amount: decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			res, err := f.orch.Fulfill(context.Background(), tt.req)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, shared.ErrInvalidArgument)
			assert.Empty(t, f.calls.names())
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestFulfillCollaboratorErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		setup     func(f *fixture)
		wantCalls []string
		wantMsg   string
	}{
		{
			name:      "availability",
			setup:     func(f *fixture) { f.inventory.checkErr = boom },
			wantCalls: []string{"check"},
			wantMsg:   "fulfillment: check inventory: boom",
		},
		{
			name:      "payment",
			setup:     func(f *fixture) { f.payments.err = boom },
			wantCalls: []string{"check", "capture"},
			wantMsg:   "fulfillment: capture payment: boom",
		},
		{
			name:      "order",
			setup:     func(f *fixture) { f.orders.err = boom },
			wantCalls: []string{"check", "capture", "create"},
			wantMsg:   "fulfillment: create order: boom",
		},
		{
			name:      "deduction",
			setup:     func(f *fixture) { f.inventory.deductErr = boom },
			wantCalls: []string{"check", "capture", "create", "deduct"},
			wantMsg:   "fulfillment: deduct inventory: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			res, err := f.orch.Fulfill(context.Background(), validRequest())
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.EqualError(t, err, tt.wantMsg)

			require.NotNil(t, res)
			assert.Equal(t, domain.StageFailed, res.Stage)
			assert.Empty(t, res.Outcome)
			assert.Equal(t, tt.wantCalls, f.calls.names())
			assert.Len(t, res.Steps, len(tt.wantCalls))
			assert.Equal(t, domain.StepErrored, res.Steps[len(res.Steps)-1].Status)

			require.Len(t, f.publisher.events, 1)
			evt, ok := f.publisher.events[0].(domain.AttemptFinishedEvent)
			require.True(t, ok)
			assert.Equal(t, res.Stage, evt.Attempt.Stage, "returned and published stage agree")
		})
	}
}

func TestFulfillOrderFailureSkipsDeduction(t *testing.T) {
	f := newFixture()
	f.orders.err = errors.New("insert failed")

	res, err := f.orch.Fulfill(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, res.Ran(domain.StepCapturePayment))
	assert.False(t, res.Ran(domain.StepDeductInventory))
	assert.Empty(t, f.inventory.deducted)
	assert.Empty(t, res.OrderID)
}

func TestFulfillPublishesEveryAttempt(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("bus closed")

	res, err := f.orch.Fulfill(context.Background(), validRequest())
	require.NoError(t, err, "publish errors never change the outcome")
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)

	f.inventory.checkErr = errors.New("db down")
	_, err = f.orch.Fulfill(context.Background(), validRequest())
	require.Error(t, err)

	require.Len(t, f.publisher.events, 2)
	first, ok := f.publisher.events[0].(domain.AttemptFinishedEvent)
	require.True(t, ok)
	assert.Equal(t, res.AttemptID, first.Attempt.ID)
	assert.Equal(t, domain.StageDone, first.Attempt.Stage)

	second := f.publisher.events[1].(domain.AttemptFinishedEvent)
	assert.Equal(t, domain.StageFailed, second.Attempt.Stage)
	assert.Contains(t, second.Attempt.Error, "db down")
}

func TestFulfillMissingCollaborator(t *testing.T) {
	orch := NewOrchestrator(nil, nil, nil, nil, nil, nil)
	res, err := orch.Fulfill(context.Background(), validRequest())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, errMissingCollaborator)
}

func TestFulfillIsSequentialPerCall(t *testing.T) {
	f := newFixture()
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.Fulfill(context.Background(), validRequest())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	counts := map[string]int{}
	for _, name := range f.calls.names() {
		counts[name]++
	}
	assert.Equal(t, map[string]int{"check": n, "capture": n, "create": n, "deduct": n}, counts)
	assert.Len(t, f.inventory.deducted, n)
	assert.Len(t, f.payments.captured, n)
	assert.Len(t, f.orders.created, n)
}
