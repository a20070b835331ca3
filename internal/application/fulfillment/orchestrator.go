package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	fulfillmentService = "fulfillment-service"
	useCaseFulfill     = "fulfillment.fulfill"
	publishPeer        = "outbox"
	publishEndpoint    = "fulfillment.attempt_finished"
	publishTimeout     = 300 * time.Millisecond
)

var errMissingCollaborator = errors.New("fulfillment: collaborator not configured")

// Result describes a finished attempt. It is returned for every outcome and,
// on a collaborator failure, alongside the error.
type Result struct {
	AttemptID string
	Outcome   domain.Outcome
	Stage     domain.Stage
	Steps     []domain.Step
	OrderID   string
	PaymentID string
}

// Message is the human readable text of the outcome.
func (r *Result) Message() string {
	if r == nil || r.Outcome == "" {
		return ""
	}
	return r.Outcome.Message()
}

// Ran reports whether step was invoked.
func (r *Result) Ran(step domain.StepName) bool {
	if r == nil {
		return false
	}
	for _, s := range r.Steps {
		if s.Name == step {
			return true
		}
	}
	return false
}

// Orchestrator runs the four step fulfillment workflow: availability, payment,
// order creation, deduction. A negative answer stops the run; nothing is undone.
type Orchestrator struct {
	inventory InventoryLedger
	payments  PaymentProcessor
	orders    OrderLedger
	ids       IDGenerator
	publisher AttemptPublisher

	inst         application.Instrumentation
	outcomes     observability.Counter // fulfillment_outcomes_total{outcome,stage}
	steps        observability.Counter // fulfillment_steps_total{step,status}
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewOrchestrator(
	inventory InventoryLedger,
	payments PaymentProcessor,
	orders OrderLedger,
	ids IDGenerator,
	publisher AttemptPublisher,
	tel observability.Observability,
) *Orchestrator {
	_, _, metrics := observability.Resolve(tel)
	return &Orchestrator{
		inventory:    inventory,
		payments:     payments,
		orders:       orders,
		ids:          ids,
		publisher:    publisher,
		inst:         application.NewInstrumentation(fulfillmentService, tel),
		outcomes:     metrics.Counter(observability.MFulfillmentOutcomes),
		steps:        metrics.Counter(observability.MFulfillmentSteps),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// Execute adapts Fulfill to the generic use case shape.
func (o *Orchestrator) Execute(ctx context.Context, req *domain.Request) (*Result, error) {
	return o.Fulfill(ctx, req)
}

// Fulfill coordinates one attempt. Invalid requests fail before any collaborator
// is called and yield no Result.
func (o *Orchestrator) Fulfill(ctx context.Context, req *domain.Request) (_ *Result, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if o.inventory == nil || o.payments == nil || o.orders == nil || o.ids == nil {
		return nil, errMissingCollaborator
	}

	attempt := domain.NewAttempt(o.ids.NewID(), *req)

	ctx, run := o.inst.Start(ctx, useCaseFulfill, "Fulfill",
		[]attribute.KeyValue{
			attribute.String("fulfillment.attempt_id", attempt.ID),
			attribute.String("product.id", req.ProductID),
			attribute.Int("fulfillment.quantity", req.Quantity),
			attribute.String("fulfillment.amount", req.Amount.String()),
		},
		observability.F("attempt_id", attempt.ID),
		observability.F("product_id", req.ProductID),
		observability.F("quantity", req.Quantity),
		observability.F("amount", req.Amount.String()),
	)

	defer func() {
		if err != nil {
			attempt.Error = err.Error()
		}
		o.outcomes.Add(1,
			observability.L("outcome", outcomeLabel(attempt.Outcome)),
			observability.L("stage", string(attempt.Stage)),
		)
		run.Span().SetAttributes(
			attribute.String("fulfillment.stage", string(attempt.Stage)),
			attribute.String("fulfillment.outcome", outcomeLabel(attempt.Outcome)),
		)
		run.With(
			observability.F("stage", string(attempt.Stage)),
			observability.F("fulfillment_outcome", outcomeLabel(attempt.Outcome)),
			observability.F("steps", len(attempt.Steps)),
		)
		if attempt.OrderID != "" {
			run.With(observability.F("order_id", attempt.OrderID))
		}
		if attempt.PaymentID != "" {
			run.With(observability.F("payment_id", attempt.PaymentID))
		}
		if pubErr := o.publish(ctx, attempt); pubErr != nil {
			run.With(observability.F("attempt_event_error", pubErr.Error()))
		}
		run.End(err)
	}()

	// 1. availability
	if err = attempt.Advance(domain.StageCheckingInventory); err != nil {
		return o.fail(run, attempt, err)
	}
	available, err := o.inventory.CheckAvailability(ctx, req.ProductID, req.Quantity)
	if err != nil {
		o.record(attempt, domain.StepCheckInventory, domain.StepErrored, err)
		return o.fail(run, attempt, fmt.Errorf("fulfillment: check inventory: %w", err))
	}
	if !available {
		o.record(attempt, domain.StepCheckInventory, domain.StepRejected, nil)
		return o.reject(run, attempt, domain.StageRejectedInventory, domain.OutcomeInsufficientInventory)
	}
	o.record(attempt, domain.StepCheckInventory, domain.StepPassed, nil)
	addEvent(run.Span(), "inventory.available")

	// 2. payment, referencing the order id reserved up front
	if err = attempt.Advance(domain.StageCheckingPayment); err != nil {
		return o.fail(run, attempt, err)
	}
	orderID := o.ids.NewID()
	payment, err := dompay.New("", orderID, req.Amount)
	if err != nil {
		return o.fail(run, attempt, fmt.Errorf("fulfillment: build payment: %w", err))
	}
	captured, err := o.payments.Capture(ctx, payment)
	attempt.PaymentID = payment.ID
	if err != nil {
		o.record(attempt, domain.StepCapturePayment, domain.StepErrored, err)
		return o.fail(run, attempt, fmt.Errorf("fulfillment: capture payment: %w", err))
	}
	if !captured {
		o.record(attempt, domain.StepCapturePayment, domain.StepRejected, nil)
		return o.reject(run, attempt, domain.StageRejectedPayment, domain.OutcomePaymentFailed)
	}
	o.record(attempt, domain.StepCapturePayment, domain.StepPassed, nil)
	addEvent(run.Span(), "payment.captured")

	// 3. order
	if err = attempt.Advance(domain.StageCreatingOrder); err != nil {
		return o.fail(run, attempt, err)
	}
	pending, err := domorder.New(orderID, req.ProductID, req.Quantity, req.Amount)
	if err != nil {
		return o.fail(run, attempt, fmt.Errorf("fulfillment: build order: %w", err))
	}
	created, err := o.orders.Create(ctx, pending)
	if err != nil {
		o.record(attempt, domain.StepCreateOrder, domain.StepErrored, err)
		return o.fail(run, attempt, fmt.Errorf("fulfillment: create order: %w", err))
	}
	attempt.OrderID = created.ID
	o.record(attempt, domain.StepCreateOrder, domain.StepPassed, nil)
	addEvent(run.Span(), "order.created")

	// 4. deduction, no re-check
	if err = attempt.Advance(domain.StageDeductingInventory); err != nil {
		return o.fail(run, attempt, err)
	}
	if err = o.inventory.Deduct(ctx, req.ProductID, req.Quantity); err != nil {
		o.record(attempt, domain.StepDeductInventory, domain.StepErrored, err)
		return o.fail(run, attempt, fmt.Errorf("fulfillment: deduct inventory: %w", err))
	}
	o.record(attempt, domain.StepDeductInventory, domain.StepPassed, nil)

	if err = attempt.Advance(domain.StageDone); err != nil {
		return o.fail(run, attempt, err)
	}
	attempt.Outcome = domain.OutcomeSuccess
	return resultOf(attempt), nil
}

func (o *Orchestrator) record(attempt *domain.Attempt, step domain.StepName, status domain.StepStatus, err error) {
	attempt.Record(step, status, err)
	o.steps.Add(1,
		observability.L("step", string(step)),
		observability.L("status", string(status)),
	)
}

func (o *Orchestrator) reject(run *application.Run, attempt *domain.Attempt, stage domain.Stage, outcome domain.Outcome) (*Result, error) {
	if err := attempt.Advance(stage); err != nil {
		return o.fail(run, attempt, err)
	}
	attempt.Outcome = outcome
	run.Set(application.OutcomeRejected, string(stage))
	return resultOf(attempt), nil
}

// fail moves the attempt to FAILED when the stage machine allows it. The Result
// is taken after the move so it reports the final stage.
func (o *Orchestrator) fail(run *application.Run, attempt *domain.Attempt, err error) (*Result, error) {
	if attempt.Stage.CanTransitionTo(domain.StageFailed) {
		_ = attempt.Advance(domain.StageFailed)
	}
	run.Fail(string(domain.StageFailed))
	return resultOf(attempt), err
}

func (o *Orchestrator) publish(ctx context.Context, attempt *domain.Attempt) error {
	if o.publisher == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	start := time.Now()
	err := o.publisher.Publish(pubCtx, domain.NewAttemptFinishedEvent(attempt))
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	cancel()

	o.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
		observability.L("outcome", outcome),
	)
	o.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
	)
	return err
}

func resultOf(attempt *domain.Attempt) *Result {
	return &Result{
		AttemptID: attempt.ID,
		Outcome:   attempt.Outcome,
		Stage:     attempt.Stage,
		Steps:     append([]domain.Step(nil), attempt.Steps...),
		OrderID:   attempt.OrderID,
		PaymentID: attempt.PaymentID,
	}
}

func outcomeLabel(o domain.Outcome) string {
	if o == "" {
		return "error"
	}
	return string(o)
}

func addEvent(span trace.Span, name string) {
	if span != nil {
		span.AddEvent(name)
	}
}
