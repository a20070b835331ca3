package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentService   = "payment-service"
	useCaseCapture   = "payment.capture"
	gatewayPeer      = "payment_gateway"
	gatewayEndpoint  = "authorize"
	paymentDeclined  = "payment_declined"
	gatewayFailedTxt = "GATEWAY_FAILED"
)

var ErrGatewayRequired = errors.New("payment: gateway is required")

// Service is the payment processor. It asks the gateway and records the answer.
type Service struct {
	repo    dompay.Repository
	gateway dompay.Gateway
	ids     IDGenerator
	inst    application.Instrumentation

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewService(repo dompay.Repository, gateway dompay.Gateway, ids IDGenerator, tel observability.Observability) *Service {
	_, _, metrics := observability.Resolve(tel)
	return &Service{
		repo:         repo,
		gateway:      gateway,
		ids:          ids,
		inst:         application.NewInstrumentation(paymentService, tel),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// Capture settles record through the gateway. An approved capture is stored as
// SUCCESS and reported true; a decline is stored as FAILED and reported false.
// A gateway error leaves the record PENDING and unsaved.
func (s *Service) Capture(ctx context.Context, record *dompay.Record) (captured bool, err error) {
	if record == nil {
		return false, dompay.ErrPaymentRequired
	}

	ctx, run := s.inst.Start(ctx, useCaseCapture, "Capture",
		[]attribute.KeyValue{
			attribute.String("payment.order_reference", record.OrderReference),
			attribute.String("payment.amount", record.Amount.String()),
		},
		observability.F("order_reference", record.OrderReference),
		observability.F("amount", record.Amount.String()),
	)
	defer func() {
		run.Span().SetAttributes(attribute.String("payment.status", string(record.Status)))
		run.With(
			observability.F("payment_id", record.ID),
			observability.F("payment_status", string(record.Status)),
		)
		run.End(err)
	}()

	if record.Settled() {
		run.Fail("ALREADY_SETTLED")
		return false, dompay.ErrAlreadySettled
	}
	if record.Amount.IsNegative() {
		run.Fail("AMOUNT_INVALID")
		return false, dompay.ErrInvalidAmount
	}
	if s.gateway == nil {
		run.Fail(gatewayFailedTxt)
		return false, ErrGatewayRequired
	}
	if record.ID == "" && s.ids != nil {
		record.ID = s.ids.NewID()
	}

	approved, err := s.authorize(ctx, record)
	if err != nil {
		run.Fail(gatewayFailedTxt)
		return false, fmt.Errorf("payment: authorize: %w", err)
	}

	if approved {
		err = record.MarkSucceeded()
	} else {
		err = record.MarkFailed()
	}
	if err != nil {
		run.Fail("STATE_TRANSITION_FAILED")
		return false, err
	}

	if err = s.repo.Save(ctx, record.Clone()); err != nil {
		run.Fail("SAVE_FAILED")
		return false, fmt.Errorf("payment: save: %w", err)
	}

	if !approved {
		run.Set(application.OutcomeRejected, "DECLINED")
		run.With(observability.F("failure_reason", paymentDeclined))
		return false, nil
	}
	return true, nil
}

func (s *Service) Get(ctx context.Context, id string) (*dompay.Record, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("payment: get: %w", err)
	}
	return record, nil
}

func (s *Service) authorize(ctx context.Context, record *dompay.Record) (bool, error) {
	start := time.Now()
	approved, err := s.gateway.Authorize(ctx, record)

	outcome := "approved"
	switch {
	case err != nil:
		outcome = "error"
	case !approved:
		outcome = "declined"
	}
	s.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayEndpoint),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayEndpoint),
	)
	return approved, err
}
