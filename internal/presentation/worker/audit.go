package workerpresentation

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	auditWorkerService = "fulfillment_audit_worker"
	useCaseAuditWorker = "fulfillment.worker.attempt_finished"
)

// AuditWorker feeds finished attempts from the bus into the audit trail.
type AuditWorker struct {
	subscriber domoutbox.Subscriber
	useCase    application.UseCase[*domain.Attempt, struct{}]

	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewAuditWorker(
	subscriber domoutbox.Subscriber,
	useCase application.UseCase[*domain.Attempt, struct{}],
	tel observability.Observability,
) *AuditWorker {
	logger, tracer, metrics := observability.Resolve(tel)
	return &AuditWorker{
		subscriber:   subscriber,
		useCase:      useCase,
		log:          logger.With(observability.F("service", auditWorkerService)),
		tracer:       tracer,
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

func (w *AuditWorker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(domain.AttemptFinishedEvent{}.EventName(), w.handleAttemptFinished)
}

func (w *AuditWorker) handleAttemptFinished(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domain.AttemptFinishedEvent)
	if !ok {
		w.count("ignored")
		return nil
	}

	ctx, span := w.tracer.Start(ctx, "UC.AttemptFinished",
		attribute.String("use_case", useCaseAuditWorker),
		attribute.String("event", e.EventName()),
		attribute.String("fulfillment.attempt_id", evt.Attempt.ID),
	)
	ctx = WithEventContext(ctx, logctx.FromOr(ctx, w.log), e, evt.Attempt.ID,
		observability.F("use_case", useCaseAuditWorker),
	)
	logger := logctx.FromOr(ctx, w.log)

	start := time.Now()
	outcome, status := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()
		w.observe(outcome, lat)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
			observability.F("attempt_id", evt.Attempt.ID),
			observability.F("stage", string(evt.Attempt.Stage)),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)

		if err != nil {
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()
	}()

	attempt := evt.Attempt
	if _, err = w.useCase.Execute(ctx, &attempt); err != nil {
		outcome, status = "error", "AUDIT_RECORD_FAILED"
		return fmt.Errorf("worker: record attempt: %w", err)
	}
	return nil
}

func (w *AuditWorker) count(outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCaseAuditWorker),
		observability.L("outcome", outcome),
	)
}

func (w *AuditWorker) observe(outcome string, latencySeconds float64) {
	w.count(outcome)
	w.durHistogram.Observe(latencySeconds,
		observability.L("use_case", useCaseAuditWorker),
	)
}
