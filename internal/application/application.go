package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

const (
	spanPrefix = "UC."

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Instrumentation holds the instruments shared by the use cases of one service.
// Instruments are resolved once at construction; never inside a method.
type Instrumentation struct {
	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstrumentation(service string, tel observability.Observability) Instrumentation {
	logger, tracer, metrics := observability.Resolve(tel)
	return Instrumentation{
		log:          logger.With(observability.F("service", service)),
		tracer:       tracer,
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

// Run is a single use case execution. It owns the span and emits exactly one
// use_case_done line from End.
type Run struct {
	inst    Instrumentation
	useCase string
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

// Start opens the span for useCase and binds a request scoped logger carrying fields.
func (i Instrumentation) Start(ctx context.Context, useCase, spanName string, attrs []attribute.KeyValue, fields ...observability.Field) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := i.tracer.Start(ctx, spanPrefix+spanName, attrs...)

	logger := logctx.FromOr(ctx, i.log).With(observability.F("use_case", useCase))
	return ctx, &Run{
		inst:    i,
		useCase: useCase,
		ctx:     ctx,
		span:    span,
		logger:  logger,
		start:   time.Now(),
		outcome: OutcomeSuccess,
		status:  "OK",
		fields:  fields,
	}
}

func (r *Run) Logger() observability.Logger { return r.logger }

func (r *Run) Span() trace.Span { return r.span }

// Set overrides outcome and status text reported by End.
func (r *Run) Set(outcome, status string) {
	r.outcome, r.status = outcome, status
}

func (r *Run) Fail(status string) { r.Set(OutcomeError, status) }

// With appends fields to the use_case_done line.
func (r *Run) With(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

func (r *Run) End(err error) {
	if err != nil && r.outcome != OutcomeError {
		r.outcome = OutcomeError
		if r.status == "OK" {
			r.status = "ERROR"
		}
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	latency := time.Since(r.start).Seconds()
	if r.inst.reqCounter != nil {
		r.inst.reqCounter.Add(1,
			observability.L("use_case", r.useCase),
			observability.L("outcome", r.outcome),
		)
	}
	if r.inst.durHistogram != nil {
		r.inst.durHistogram.Observe(latency,
			observability.L("use_case", r.useCase),
		)
	}

	fields := append([]observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", latency),
	}, r.fields...)
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}
