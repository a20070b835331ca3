package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultInstrumentation = "minishop-fulfillment"

type tracer struct {
	t    trace.Tracer
	base []attribute.KeyValue
}

// New returns a tracer bound to the global provider installed by Setup. The base
// attributes (environment, store driver) are stamped on every span it starts,
// ahead of the per-call ones.
func New(name string, base ...attribute.KeyValue) observability.Tracer {
	if name == "" {
		name = defaultInstrumentation
	}
	return &tracer{t: otel.Tracer(name), base: base}
}

// Start opens an internal span. Saga steps are in-process calls, so the server
// span belongs to otelgin and the producer span to the Kafka sink.
func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := attrs
	if len(t.base) > 0 {
		all = make([]attribute.KeyValue, 0, len(t.base)+len(attrs))
		all = append(all, t.base...)
		all = append(all, attrs...)
	}
	return t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(all...),
	)
}
