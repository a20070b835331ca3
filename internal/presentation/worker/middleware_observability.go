package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext binds a logger for one event delivery to ctx. It carries the
// event name, eventID (generated when empty), the ids of the span active in ctx
// and any extra low-cardinality fields.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	e domoutbox.Event,
	eventID string,
	extra ...observability.Field,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	fields := make([]observability.Field, 0, 4+len(extra))
	fields = append(fields, observability.F("event_id", eventID))
	if e != nil {
		fields = append(fields, observability.F("event", e.EventName()))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, extra...)

	return logctx.With(ctx, base.With(fields...))
}
