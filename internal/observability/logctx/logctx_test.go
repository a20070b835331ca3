package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	observability.Logger
	fields []observability.Field
}

func (r *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{Logger: observability.NopLogger(), fields: append(append([]observability.Field(nil), r.fields...), fields...)}
}

func TestFromOr(t *testing.T) {
	fallback := observability.NopLogger()
	assert.Equal(t, fallback, FromOr(context.Background(), fallback))

	scoped := &recordingLogger{Logger: observability.NopLogger()}
	ctx := With(context.Background(), scoped)
	assert.Same(t, scoped, FromOr(ctx, fallback))
	assert.Equal(t, ctx, With(ctx, nil))
}

func TestEnrich(t *testing.T) {
	base := &recordingLogger{Logger: observability.NopLogger(), fields: []observability.Field{observability.F("request_id", "r-1")}}
	ctx := With(context.Background(), base)

	ctx = Enrich(ctx, nil, observability.F("attempt_id", "a-1"))
	got, ok := From(ctx).(*recordingLogger)
	assert.True(t, ok)
	assert.Equal(t, []observability.Field{
		observability.F("request_id", "r-1"),
		observability.F("attempt_id", "a-1"),
	}, got.fields)

	plain := context.Background()
	assert.Equal(t, plain, Enrich(plain, nil, observability.F("k", "v")))
}
