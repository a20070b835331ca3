package httppresentation

import (
	"strconv"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const unknownRoute = "unknown"

// RequestLogger injects a request scoped logger carrying request_id and, when a
// span is active, trace_id/span_id. The request id is generated when absent and
// echoed back in X-Request-ID.
func RequestLogger(base observability.Logger, requestID func(*gin.Context) string) gin.HandlerFunc {
	if base == nil {
		base = observability.NopLogger()
	}
	return func(c *gin.Context) {
		rid := ""
		if requestID != nil {
			rid = requestID(c)
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(headerRequestID, rid)

		ctx := c.Request.Context()
		fields := []observability.Field{observability.F("request_id", rid)}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		c.Request = c.Request.WithContext(logctx.With(ctx, base.With(fields...)))
		c.Next()
	}
}

// HTTPMetrics records RED metrics labelled by the route template, never the raw path.
func HTTPMetrics(tel observability.Observability) gin.HandlerFunc {
	_, _, metrics := observability.Resolve(tel)
	requests := metrics.Counter(observability.MHTTPRequests)
	duration := metrics.Histogram(observability.MHTTPRequestDuration)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		labels := []observability.Label{
			observability.L("method", c.Request.Method),
			observability.L("route", routeOf(c)),
			observability.L("status", strconv.Itoa(c.Writer.Status())),
		}
		requests.Add(1, labels...)
		duration.Observe(time.Since(start).Seconds(), labels...)
	}
}

// AccessLog writes a single access log after the handler completes.
func AccessLog(fallback observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logctx.FromOr(c.Request.Context(), fallback).Info("http_access",
			observability.F("method", c.Request.Method),
			observability.F("route", routeOf(c)),
			observability.F("path", c.Request.URL.Path),
			observability.F("status", c.Writer.Status()),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	}
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unknownRoute
}
