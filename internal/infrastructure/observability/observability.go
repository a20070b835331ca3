// Package observability assembles the concrete tracer, logger and Prometheus
// instruments behind the application's observability ports.
package observability

import (
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

// Provider is the process wide Observability handed to every constructor.
type Provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics instruments
}

// instruments resolves metric keys; unknown keys resolve to no-ops so a missing
// registration never breaks a caller.
type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m instruments) Counter(name observability.MetricKey) observability.Counter {
	if c := m.counters[name]; c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m instruments) Histogram(name observability.MetricKey) observability.Histogram {
	if h := m.histograms[name]; h != nil {
		return h
	}
	return observability.NopHistogram()
}

// New assembles a Provider. Nil arguments fall back to no-op implementations.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) *Provider {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Provider{
		tracer: tracer,
		logger: logger,
		metrics: instruments{
			counters:   compact(counters),
			histograms: compact(histograms),
		},
	}
}

// WithLogger returns a copy of p whose logger carries fields.
func (p *Provider) WithLogger(fields ...observability.Field) *Provider {
	clone := *p
	clone.logger = p.logger.With(fields...)
	return &clone
}

func (p *Provider) Tracer() observability.Tracer   { return p.tracer }
func (p *Provider) Logger() observability.Logger   { return p.logger }
func (p *Provider) Metrics() observability.Metrics { return p.metrics }

func compact[V comparable](in map[observability.MetricKey]V) map[observability.MetricKey]V {
	var zero V
	out := make(map[observability.MetricKey]V, len(in))
	for k, v := range in {
		if v != zero {
			out[k] = v
		}
	}
	return out
}
