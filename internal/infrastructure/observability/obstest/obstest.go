// Package obstest builds a real observability provider for tests: zap logs are
// captured by an observer core and metrics land in a private Prometheus registry.
package obstest

import (
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/zaplogger"
	obs "github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type Telemetry struct {
	obs.Observability
	Registry *prometheus.Registry
	Logs     *observer.ObservedLogs
}

func New() *Telemetry {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New("", "", reg))
	return &Telemetry{
		Observability: observability.New(obs.NopTracer(), zaplogger.New(zap.New(core)), counters, histograms),
		Registry:      reg,
		Logs:          logs,
	}
}

// Counter sums every series of name whose labels include all of labels.
func (t *Telemetry) Counter(name obs.MetricKey, labels ...obs.Label) float64 {
	families, err := t.Registry.Gather()
	if err != nil {
		return 0
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != string(name) {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m.GetLabel(), labels) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

// Observations counts histogram samples of name whose labels include all of labels.
func (t *Telemetry) Observations(name obs.MetricKey, labels ...obs.Label) uint64 {
	families, err := t.Registry.Gather()
	if err != nil {
		return 0
	}
	var total uint64
	for _, mf := range families {
		if mf.GetName() != string(name) {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m.GetLabel(), labels) {
				total += m.GetHistogram().GetSampleCount()
			}
		}
	}
	return total
}

// Messages returns the captured log entries with message msg.
func (t *Telemetry) Messages(msg string) []observer.LoggedEntry {
	return t.Logs.FilterMessage(msg).All()
}

type labelPair interface {
	GetName() string
	GetValue() string
}

func matches[P labelPair](pairs []P, want []obs.Label) bool {
	for _, w := range want {
		found := false
		for _, p := range pairs {
			if p.GetName() == w.Key && p.GetValue() == w.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
