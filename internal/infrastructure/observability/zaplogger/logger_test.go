package zaplogger

import (
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerFieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := New(zap.New(core), observability.F("service", "fulfillment"))

	scoped := log.With(observability.F("attempt_id", "a-1"))
	scoped.Debug("hidden")
	scoped.Info("use_case_done", observability.F("outcome", "success"))
	scoped.Warn("inventory_oversold", observability.F("remaining_quantity", -2))
	scoped.Error("request_failed", observability.F("error", errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "fulfillment", first["service"])
	assert.Equal(t, "a-1", first["attempt_id"])
	assert.Equal(t, "success", first["outcome"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(-2), entries[1].ContextMap()["remaining_quantity"])

	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestNilBaseIsNop(t *testing.T) {
	log := New(nil)
	assert.NotPanics(t, func() {
		log.With().Info("nothing")
	})
}

func TestStringersAreLoggedAsText(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	New(zap.New(core)).Debug("captured",
		observability.F("amount", decimal.RequireFromString("19.90")),
		observability.F("elapsed", 1500*time.Millisecond),
	)

	entry := logs.All()[0].ContextMap()
	assert.Equal(t, "19.9", entry["amount"])
	assert.Equal(t, 1500*time.Millisecond, entry["elapsed"])
}
