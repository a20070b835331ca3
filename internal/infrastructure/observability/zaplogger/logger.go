// Package zaplogger backs observability.Logger with zap.
package zaplogger

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"go.uber.org/zap"
)

type logger struct{ l *zap.Logger }

// New adapts base, binding fixed fields once. A nil base discards everything.
func New(base *zap.Logger, fixed ...observability.Field) observability.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &logger{l: base.With(fields(fixed)...)}
}

func (z *logger) With(fs ...observability.Field) observability.Logger {
	if len(fs) == 0 {
		return z
	}
	return &logger{l: z.l.With(fields(fs)...)}
}

func (z *logger) Debug(msg string, fs ...observability.Field) { z.l.Debug(msg, fields(fs)...) }
func (z *logger) Info(msg string, fs ...observability.Field)  { z.l.Info(msg, fields(fs)...) }
func (z *logger) Warn(msg string, fs ...observability.Field)  { z.l.Warn(msg, fields(fs)...) }
func (z *logger) Error(msg string, fs ...observability.Field) { z.l.Error(msg, fields(fs)...) }

// fields maps values to typed zap fields. Money amounts and ids implement
// fmt.Stringer and are logged as strings rather than reflected structs.
func fields(fs []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		switch v := f.Value.(type) {
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case time.Time:
			out = append(out, zap.Time(f.Key, v))
		case string, bool, int, int64, float64:
			out = append(out, zap.Any(f.Key, v))
		case fmt.Stringer:
			out = append(out, zap.Stringer(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
