// Package logctx carries the request-scoped logger: the HTTP middleware stores
// one with request and trace ids, and use cases enrich it with their own fields.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/joyeria/internal/observability"
)

type loggerKey struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromOr returns the context logger, then fallback, then a no-op logger.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(observability.Logger); ok {
			return l
		}
	}
	if fallback != nil {
		return fallback
	}
	return observability.NopLogger()
}

// WithFields derives a child of the context logger and stores it back.
func WithFields(ctx context.Context, fallback observability.Logger, fields ...observability.Field) (context.Context, observability.Logger) {
	l := FromOr(ctx, fallback)
	if len(fields) > 0 {
		l = l.With(fields...)
	}
	return With(ctx, l), l
}
