package logger

import (
	"context"

	"go.uber.org/zap"
)

type (
	requestIDKey struct{}
	fieldsKey    struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// With attaches fields that every FromCtx logger for ctx will carry.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	prev := fieldsFrom(ctx)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func fieldsFrom(ctx context.Context) []zap.Field {
	fs, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return fs
}

// FromCtx returns the global logger tagged with the request id and any
// fields added through With.
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if id := RequestIDFrom(ctx); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	if fs := fieldsFrom(ctx); len(fs) > 0 {
		l = l.With(fs...)
	}
	return l
}
