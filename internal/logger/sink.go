package logger

import (
	"context"

	"go.uber.org/zap"
)

// Sink receives raw gateway traffic (request bodies, processor responses,
// callback payloads). Nothing is written unless debug mode is on.
type Sink struct {
	enabled bool
}

func NewSink(enabled bool) *Sink {
	return &Sink{enabled: enabled}
}

func (s *Sink) Enabled() bool {
	return s != nil && s.enabled
}

func (s *Sink) Log(ctx context.Context, msg string, fields ...zap.Field) {
	if !s.Enabled() {
		return
	}
	FromCtx(ctx).Info(msg, append(fields, zap.Bool("debug_sink", true))...)
}
