// Package log provides structured logging utilities built on zerolog.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey   ctxKey = "request_id"
	sessionIDKey   ctxKey = "session_id"
	streamKeyCtxID ctxKey = "stream_key"
)

// ContextWithRequestID stores the provided request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithSessionID stores the provided session ID in the context.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// ContextWithStreamKey stores the provided stream key in the context.
func ContextWithStreamKey(ctx context.Context, key string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, streamKeyCtxID, key)
}

// RequestIDFromContext extracts the request ID from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if rid := RequestIDFromContext(ctx); rid != "" {
		builder = builder.Str("request_id", rid)
		added = true
	}
	if sid, ok := ctx.Value(sessionIDKey).(string); ok && sid != "" {
		builder = builder.Str("session_id", sid)
		added = true
	}
	if sk, ok := ctx.Value(streamKeyCtxID).(string); ok && sk != "" {
		builder = builder.Str("stream_key", sk)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// FromContext returns a logger derived from the context, or the base logger if absent.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return Base()
	}
	return WithContext(ctx, Base())
}
