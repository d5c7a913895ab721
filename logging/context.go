package logging

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContextKey string

const InvocationIDKey ContextKey = "invocation_id"

// NewInvocationID returns a random identifier for one pipeline call.
func NewInvocationID() string {
	return uuid.NewString()
}

func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, InvocationIDKey, id)
}

func InvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(InvocationIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext decorates base with the invocation carried by ctx.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if id := InvocationID(ctx); id != "" {
		return base.With(zap.String(string(InvocationIDKey), id))
	}
	return base
}
