package logging

import (
	"context"
	"log/slog"
	"strings"
)

type contextKey int

const (
	documentKeyCtx contextKey = iota
	requestIDCtx
)

// ContextWithDocument tags ctx with the document key in play.
func ContextWithDocument(ctx context.Context, key string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, documentKeyCtx, strings.TrimSpace(key))
}

// ContextWithRequestID tags ctx with an inbound request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDCtx, strings.TrimSpace(id))
}

// ContextFields extracts the standardized attributes carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if key, ok := ctx.Value(documentKeyCtx).(string); ok && key != "" {
		fields = append(fields, slog.String(FieldDocumentKey, key))
	}
	if id, ok := ctx.Value(requestIDCtx).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldRequestID, id))
	}
	return fields
}

// WithContext returns logger augmented with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
