package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	mappingIDKey ctxKey = iota
	targetFieldKey
	rowIndexKey
)

// WithMappingID returns a context with the mapping document ID set.
func WithMappingID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, mappingIDKey, id)
}

// WithTargetField returns a context with the target field name set.
func WithTargetField(ctx context.Context, field string) context.Context {
	return context.WithValue(ctx, targetFieldKey, field)
}

// WithRowIndex returns a context with the source row index set.
func WithRowIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, rowIndexKey, index)
}

// MappingID extracts the mapping document ID from the context, or "" if absent.
func MappingID(ctx context.Context) string {
	v, _ := ctx.Value(mappingIDKey).(string)
	return v
}

// TargetField extracts the target field name from the context, or "" if absent.
func TargetField(ctx context.Context) string {
	v, _ := ctx.Value(targetFieldKey).(string)
	return v
}

// RowIndex extracts the row index from the context; ok is false if absent.
func RowIndex(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(rowIndexKey).(int)
	return v, ok
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only present values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := MappingID(ctx); id != "" {
		logger = logger.With(slog.String("mapping_id", id))
	}
	if f := TargetField(ctx); f != "" {
		logger = logger.With(slog.String("target_field", f))
	}
	if i, ok := RowIndex(ctx); ok {
		logger = logger.With(slog.Int("row_index", i))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record. Use with
// slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := MappingID(ctx); v != "" {
		r.AddAttrs(slog.String("mapping_id", v))
	}
	if v := TargetField(ctx); v != "" {
		r.AddAttrs(slog.String("target_field", v))
	}
	if v, ok := RowIndex(ctx); ok {
		r.AddAttrs(slog.Int("row_index", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
