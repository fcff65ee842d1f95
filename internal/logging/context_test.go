package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, MappingID(ctx))
	assert.Empty(t, TargetField(ctx))
	_, ok := RowIndex(ctx)
	assert.False(t, ok)

	ctx = WithMappingID(ctx, "m-1")
	ctx = WithTargetField(ctx, "total")
	ctx = WithRowIndex(ctx, 7)

	assert.Equal(t, "m-1", MappingID(ctx))
	assert.Equal(t, "total", TargetField(ctx))
	i, ok := RowIndex(ctx)
	assert.True(t, ok)
	assert.Equal(t, 7, i)
}

func TestLogWith_AddsPresentValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithMappingID(context.Background(), "m-1")
	ctx = WithRowIndex(ctx, 3)
	LogWith(ctx, logger).Info("hello")

	out := buf.String()
	assert.Contains(t, out, "mapping_id=m-1")
	assert.Contains(t, out, "row_index=3")
	assert.NotContains(t, out, "target_field")
}

func TestCorrelationHandler_InjectsFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithMappingID(context.Background(), "m-2")
	ctx = WithTargetField(ctx, "gross")
	ctx = WithRowIndex(ctx, 12)
	logger.InfoContext(ctx, "cell evaluated")

	out := buf.String()
	assert.Contains(t, out, "mapping_id=m-2")
	assert.Contains(t, out, "target_field=gross")
	assert.Contains(t, out, "row_index=12")
}

func TestCorrelationHandler_NoContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "plain")

	out := buf.String()
	assert.Contains(t, out, "plain")
	assert.NotContains(t, out, "mapping_id")
}

func TestCorrelationHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCorrelationHandler(slog.NewTextHandler(&buf, nil))
	logger := slog.New(handler).With(slog.String("component", "engine")).WithGroup("sweep")

	ctx := WithRowIndex(context.Background(), 4)
	logger.InfoContext(ctx, "row done", slog.String("state", "ok"))

	out := buf.String()
	assert.Contains(t, out, "component=engine")
	assert.Contains(t, out, "sweep.state=ok")
	assert.Contains(t, out, "row_index=4")
}
