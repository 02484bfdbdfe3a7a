package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDShortAndUnique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for range 100 {
		id := NewID()
		require.Len(t, id, 8)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestIDRoundtrip(t *testing.T) {
	ctx := WithID(context.Background(), "abc12345")
	id, ok := ID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)
}

func TestIDAbsentOrEmpty(t *testing.T) {
	_, ok := ID(context.Background())
	assert.False(t, ok)

	_, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok)
}

func newCapturingLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewHandler(inner)), &buf
}

func TestHandlerInjectsCorrelationID(t *testing.T) {
	logger, buf := newCapturingLogger()

	ctx := WithID(context.Background(), "test1234")
	logger.InfoContext(ctx, "sweep complete", "expired", 2)

	out := buf.String()
	assert.Contains(t, out, "correlation_id=test1234")
	assert.Contains(t, out, "expired=2")
}

func TestHandlerOmitsIDWhenContextHasNone(t *testing.T) {
	logger, buf := newCapturingLogger()

	logger.InfoContext(context.Background(), "no correlation")

	assert.NotContains(t, buf.String(), "correlation_id")
}

func TestHandlerWithAttrsKeepsInjection(t *testing.T) {
	logger, buf := newCapturingLogger()
	logger = logger.With("component", "maintenance")

	ctx := WithID(context.Background(), "attr1234")
	logger.InfoContext(ctx, "with attrs")

	out := buf.String()
	assert.Contains(t, out, "correlation_id=attr1234")
	assert.Contains(t, out, "component=maintenance")
}
