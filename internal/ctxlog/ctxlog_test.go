package ctxlog

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLoggerRoundTrip(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, nil))

	ctx := WithLogger(context.Background(), logger)
	got := FromContext(ctx)
	assert.Same(t, logger, got)

	got.Info("hello")
	assert.Contains(t, sb.String(), "hello")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	got := FromContext(context.Background())
	assert.Same(t, slog.Default(), got)
}
