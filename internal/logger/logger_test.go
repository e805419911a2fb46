package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("source went quiet", "source", "venues")
	assert.Contains(t, buf.String(), "source went quiet")
	assert.Contains(t, buf.String(), "venues")
}

func TestContextIDs(t *testing.T) {
	ctx := WithUserID(WithTraceID(context.Background(), "01TRACE"), "u-42")
	assert.Equal(t, "01TRACE", GetTraceID(ctx))
	assert.Equal(t, "u-42", GetUserID(ctx))
	assert.Empty(t, GetTraceID(context.Background()))
	assert.NotNil(t, From(ctx))
}
