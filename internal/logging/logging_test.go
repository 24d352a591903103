package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	ctx := context.Background()

	assert.True(t, New("debug", "text").Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("error", "text").Enabled(ctx, slog.LevelInfo))
	// Unknown level falls back to info.
	l := New("chatty", "json")
	assert.True(t, l.Enabled(ctx, slog.LevelInfo))
	assert.False(t, l.Enabled(ctx, slog.LevelDebug))
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	require.NotNil(t, FromContext(ctx), "falls back to the default logger")

	custom := New("debug", "json")
	ctx = WithLogger(ctx, custom)
	assert.Same(t, custom, FromContext(ctx))
}
