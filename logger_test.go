package vecquant

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.WithDimension(4).WithCount(3).LogTrain(ctx, "pq", 256, 7, true, time.Millisecond, nil)
	assert.Contains(t, buf.String(), "train completed")
	assert.Contains(t, buf.String(), "dimension=4")
	assert.Contains(t, buf.String(), "count=3")
	assert.Contains(t, buf.String(), "iterations=7")

	buf.Reset()
	l.LogSave(ctx, "a.vqnt", 0, errors.New("disk full"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "disk full")

	buf.Reset()
	l.LogEncode(ctx, "decode", "vq", 10, nil)
	assert.Contains(t, buf.String(), "decode completed")
}

func TestLogger_Levels(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	l.LogLookup(ctx, 100, 10, nil)
	assert.Empty(t, buf.String())

	l.LogClamp(ctx, 2, 12, 0.01)
	assert.Contains(t, buf.String(), "level=WARN")

	// Must not panic.
	NoopLogger().LogLoad(ctx, "x", nil)
	NewLogger(nil).LogQuantize(ctx, 1, 1, 8, 1, nil)
}
