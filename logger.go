package vecquant

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with vecquant-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogQuantize logs a uniform quantization.
func (l *Logger) LogQuantize(ctx context.Context, rows, cols, bits int, scale float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "quantize failed",
			"rows", rows,
			"cols", cols,
			"bits", bits,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "quantize completed",
		"rows", rows,
		"cols", cols,
		"bits", bits,
		"scale", scale,
	)
}

// LogClamp warns about values that were clamped to ±qmax under an
// externally supplied scale.
func (l *Logger) LogClamp(ctx context.Context, clamped, total int, scale float64) {
	l.WarnContext(ctx, "values clamped during quantization",
		"clamped", clamped,
		"total", total,
		"scale", scale,
	)
}

// LogTrain logs a codebook training run.
func (l *Logger) LogTrain(ctx context.Context, method string, k, iterations int, converged bool, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "train failed",
			"method", method,
			"k", k,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "train completed",
		"method", method,
		"k", k,
		"iterations", iterations,
		"converged", converged,
		"duration", duration,
	)
}

// LogEncode logs an encode or decode operation.
func (l *Logger) LogEncode(ctx context.Context, op, method string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"method", method,
			"rows", rows,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, op+" completed",
		"method", method,
		"rows", rows,
	)
}

// LogLookup logs a batch of approximate dot products.
func (l *Logger) LogLookup(ctx context.Context, rows, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "lookup failed",
			"rows", rows,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "lookup completed",
		"rows", rows,
		"results", results,
	)
}

// LogSave logs an artifact save.
func (l *Logger) LogSave(ctx context.Context, name string, size uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "artifact saved",
		"name", name,
		"size", size,
	)
}

// LogLoad logs an artifact load.
func (l *Logger) LogLoad(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "artifact loaded",
		"name", name,
	)
}
