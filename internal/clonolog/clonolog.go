// Package clonolog provides the shared structured logger used across
// clonoweave's components. It wraps go.uber.org/zap, following the
// teacher's SetWarnings(io.Writer) pattern in internal/annotate.Annotator
// generalized to a logger field injected at component construction.
package clonolog

import (
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a *zap.SugaredLogger plus the process-wide bail-out flag
// described in spec.md section 5: a single atomic checked by workers
// between records, set on the first fatal error encountered during a
// parallel pass.
type Logger struct {
	*zap.SugaredLogger
	bailOut atomic.Bool

	dropped atomic.Int64
	killed  atomic.Int64
}

// New builds a Logger writing to w at the given level ("debug", "info",
// "warn", "error"). Passing an empty level defaults to "info".
func New(w io.Writer, level string) (*Logger, error) {
	var lvl zapcore.Level
	if level == "" {
		level = "info"
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		lvl,
	)

	return &Logger{SugaredLogger: zap.New(core).Sugar()}, nil
}

// Nop returns a Logger that discards all output, for tests and callers
// that don't want diagnostics.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// BailOut sets the process-wide bail-out flag. Workers should check
// ShouldBailOut between records and exit early once it is set.
func (l *Logger) BailOut() {
	l.bailOut.Store(true)
}

// ShouldBailOut reports whether a fatal error has already been
// recorded by another worker.
func (l *Logger) ShouldBailOut() bool {
	return l.bailOut.Load()
}

// RecordDrop increments the dropped-record counter and logs at debug
// level. Per spec.md section 7, DroppedRecord is silent — counted in
// summary statistics only, never surfaced as a process failure.
func (l *Logger) RecordDrop(barcode, reason string) {
	l.dropped.Add(1)
	l.Debugw("dropped record", "barcode", barcode, "reason", reason)
}

// RecordKill increments the cross-filter kill counter and logs at
// debug level (graph filter, cross filter, gel-bead filter, foursie
// filter all funnel through this).
func (l *Logger) RecordKill(filter, reason string) {
	l.killed.Add(1)
	l.Debugw("filter kill", "filter", filter, "reason", reason)
}

// Counts returns (dropped, killed) totals for end-of-run summaries.
func (l *Logger) Counts() (dropped, killed int64) {
	return l.dropped.Load(), l.killed.Load()
}
