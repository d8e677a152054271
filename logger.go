package tabletio

import (
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/tabletio/model"
)

// Logger wraps slog.Logger with write-path field helpers so log lines carry
// consistent names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is nil, a
// text handler to stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithTablet adds tablet identity fields.
func (l *Logger) WithTablet(id model.TabletID, hash model.SchemaHash) *Logger {
	return &Logger{Logger: l.Logger.With("tablet_id", uint64(id), "schema_hash", uint32(hash))}
}

// WithTxn adds the transaction id field.
func (l *Logger) WithTxn(id model.TxnID) *Logger {
	return &Logger{Logger: l.Logger.With("txn_id", uint64(id))}
}
