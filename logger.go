package aresvec

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific operation helpers so every
// operation logs the same field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler falls
// back to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON records to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that writes human-readable records to
// stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// LogUpsert logs one document ingest batch.
func (l *Logger) LogUpsert(ctx context.Context, collection string, docs, chunks, upserted int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upsert failed",
			"collection", collection,
			"documents", docs,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "upsert completed",
		"collection", collection,
		"documents", docs,
		"chunks", chunks,
		"upserted", upserted,
	)
}

// LogSearch logs one search.
func (l *Logger) LogSearch(ctx context.Context, collection, strategy string, k, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"collection", collection,
			"strategy", strategy,
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"collection", collection,
		"strategy", strategy,
		"k", k,
		"results", results,
	)
}

// LogDelete logs one delete batch.
func (l *Logger) LogDelete(ctx context.Context, collection string, removed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"collection", collection,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "delete completed",
		"collection", collection,
		"removed", removed,
	)
}

// LogSave logs one collection save.
func (l *Logger) LogSave(ctx context.Context, collection, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"collection", collection,
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "collection saved",
		"collection", collection,
		"path", path,
	)
}

// LogLoad logs one collection load.
func (l *Logger) LogLoad(ctx context.Context, collection, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"collection", collection,
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "collection loaded",
		"collection", collection,
		"path", path,
	)
}

// LogBackup logs one backup.
func (l *Logger) LogBackup(ctx context.Context, collection, archive string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "backup failed",
			"collection", collection,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "backup completed",
		"collection", collection,
		"archive", archive,
	)
}

// LogRestore logs one restore.
func (l *Logger) LogRestore(ctx context.Context, collection string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"collection", collection,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "restore completed",
		"collection", collection,
	)
}

// LogModelLoad logs resolving an embedding model.
func (l *Logger) LogModelLoad(ctx context.Context, model string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "model load failed",
			"model", model,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "model loaded",
		"model", model,
	)
}
