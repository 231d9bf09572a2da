package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"time"
)

// LevelTrace is below debug and is used for per token logging
const LevelTrace slog.Level = -8

// NewLogger returns a text logger that prints TRACE for LevelTrace
// and only the base name of the source file
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				switch attr.Value.Any().(slog.Level) {
				case LevelTrace:
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

// Level maps the verbosity knobs of the command line to a level
func Level(debug bool, verbosity int) slog.Level {
	switch {
	case verbosity > 1:
		return LevelTrace
	case debug || verbosity == 1:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

type key string

func Trace(msg string, args ...any) {
	TraceContext(context.WithValue(context.TODO(), key("skip"), 1), msg, args...)
}

func TraceContext(ctx context.Context, msg string, args ...any) {
	write(ctx, LevelTrace, msg, args...)
}

// write sends a record to the default logger, pointing its source at
// the caller of the exported function, `skip` frames further up
func write(ctx context.Context, level slog.Level, msg string, args ...any) {
	if logger := slog.Default(); logger.Enabled(ctx, level) {
		skip, _ := ctx.Value(key("skip")).(int)
		pc, _, _, _ := runtime.Caller(2 + skip)
		record := slog.NewRecord(time.Now(), level, msg, pc)
		record.Add(args...)
		logger.Handler().Handle(ctx, record)
	}
}

// Scope adds the same attributes to every record, so the output of a
// matcher can be told apart from the one of its siblings sharing a
// compiled grammar
type Scope struct {
	attrs []any
}

func NewScope(args ...any) Scope {
	return Scope{attrs: slices.Clip(args)}
}

func (s Scope) Trace(msg string, args ...any) {
	write(context.TODO(), LevelTrace, msg, append(s.attrs, args...)...)
}

func (s Scope) Debug(msg string, args ...any) {
	write(context.TODO(), slog.LevelDebug, msg, append(s.attrs, args...)...)
}
