// Package logger provides the process-wide structured logger for the ID
// mapping service. It wraps log/slog with a text handler for terminals, a
// JSON handler for machine consumption, and context-aware variants that
// inject per-request fields (call ID, client IP, authenticated user).
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Level names the log levels accepted in config files.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLevel(s string) (Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	default:
		return 0, false
	}
}

// Config selects the level, format, and destination of the logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

// levelVar is shared by every handler ever built, so SetLevel takes
// effect without a rebuild and is safe against concurrent logging.
var levelVar = func() *slog.LevelVar {
	v := new(slog.LevelVar)
	v.Set(slog.LevelInfo)
	return v
}()

var (
	mu       sync.RWMutex
	format   = "text"
	output   io.Writer = os.Stdout
	useColor           = writerIsTerminal(os.Stdout)
	slogger            = buildLogger(os.Stdout, "text", writerIsTerminal(os.Stdout))
)

func buildLogger(w io.Writer, format string, color bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelVar}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(newTextHandler(w, opts, color))
}

// writerIsTerminal reports whether the writer is an interactive terminal,
// which enables colored text output.
func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// rebuild swaps in a handler reflecting the current output and format.
func rebuild() {
	mu.Lock()
	slogger = buildLogger(output, format, useColor)
	mu.Unlock()
}

// Init configures the process logger. Output may be "stdout", "stderr",
// or a file path, which is opened in append mode.
func Init(cfg Config) error {
	if cfg.Output != "" {
		var w io.Writer
		var color bool
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			w, color = os.Stdout, writerIsTerminal(os.Stdout)
		case "stderr":
			w, color = os.Stderr, writerIsTerminal(os.Stderr)
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			w, color = f, false
		}
		mu.Lock()
		output, useColor = w, color
		mu.Unlock()
	}
	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	rebuild()
	return nil
}

// InitWithWriter points the logger at an arbitrary writer. Primarily for
// tests.
func InitWithWriter(w io.Writer, level, fmtName string, enableColor bool) {
	mu.Lock()
	output, useColor = w, enableColor
	mu.Unlock()
	SetLevel(level)
	SetFormat(fmtName)
	rebuild()
}

// SetLevel changes the minimum level. Unknown values are ignored.
func SetLevel(level string) {
	if l, ok := parseLevel(level); ok {
		levelVar.Set(l.slog())
	}
}

// SetFormat switches between "text" and "json". Unknown values are
// ignored.
func SetFormat(fmtName string) {
	fmtName = strings.ToLower(fmtName)
	if fmtName != "text" && fmtName != "json" {
		return
	}
	mu.Lock()
	changed := format != fmtName
	format = fmtName
	mu.Unlock()
	if changed {
		rebuild()
	}
}

func get() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

// Debug logs at debug level with alternating key/value fields.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level with alternating key/value fields.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level with alternating key/value fields.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level with alternating key/value fields.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// DebugCtx logs at debug level, prepending the request fields carried in
// ctx (call ID, client IP, user).
func DebugCtx(ctx context.Context, msg string, args ...any) {
	get().Debug(msg, withContextFields(ctx, args)...)
}

// InfoCtx logs at info level with the request fields carried in ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	get().Info(msg, withContextFields(ctx, args)...)
}

// WarnCtx logs at warn level with the request fields carried in ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	get().Warn(msg, withContextFields(ctx, args)...)
}

// ErrorCtx logs at error level with the request fields carried in ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	get().Error(msg, withContextFields(ctx, args)...)
}

// withContextFields prepends LogContext fields so they lead the record.
func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}
	out := make([]any, 0, 12+len(args))
	if lc.TraceID != "" {
		out = append(out, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		out = append(out, KeySpanID, lc.SpanID)
	}
	if lc.CallID != "" {
		out = append(out, KeyCallID, lc.CallID)
	}
	if lc.ClientIP != "" {
		out = append(out, KeyClientIP, lc.ClientIP)
	}
	if lc.Authsource != "" {
		out = append(out, KeyAuthsource, lc.Authsource)
	}
	if lc.Username != "" {
		out = append(out, KeyUsername, lc.Username)
	}
	return append(out, args...)
}

// With returns a child logger with pre-bound fields.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration returns the time elapsed since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Debugf logs a printf-formatted message at debug level.
func Debugf(format string, v ...any) { get().Debug(fmt.Sprintf(format, v...)) }

// Infof logs a printf-formatted message at info level.
func Infof(format string, v ...any) { get().Info(fmt.Sprintf(format, v...)) }

// Warnf logs a printf-formatted message at warn level.
func Warnf(format string, v ...any) { get().Warn(fmt.Sprintf(format, v...)) }

// Errorf logs a printf-formatted message at error level.
func Errorf(format string, v ...any) { get().Error(fmt.Sprintf(format, v...)) }
