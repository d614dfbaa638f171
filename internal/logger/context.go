package logger

import (
	"context"
	"time"
)

type ctxKey struct{}

// LogContext carries the request-scoped fields that every log line for a
// request should include. It travels in the context.Context and is read
// back by the *Ctx logging functions.
type LogContext struct {
	TraceID    string
	SpanID     string
	CallID     string // 16-digit ID returned in error bodies
	ClientIP   string // without port
	Authsource string
	Username   string
	StartTime  time.Time
}

// NewLogContext starts a LogContext for a request from the given client.
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{ClientIP: clientIP, StartTime: time.Now()}
}

// WithContext attaches lc to the context.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, lc)
}

// FromContext returns the LogContext in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(ctxKey{}).(*LogContext)
	return lc
}

// Clone returns a shallow copy, or nil for a nil receiver.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithCallID returns a copy with the call ID set.
func (lc *LogContext) WithCallID(callID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.CallID = callID
	}
	return c
}

// WithUser returns a copy identifying the authenticated caller.
func (lc *LogContext) WithUser(authsource, username string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Authsource = authsource
		c.Username = username
	}
	return c
}

// WithTrace returns a copy with the trace and span IDs set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
		c.SpanID = spanID
	}
	return c
}

// DurationMs returns the milliseconds elapsed since the request started.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
