package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// HTTP Request
	// ========================================================================
	KeyMethod    = "method"     // HTTP request method
	KeyPath      = "path"       // Request URL path
	KeyRoute     = "route"      // Matched route pattern
	KeyStatus    = "status"     // HTTP response status code
	KeyCallID    = "call_id"    // Per-request call ID returned in error bodies
	KeyClientIP  = "client_ip"  // Client IP address
	KeyUserAgent = "user_agent" // Client user agent

	// ========================================================================
	// Authentication
	// ========================================================================
	KeyAuthsource = "authsource" // Authentication source ID
	KeyUsername   = "username"   // Username at the authentication source
	KeyAdmin      = "admin"      // System admin flag

	// ========================================================================
	// ID Mapping Domain
	// ========================================================================
	KeyNamespace   = "namespace"    // Namespace ID
	KeyObjectID    = "object_id"    // Data ID within a namespace
	KeyObjectCount = "object_count" // Number of object IDs in a bulk request
	KeyFilterCount = "filter_count" // Number of filter namespaces

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeyDBType = "db_type" // Database backend: sqlite, postgres
	KeyDBPath = "db_path" // SQLite database path

	// ========================================================================
	// Cache Layer
	// ========================================================================
	KeyCacheHit  = "cache_hit"  // Cache hit indicator
	KeyCacheSize = "cache_size" // Current number of cached entries
	KeyEvicted   = "evicted"    // Number of entries evicted

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Application error code
	KeyOperation  = "operation"   // Sub-operation type for complex operations
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Method returns a slog.Attr for HTTP request method
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path returns a slog.Attr for request URL path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Route returns a slog.Attr for matched route pattern
func Route(r string) slog.Attr {
	return slog.String(KeyRoute, r)
}

// Status returns a slog.Attr for HTTP response status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// CallID returns a slog.Attr for the per-request call ID
func CallID(id string) slog.Attr {
	return slog.String(KeyCallID, id)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// UserAgent returns a slog.Attr for client user agent
func UserAgent(ua string) slog.Attr {
	return slog.String(KeyUserAgent, ua)
}

// Authsource returns a slog.Attr for authentication source ID
func Authsource(source string) slog.Attr {
	return slog.String(KeyAuthsource, source)
}

// Username returns a slog.Attr for username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Admin returns a slog.Attr for the system admin flag
func Admin(admin bool) slog.Attr {
	return slog.Bool(KeyAdmin, admin)
}

// Namespace returns a slog.Attr for a namespace ID
func Namespace(id string) slog.Attr {
	return slog.String(KeyNamespace, id)
}

// ObjectID returns a slog.Attr for a data ID within a namespace
func ObjectID(id string) slog.Attr {
	return slog.String(KeyObjectID, id)
}

// ObjectCount returns a slog.Attr for the number of object IDs in a bulk request
func ObjectCount(n int) slog.Attr {
	return slog.Int(KeyObjectCount, n)
}

// FilterCount returns a slog.Attr for the number of filter namespaces
func FilterCount(n int) slog.Attr {
	return slog.Int(KeyFilterCount, n)
}

// DBType returns a slog.Attr for the database backend type
func DBType(t string) slog.Attr {
	return slog.String(KeyDBType, t)
}

// DBPath returns a slog.Attr for the SQLite database path
func DBPath(p string) slog.Attr {
	return slog.String(KeyDBPath, p)
}

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// CacheSize returns a slog.Attr for current number of cached entries
func CacheSize(size int) slog.Attr {
	return slog.Int(KeyCacheSize, size)
}

// Evicted returns a slog.Attr for number of entries evicted
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for application error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}
