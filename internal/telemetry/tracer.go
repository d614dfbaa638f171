package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for ID mapping operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// Client attributes
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// Request attributes
	AttrCallID     = "request.call_id"
	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"

	// Auth attributes
	AttrAuthsource = "auth.source"
	AttrUsername   = "user.name"
	AttrAdmin      = "user.admin"

	// Domain attributes
	AttrNamespace   = "namespace.id"
	AttrObjectCount = "mapping.object_count"
	AttrFilterCount = "mapping.filter_count"

	// Cache attributes
	AttrCacheHit = "cache.hit"

	// Error attributes
	AttrAppErrorCode = "error.app_code"
)

// SpanHTTPRequest is the root span name for an API request. Storage and
// lookup spans are named "<layer>.<operation>" by their Start helpers.
const SpanHTTPRequest = "api.request"

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// CallID returns an attribute for the request call ID
func CallID(id string) attribute.KeyValue {
	return attribute.String(AttrCallID, id)
}

// HTTPMethod returns an attribute for the HTTP request method
func HTTPMethod(method string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, method)
}

// HTTPRoute returns an attribute for the matched route pattern
func HTTPRoute(route string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, route)
}

// HTTPStatus returns an attribute for the HTTP response status code
func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

// Authsource returns an attribute for the authentication source
func Authsource(source string) attribute.KeyValue {
	return attribute.String(AttrAuthsource, source)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// Admin returns an attribute for the system admin flag
func Admin(admin bool) attribute.KeyValue {
	return attribute.Bool(AttrAdmin, admin)
}

// Namespace returns an attribute for a namespace ID
func Namespace(id string) attribute.KeyValue {
	return attribute.String(AttrNamespace, id)
}

// ObjectCount returns an attribute for the number of object IDs in a request
func ObjectCount(n int) attribute.KeyValue {
	return attribute.Int(AttrObjectCount, n)
}

// FilterCount returns an attribute for the number of filter namespaces
func FilterCount(n int) attribute.KeyValue {
	return attribute.Int(AttrFilterCount, n)
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// AppErrorCode returns an attribute for the application error code
func AppErrorCode(code int) attribute.KeyValue {
	return attribute.Int(AttrAppErrorCode, code)
}

// StartHTTPSpan starts the root span for an API request.
func StartHTTPSpan(ctx context.Context, method, route string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		HTTPMethod(method),
		HTTPRoute(route),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanHTTPRequest, trace.WithAttributes(allAttrs...))
}

// StartStorageSpan starts a span for a storage operation.
func StartStorageSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "storage."+operation, trace.WithAttributes(attrs...))
}

// StartLookupSpan starts a span for a user lookup operation against an
// authentication source.
func StartLookupSpan(ctx context.Context, operation, source string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Authsource(source),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "lookup."+operation, trace.WithAttributes(allAttrs...))
}
