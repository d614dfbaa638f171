package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "idmapping", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(context.Background()))
	assert.False(t, IsEnabled())
}

func TestTracerBeforeInit(t *testing.T) {
	tracer = nil
	enabled = false

	require.NotNil(t, Tracer())
}

// The helpers must all be safe no-ops when no span is active.
func TestHelpersWithoutActiveSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	require.NotNil(t, SpanFromContext(ctx))

	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("test error"))
		SetStatus(ctx, codes.Ok, "success")
		SetStatus(ctx, codes.Error, "failed")
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})

	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr attribute.KeyValue
		key  string
		want any
	}{
		{"ClientIP", ClientIP("192.168.1.100"), AttrClientIP, "192.168.1.100"},
		{"ClientAddr", ClientAddr("192.168.1.100:12345"), AttrClientAddr, "192.168.1.100:12345"},
		{"CallID", CallID("1234567890123456"), AttrCallID, "1234567890123456"},
		{"HTTPMethod", HTTPMethod("PUT"), AttrHTTPMethod, "PUT"},
		{"HTTPStatus", HTTPStatus(403), AttrHTTPStatus, int64(403)},
		{"Authsource", Authsource("kbase"), AttrAuthsource, "kbase"},
		{"Username", Username("alice"), AttrUsername, "alice"},
		{"Admin", Admin(true), AttrAdmin, true},
		{"Namespace", Namespace("refseq"), AttrNamespace, "refseq"},
		{"ObjectCount", ObjectCount(42), AttrObjectCount, int64(42)},
		{"CacheHit", CacheHit(true), AttrCacheHit, true},
		{"AppErrorCode", AppErrorCode(20000), AttrAppErrorCode, int64(20000)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.key, string(tc.attr.Key))
			assert.Equal(t, tc.want, tc.attr.Value.AsInterface())
		})
	}
}

func TestLayerSpans(t *testing.T) {
	ctx := context.Background()

	httpCtx, httpSpan := StartHTTPSpan(ctx, "GET", "/api/v1/mapping/{namespace}", ClientIP("10.0.0.1"))
	require.NotNil(t, httpCtx)
	require.NotNil(t, httpSpan)
	httpSpan.End()

	storageCtx, storageSpan := StartStorageSpan(ctx, "find_mappings", Namespace("refseq"))
	require.NotNil(t, storageCtx)
	require.NotNil(t, storageSpan)
	storageSpan.End()

	lookupCtx, lookupSpan := StartLookupSpan(ctx, "get_user", "kbase", CacheHit(false))
	require.NotNil(t, lookupCtx)
	require.NotNil(t, lookupSpan)
	lookupSpan.End()
}
