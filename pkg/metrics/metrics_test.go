package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledConstructorsReturnNil(t *testing.T) {
	// Before InitRegistry everything is nil and safe to use.
	if IsEnabled() {
		t.Skip("registry already initialized by another test")
	}

	assert.Nil(t, NewCacheMetrics("user"))

	var h *HTTPMetrics
	assert.Nil(t, NewHTTPMetrics())
	assert.NotPanics(t, func() {
		h.ObserveRequest("GET", "/api/v1/namespace", "200", time.Millisecond)
		h.RequestStarted()()
	})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnabledMetrics(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())

	cm := NewCacheMetrics("user")
	require.NotNil(t, cm)
	cm.Hit()
	cm.Hit()
	cm.Miss()
	cm.Eviction()

	hm := NewHTTPMetrics()
	require.NotNil(t, hm)
	done := hm.RequestStarted()
	hm.ObserveRequest("GET", "/api/v1/namespace", "200", 5*time.Millisecond)
	done()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `idmapping_cache_hits_total{cache="user"} 2`), body)
	assert.True(t, strings.Contains(body, `idmapping_cache_misses_total{cache="user"} 1`), body)
	assert.True(t, strings.Contains(body, `idmapping_cache_evictions_total{cache="user"} 1`), body)
	assert.Contains(t, body, "idmapping_http_requests_total")
}
