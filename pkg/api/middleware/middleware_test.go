package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbase/idmapping/internal/logger"
	"github.com/kbase/idmapping/pkg/idmap"
)

var callIDPattern = regexp.MustCompile(`^\d{16}$`)

func TestCallIDAssignsSixteenDigits(t *testing.T) {
	var seen string
	handler := CallID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCallID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Regexp(t, callIDPattern, seen)
}

func TestCallIDsAreDistinct(t *testing.T) {
	ids := make(map[string]struct{})
	handler := CallID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids[GetCallID(r.Context())] = struct{}{}
	}))

	for i := 0; i < 50; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Len(t, ids, 50)
}

func TestCallIDPopulatesLogContext(t *testing.T) {
	var lc *logger.LogContext
	handler := CallID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lc = logger.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, lc)
	assert.Regexp(t, callIDPattern, lc.CallID)
	assert.Equal(t, "192.0.2.7", lc.ClientIP)
}

func TestGetCallIDWithoutMiddleware(t *testing.T) {
	assert.Empty(t, GetCallID(context.Background()))
}

func TestOptionalAuth(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantNil  bool
		wantKind idmap.ErrorKind
		wantErr  bool
	}{
		{name: "absent header", header: "", wantNil: true},
		{name: "well formed", header: "local sometoken"},
		{name: "kbase source", header: "kbase ABCDE"},
		{name: "single part", header: "tokenonly", wantErr: true, wantKind: idmap.IllegalParameter},
		{name: "three parts", header: "local some token", wantErr: true, wantKind: idmap.IllegalParameter},
		{name: "empty token", header: "local ", wantErr: true, wantKind: idmap.NoToken},
		{name: "illegal source charset", header: "LOCAL tok", wantErr: true, wantKind: idmap.IllegalParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			auth, err := OptionalAuth(req)
			if tt.wantErr {
				require.Error(t, err)
				kind, ok := idmap.KindOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantKind, kind)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, auth)
				return
			}
			require.NotNil(t, auth)
			assert.NotEmpty(t, auth.Source)
			assert.NotEmpty(t, auth.Token)
		})
	}
}

func TestRequireAuthMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", nil)

	_, err := RequireAuth(req)
	require.Error(t, err)
	kind, ok := idmap.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, idmap.NoToken, kind)
}

func TestRequireAuthParsesHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("Authorization", "local secrettoken")

	auth, err := RequireAuth(req)
	require.NoError(t, err)
	assert.Equal(t, idmap.AuthsourceID("local"), auth.Source)
	assert.Equal(t, idmap.Token("secrettoken"), auth.Token)
}
