package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbase/idmapping/pkg/idmap"
)

// newAuthServer fakes the remote auth service. The handlers map routes
// paths to responses; anything else is a 404.
func newAuthServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h(w, r)
			return
		}
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"servicename": "Authentication Service", "version": "0.6.1"}`))
			return
		}
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func kbaseConfig(url string) map[string]string {
	return map[string]string{
		KBaseInitURL:   url,
		KBaseInitToken: "service-token",
	}
}

func TestNewKBaseHandler_ProbesAtConstruction(t *testing.T) {
	srv := newAuthServer(t, nil)

	h, err := NewKBaseHandler("kbase", kbaseConfig(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, idmap.AuthsourceID("kbase"), h.Authsource())
}

func TestNewKBaseHandler_RejectsWrongService(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"servicename": "Some Other Service"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := NewKBaseHandler("kbase", kbaseConfig(srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected service")
}

func TestNewKBaseHandler_RejectsUnreachableServer(t *testing.T) {
	srv := newAuthServer(t, nil)
	url := srv.URL
	srv.Close()

	_, err := NewKBaseHandler("kbase", kbaseConfig(url))
	require.Error(t, err)
}

func TestNewKBaseHandler_RequiresInitOptions(t *testing.T) {
	_, err := NewKBaseHandler("kbase", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), KBaseInitURL)

	_, err = NewKBaseHandler("kbase", map[string]string{KBaseInitURL: "http://localhost:1"})
	require.Error(t, err)
}

func TestKBaseHandler_GetUser(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/V2/token": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "user-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"user": "bob", "expires": 1700000600000, "cachefor": 300000}`))
		},
		"/api/V2/me": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"customroles": ["DEVTOKEN", "ID_MAPPER_ADMIN"]}`))
		},
	})

	h, err := NewKBaseHandler("kbase", kbaseConfig(srv.URL))
	require.NoError(t, err)

	res, err := h.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, idmap.User{Source: "kbase", Name: "bob"}, res.User)
	assert.True(t, res.Admin)
	assert.Equal(t, int64(1700000600), res.Cache.EpochSeconds)
	assert.Equal(t, int64(300), res.Cache.RelSeconds)
}

func TestKBaseHandler_GetUser_NonAdminRole(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/V2/token": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"user": "bob", "expires": 0, "cachefor": 0}`))
		},
		"/api/V2/me": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"customroles": ["DEVTOKEN"]}`))
		},
	})

	h, err := NewKBaseHandler("kbase", kbaseConfig(srv.URL))
	require.NoError(t, err)

	res, err := h.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.False(t, res.Admin)
}

func TestKBaseHandler_GetUser_BadTokenIsInvalidToken(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/V2/token": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	})

	h, err := NewKBaseHandler("kbase", kbaseConfig(srv.URL))
	require.NoError(t, err)

	_, err = h.GetUser(context.Background(), "bad")
	assert.True(t, errors.Is(err, idmap.NewError(idmap.InvalidToken, "")), "got %v", err)
}

func TestKBaseHandler_GetUser_ServerErrorIsNotDomainError(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/V2/token": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	})

	h, err := NewKBaseHandler("kbase", kbaseConfig(srv.URL))
	require.NoError(t, err)

	_, err = h.GetUser(context.Background(), "tok")
	require.Error(t, err)
	_, isDomain := idmap.KindOf(err)
	assert.False(t, isDomain, "5xx must surface as an I/O error, got %v", err)
}

func TestKBaseHandler_IsValidUser(t *testing.T) {
	srv := newAuthServer(t, map[string]http.HandlerFunc{
		"/api/V2/users/": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "service-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get("list") == "bob" {
				_, _ = w.Write([]byte(`{"bob": "Bob Builder"}`))
				return
			}
			_, _ = w.Write([]byte(`{}`))
		},
	})

	h, err := NewKBaseHandler("kbase", kbaseConfig(srv.URL))
	require.NoError(t, err)

	res, err := h.IsValidUser(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.Equal(t, int64(3600), res.Cache.RelSeconds)

	res, err = h.IsValidUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, res.Exists)
}
