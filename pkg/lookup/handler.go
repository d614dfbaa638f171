// Package lookup resolves bearer tokens to users against one or more
// authentication sources.
//
// Each source is adapted by a Handler; the Set aggregates the configured
// handlers behind two bounded TTL caches, one for token resolution and one
// for user existence checks. Handlers are selected by string ID from a
// compile-time registry.
package lookup

import (
	"context"
	"time"

	"github.com/kbase/idmapping/pkg/idmap"
)

// CacheHint bounds how long a lookup result may be cached. Zero fields are
// absent; when both are absent the cache default applies.
type CacheHint struct {
	// EpochSeconds is an absolute unix timestamp upper bound.
	EpochSeconds int64
	// RelSeconds is a relative lifetime in seconds.
	RelSeconds int64
}

// TTL computes the effective lifetime at the given instant: the minimum
// over whichever hints are present, else fallback. The result may be
// non-positive when the source declared the result already expired; such
// results must not be cached.
func (h CacheHint) TTL(now time.Time, fallback time.Duration) time.Duration {
	var ttl time.Duration
	present := false
	if h.EpochSeconds > 0 {
		ttl = time.Unix(h.EpochSeconds, 0).Sub(now)
		present = true
	}
	if h.RelSeconds > 0 {
		rel := time.Duration(h.RelSeconds) * time.Second
		if !present || rel < ttl {
			ttl = rel
		}
		present = true
	}
	if !present {
		return fallback
	}
	return ttl
}

// UserResult is a successful token resolution.
type UserResult struct {
	User  idmap.User
	Admin bool
	Cache CacheHint
}

// ValidResult is a user existence probe result.
type ValidResult struct {
	Exists bool
	Cache  CacheHint
}

// Handler adapts one authentication source.
//
// Implementations must be safe for concurrent use.
type Handler interface {
	// Authsource returns the source ID this handler serves. Constant for
	// the lifetime of the handler.
	Authsource() idmap.AuthsourceID

	// GetUser resolves a bearer token to a user and their admin bit.
	// Returns idmap.InvalidToken when the source rejects the token.
	GetUser(ctx context.Context, token idmap.Token) (UserResult, error)

	// IsValidUser reports whether a user exists at the source.
	IsValidUser(ctx context.Context, name idmap.Username) (ValidResult, error)
}
