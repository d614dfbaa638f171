package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/kbase/idmapping/internal/telemetry"
	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/lookup/cache"
)

// SetConfig configures the lookup set's caches.
type SetConfig struct {
	// MaxSize bounds each of the two caches independently.
	MaxSize int
	// UserTTL is the default lifetime for token resolutions when the
	// handler supplies no cache hint.
	UserTTL time.Duration
	// ValidTTL is the default lifetime for positive existence results
	// when the handler supplies no cache hint.
	ValidTTL time.Duration
	// Clock overrides the cache clock, for tests. Nil uses time.Now.
	Clock func() time.Time
	// UserMetrics and ValidMetrics instrument the two caches. Nil
	// disables instrumentation.
	UserMetrics  cache.Metrics
	ValidMetrics cache.Metrics
}

func (c *SetConfig) applyDefaults() {
	if c.MaxSize <= 0 {
		c.MaxSize = 10000
	}
	if c.UserTTL <= 0 {
		c.UserTTL = 300 * time.Second
	}
	if c.ValidTTL <= 0 {
		c.ValidTTL = 3600 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// userKey keys the token cache by source and token.
type userKey struct {
	source idmap.AuthsourceID
	token  idmap.Token
}

// userValue is a cached token resolution.
type userValue struct {
	user  idmap.User
	admin bool
}

// Set aggregates the configured handlers behind two bounded TTL caches.
//
// Token resolutions and positive existence results are cached up to the
// handler's cache hint (or the configured default); negative existence
// results are never cached so a freshly created account is visible
// immediately. A concurrent miss on the same key may call the handler
// twice; the calls are idempotent so no single-flight is attempted.
type Set struct {
	handlers   map[idmap.AuthsourceID]Handler
	userCache  *cache.TTLCache[userKey, userValue]
	validCache *cache.TTLCache[idmap.User, bool]
	clock      func() time.Time
	userTTL    time.Duration
	validTTL   time.Duration
}

// NewSet creates a lookup set over the given handlers. Handler source IDs
// must be unique.
func NewSet(handlers []Handler, cfg SetConfig) (*Set, error) {
	cfg.applyDefaults()
	byID := make(map[idmap.AuthsourceID]Handler, len(handlers))
	for _, h := range handlers {
		if _, exists := byID[h.Authsource()]; exists {
			return nil, fmt.Errorf("duplicate authsource handler: %s", h.Authsource())
		}
		byID[h.Authsource()] = h
	}
	return &Set{
		handlers:   byID,
		userCache:  cache.New[userKey, userValue](cfg.MaxSize, cfg.Clock, cfg.UserMetrics),
		validCache: cache.New[idmap.User, bool](cfg.MaxSize, cfg.Clock, cfg.ValidMetrics),
		clock:      cfg.Clock,
		userTTL:    cfg.UserTTL,
		validTTL:   cfg.ValidTTL,
	}, nil
}

// Sources returns the configured authsource IDs.
func (s *Set) Sources() []idmap.AuthsourceID {
	ids := make([]idmap.AuthsourceID, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether the source is configured.
func (s *Set) Has(source idmap.AuthsourceID) bool {
	_, ok := s.handlers[source]
	return ok
}

// GetUser resolves a token against the named source, consulting the cache
// first. Returns idmap.NoSuchAuthsource if the source is not configured.
func (s *Set) GetUser(ctx context.Context, source idmap.AuthsourceID, token idmap.Token) (idmap.User, bool, error) {
	h, ok := s.handlers[source]
	if !ok {
		return idmap.User{}, false, idmap.NewErrorf(idmap.NoSuchAuthsource, "%s", source)
	}

	key := userKey{source: source, token: token}
	if v, ok := s.userCache.Get(key); ok {
		return v.user, v.admin, nil
	}

	ctx, span := telemetry.StartLookupSpan(ctx, "get_user", string(source))
	defer span.End()

	res, err := h.GetUser(ctx, token)
	if err != nil {
		return idmap.User{}, false, err
	}
	if ctx.Err() != nil {
		// cancelled mid-flight; don't cache a result nobody received
		return idmap.User{}, false, ctx.Err()
	}
	s.userCache.Put(key, userValue{user: res.User, admin: res.Admin}, res.Cache.TTL(s.clock(), s.userTTL))
	return res.User, res.Admin, nil
}

// IsValidUser reports whether the user exists at their source, consulting
// the cache first. Only positive results are cached. Returns
// idmap.NoSuchAuthsource if the user's source is not configured.
func (s *Set) IsValidUser(ctx context.Context, user idmap.User) (bool, error) {
	h, ok := s.handlers[user.Source]
	if !ok {
		return false, idmap.NewErrorf(idmap.NoSuchAuthsource, "%s", user.Source)
	}

	if _, ok := s.validCache.Get(user); ok {
		return true, nil
	}

	ctx, span := telemetry.StartLookupSpan(ctx, "is_valid_user", string(user.Source))
	defer span.End()

	res, err := h.IsValidUser(ctx, user.Name)
	if err != nil {
		return false, err
	}
	if !res.Exists {
		return false, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	s.validCache.Put(user, true, res.Cache.TTL(s.clock(), s.validTTL))
	return true, nil
}
