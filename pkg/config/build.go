package config

import (
	"context"
	"fmt"

	"github.com/kbase/idmapping/internal/logger"
	"github.com/kbase/idmapping/pkg/api"
	"github.com/kbase/idmapping/pkg/lookup"
	"github.com/kbase/idmapping/pkg/mapper"
	"github.com/kbase/idmapping/pkg/metrics"
	"github.com/kbase/idmapping/pkg/storage"
)

// System is the wired runtime: storage, the lookup set over the
// configured authsource handlers, and the mapper kernel.
type System struct {
	Store  storage.Store
	Lookup *lookup.Set
	Mapper *mapper.Mapper
}

// Close releases the system's resources.
func (s *System) Close() error {
	return s.Store.Close()
}

// Build constructs the runtime from a validated configuration. Handler
// construction is fail-fast: a misconfigured authsource aborts startup
// rather than serving with a partial handler set.
func Build(ctx context.Context, cfg *Config) (*System, error) {
	store, err := storage.New(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("database is not reachable: %w", err)
	}

	handlers := make([]lookup.Handler, 0, len(cfg.AuthSources))
	for _, src := range cfg.AuthSources {
		h, err := lookup.NewHandler(src.Factory, src.ID, store, src.Init)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to build authsource %s: %w", src.ID, err)
		}
		logger.Info("configured authsource",
			logger.Authsource(src.ID.String()),
			"factory", src.Factory,
		)
		handlers = append(handlers, h)
	}

	set, err := lookup.NewSet(handlers, lookup.SetConfig{
		MaxSize:      cfg.CacheMaxSize,
		UserTTL:      cfg.CacheUserTTL,
		ValidTTL:     cfg.CacheValidTTL,
		UserMetrics:  metrics.NewCacheMetrics("user"),
		ValidMetrics: metrics.NewCacheMetrics("valid"),
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to build lookup set: %w", err)
	}

	m, err := mapper.New(store, set, cfg.AdminSources)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &System{Store: store, Lookup: set, Mapper: m}, nil
}

// APIConfig derives the HTTP server configuration.
func (c *Config) APIConfig(version, gitCommit string) api.Config {
	return api.Config{
		Host:              c.Host,
		Port:              c.Port,
		TrustProxyHeaders: !c.DontTrustXIPHeaders,
		Version:           version,
		GitCommit:         gitCommit,
	}
}
