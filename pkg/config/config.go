// Package config loads and validates the service configuration and wires
// the runtime components together.
//
// Configuration lives in an INI file with a single [idmapping] section.
// The file path is resolved from, in order: the explicit path handed to
// Load, the ID_MAPPING_CONFIG environment variable, then
// KB_DEPLOYMENT_CONFIG. Individual keys can be overridden with
// IDMAPPING_* environment variables (dashes become underscores, e.g.
// IDMAPPING_LOG_LEVEL).
package config

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/storage"
)

// Environment variables consulted for the config file location.
const (
	EnvConfigPath           = "ID_MAPPING_CONFIG"
	EnvDeploymentConfigPath = "KB_DEPLOYMENT_CONFIG"
)

// sectionName is the INI section holding all service keys.
const sectionName = "idmapping"

// authSourceKeyPrefix marks the per-source configuration keys:
// auth-source-<id>-factory-module and auth-source-<id>-init-<key>.
const authSourceKeyPrefix = "auth-source-"

// AuthSourceConfig configures one authentication source handler.
type AuthSourceConfig struct {
	// ID is the authsource this handler serves.
	ID idmap.AuthsourceID

	// Factory is the registry name of the handler factory. Defaults to
	// the source ID for the "local" source; required otherwise.
	Factory string

	// Init holds the per-source init options forwarded verbatim to the
	// factory.
	Init map[string]string
}

// Config is the validated service configuration.
type Config struct {
	// Host is the listen address. Empty binds all interfaces.
	Host string `mapstructure:"host"`

	// Port is the HTTP port.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`

	// DontTrustXIPHeaders disables X-Forwarded-For / X-Real-IP handling
	// when the service is not behind a trusted proxy.
	DontTrustXIPHeaders bool `mapstructure:"dont-trust-x-ip-headers"`

	// StorageType selects the database backend.
	// Default: sqlite
	StorageType string `mapstructure:"storage-type" validate:"omitempty,oneof=sqlite postgres"`

	// SQLitePath is the sqlite database file. ":memory:" for tests.
	SQLitePath string `mapstructure:"sqlite-path"`

	PostgresHost     string `mapstructure:"postgres-host"`
	PostgresPort     int    `mapstructure:"postgres-port" validate:"omitempty,min=1,max=65535"`
	PostgresDB       string `mapstructure:"postgres-db"`
	PostgresUser     string `mapstructure:"postgres-user"`
	PostgresPassword string `mapstructure:"postgres-pwd"`

	// AuthenticationEnabled is the comma separated list of enabled
	// authsource IDs.
	AuthenticationEnabled string `mapstructure:"authentication-enabled"`

	// AuthenticationAdminEnabled is the comma separated subset of
	// enabled sources whose admin flag conveys system administration.
	AuthenticationAdminEnabled string `mapstructure:"authentication-admin-enabled"`

	// LogLevel and LogFormat configure the structured logger.
	// Defaults: info, json
	LogLevel  string `mapstructure:"log-level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log-format" validate:"omitempty,oneof=text json"`

	// MetricsEnabled turns on the prometheus registry and /metrics.
	MetricsEnabled bool `mapstructure:"metrics-enabled"`

	// TelemetryEnabled turns on OTLP trace export.
	TelemetryEnabled    bool    `mapstructure:"telemetry-enabled"`
	TelemetryEndpoint   string  `mapstructure:"telemetry-endpoint"`
	TelemetryInsecure   bool    `mapstructure:"telemetry-insecure"`
	TelemetrySampleRate float64 `mapstructure:"telemetry-sample-rate" validate:"omitempty,gte=0,lte=1"`

	// CacheMaxSize bounds each lookup cache; CacheUserTTL and
	// CacheValidTTL are the default lifetimes for cached token
	// resolutions and user existence checks.
	CacheMaxSize  int           `mapstructure:"cache-max-size" validate:"omitempty,min=1"`
	CacheUserTTL  time.Duration `mapstructure:"cache-user-ttl"`
	CacheValidTTL time.Duration `mapstructure:"cache-valid-ttl"`

	// AuthSources and AdminSources are derived from the comma lists and
	// the auth-source-* keys during Load.
	AuthSources  []AuthSourceConfig   `mapstructure:"-"`
	AdminSources []idmap.AuthsourceID `mapstructure:"-"`
}

// ResolvePath returns the config file path: the explicit argument when
// non-empty, else the first set location environment variable.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, env := range []string{EnvConfigPath, EnvDeploymentConfigPath} {
		if path := os.Getenv(env); path != "" {
			return path, nil
		}
	}
	return "", fmt.Errorf("no config file given and neither %s nor %s is set",
		EnvConfigPath, EnvDeploymentConfigPath)
}

// Load reads, validates, and returns the configuration. An empty path is
// resolved through the environment.
func Load(path string) (*Config, error) {
	path, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	section, err := file.GetSection(sectionName)
	if err != nil {
		return nil, fmt.Errorf("config file %s has no [%s] section", path, sectionName)
	}
	keys := section.KeysHash()

	v := viper.New()
	v.SetEnvPrefix("IDMAPPING")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	settings := make(map[string]any, len(keys))
	for key, value := range keys {
		settings[key] = value
	}
	if err := v.MergeConfigMap(settings); err != nil {
		return nil, fmt.Errorf("failed to load config values: %w", err)
	}

	var cfg Config
	// INI values are all strings; weak typing converts "8080" and "true"
	// to their field types.
	err = v.Unmarshal(&cfg,
		viper.DecodeHook(durationDecodeHook()),
		func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.parseAuthSources(keys); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.StorageType == "" {
		c.StorageType = "sqlite"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.TelemetryEndpoint == "" {
		c.TelemetryEndpoint = "localhost:4317"
	}
	if c.TelemetrySampleRate == 0 {
		c.TelemetrySampleRate = 1.0
	}
}

// Validate checks field constraints and the cross-field rules: admin
// sources must be a subset of enabled sources and every enabled
// non-local source needs a factory module.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	enabled := make(map[idmap.AuthsourceID]struct{}, len(c.AuthSources))
	for _, src := range c.AuthSources {
		if src.Factory == "" {
			return fmt.Errorf("authsource %s has no %s%s-factory-module key",
				src.ID, authSourceKeyPrefix, src.ID)
		}
		enabled[src.ID] = struct{}{}
	}
	for _, id := range c.AdminSources {
		if _, ok := enabled[id]; !ok {
			return fmt.Errorf("authentication-admin-enabled source %s is not in authentication-enabled", id)
		}
	}
	return nil
}

// StorageConfig translates the flat keys into the storage configuration.
func (c *Config) StorageConfig() *storage.Config {
	return &storage.Config{
		Type:   storage.DatabaseType(c.StorageType),
		SQLite: storage.SQLiteConfig{Path: c.SQLitePath},
		Postgres: storage.PostgresConfig{
			Host:     c.PostgresHost,
			Port:     c.PostgresPort,
			Database: c.PostgresDB,
			User:     c.PostgresUser,
			Password: c.PostgresPassword,
		},
	}
}

// parseAuthSources builds AuthSources and AdminSources from the comma
// lists and the auth-source-* keys of the section.
func (c *Config) parseAuthSources(keys map[string]string) error {
	factories := map[string]string{}
	inits := map[string]map[string]string{}
	for key, value := range keys {
		if !strings.HasPrefix(key, authSourceKeyPrefix) {
			continue
		}
		rest := strings.TrimPrefix(key, authSourceKeyPrefix)
		parts := strings.SplitN(rest, "-", 2)
		if len(parts) != 2 {
			return fmt.Errorf("malformed config key %s", key)
		}
		id, remainder := parts[0], parts[1]
		switch {
		case remainder == "factory-module":
			factories[id] = value
		case strings.HasPrefix(remainder, "init-"):
			initKey := strings.TrimPrefix(remainder, "init-")
			if initKey == "" {
				return fmt.Errorf("malformed config key %s", key)
			}
			if inits[id] == nil {
				inits[id] = map[string]string{}
			}
			inits[id][initKey] = value
		default:
			return fmt.Errorf("unrecognized config key %s", key)
		}
	}

	enabled, err := splitSourceList(c.AuthenticationEnabled)
	if err != nil {
		return fmt.Errorf("bad authentication-enabled value: %w", err)
	}
	c.AuthSources = make([]AuthSourceConfig, 0, len(enabled))
	for _, id := range enabled {
		factory := factories[string(id)]
		if factory == "" && id == idmap.Local {
			factory = "local"
		}
		c.AuthSources = append(c.AuthSources, AuthSourceConfig{
			ID:      id,
			Factory: factory,
			Init:    inits[string(id)],
		})
	}

	c.AdminSources, err = splitSourceList(c.AuthenticationAdminEnabled)
	if err != nil {
		return fmt.Errorf("bad authentication-admin-enabled value: %w", err)
	}
	return nil
}

// splitSourceList parses a comma separated authsource list, validating
// each entry and dropping duplicates while preserving order.
func splitSourceList(raw string) ([]idmap.AuthsourceID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	seen := map[idmap.AuthsourceID]struct{}{}
	var out []idmap.AuthsourceID
	for _, part := range strings.Split(raw, ",") {
		id, err := idmap.NewAuthsourceID(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// EnabledSources returns the enabled authsource IDs, sorted.
func (c *Config) EnabledSources() []idmap.AuthsourceID {
	ids := make([]idmap.AuthsourceID, 0, len(c.AuthSources))
	for _, src := range c.AuthSources {
		ids = append(ids, src.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// durationDecodeHook converts strings like "30s" or "5m" and raw
// integers (seconds) to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil {
				return d, nil
			}
			// bare integers are seconds
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot parse duration %q", v)
			}
			return time.Duration(n) * time.Second, nil
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v) * time.Second, nil
		default:
			return data, nil
		}
	}
}
