package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbase/idmapping/pkg/idmap"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idmapping.cfg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
[idmapping]
storage-type = sqlite
sqlite-path = :memory:
authentication-enabled = local
authentication-admin-enabled = local
`

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.StorageType)
	assert.Equal(t, ":memory:", cfg.SQLitePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	require.Len(t, cfg.AuthSources, 1)
	assert.Equal(t, idmap.Local, cfg.AuthSources[0].ID)
	assert.Equal(t, "local", cfg.AuthSources[0].Factory)
	assert.Equal(t, []idmap.AuthsourceID{idmap.Local}, cfg.AdminSources)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[idmapping]
host = 127.0.0.1
port = 9191
dont-trust-x-ip-headers = true
storage-type = postgres
postgres-host = db.example.com
postgres-port = 5433
postgres-db = idmapping
postgres-user = mapper
postgres-pwd = hunter2
authentication-enabled = local, kbase
authentication-admin-enabled = kbase
auth-source-kbase-factory-module = kbase
auth-source-kbase-init-url = https://auth.example.com/
auth-source-kbase-init-token = svc-token
log-level = debug
log-format = text
cache-max-size = 500
cache-user-ttl = 60s
cache-valid-ttl = 3600
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9191, cfg.Port)
	assert.True(t, cfg.DontTrustXIPHeaders)
	assert.Equal(t, "postgres", cfg.StorageType)
	assert.Equal(t, "db.example.com", cfg.PostgresHost)
	assert.Equal(t, 5433, cfg.PostgresPort)
	assert.Equal(t, "hunter2", cfg.PostgresPassword)
	assert.Equal(t, 500, cfg.CacheMaxSize)
	assert.Equal(t, 60*time.Second, cfg.CacheUserTTL)
	assert.Equal(t, 3600*time.Second, cfg.CacheValidTTL)

	require.Len(t, cfg.AuthSources, 2)
	assert.Equal(t, []idmap.AuthsourceID{"kbase", "local"}, cfg.EnabledSources())
	var kbase AuthSourceConfig
	for _, src := range cfg.AuthSources {
		if src.ID == "kbase" {
			kbase = src
		}
	}
	assert.Equal(t, "kbase", kbase.Factory)
	assert.Equal(t, map[string]string{
		"url":   "https://auth.example.com/",
		"token": "svc-token",
	}, kbase.Init)
	assert.Equal(t, []idmap.AuthsourceID{"kbase"}, cfg.AdminSources)
}

func TestLoadResolvesPathFromEnvironment(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	t.Run("ID_MAPPING_CONFIG", func(t *testing.T) {
		t.Setenv(EnvConfigPath, path)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, ":memory:", cfg.SQLitePath)
	})

	t.Run("KB_DEPLOYMENT_CONFIG fallback", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		t.Setenv(EnvDeploymentConfigPath, path)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, ":memory:", cfg.SQLitePath)
	})

	t.Run("neither set", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		t.Setenv(EnvDeploymentConfigPath, "")
		_, err := Load("")
		require.Error(t, err)
	})
}

func TestLoadRejectsMissingSection(t *testing.T) {
	path := writeConfig(t, "[other]\nkey = value\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "[idmapping] section")
}

func TestLoadRejectsAdminSourceNotEnabled(t *testing.T) {
	path := writeConfig(t, `
[idmapping]
sqlite-path = :memory:
authentication-enabled = local
authentication-admin-enabled = kbase
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "kbase is not in authentication-enabled")
}

func TestLoadRejectsSourceWithoutFactory(t *testing.T) {
	path := writeConfig(t, `
[idmapping]
sqlite-path = :memory:
authentication-enabled = local, custom
authentication-admin-enabled = local
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "auth-source-custom-factory-module")
}

func TestLoadRejectsIllegalSourceID(t *testing.T) {
	path := writeConfig(t, `
[idmapping]
sqlite-path = :memory:
authentication-enabled = Local
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	path := writeConfig(t, `
[idmapping]
sqlite-path = :memory:
authentication-enabled = local
log-level = loud
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestBuild(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	sys, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Close() })

	assert.True(t, sys.Lookup.Has(idmap.Local))
	require.NotNil(t, sys.Mapper)
	require.NoError(t, sys.Store.Ping(context.Background()))
}

func TestBuildFailsOnUnknownFactory(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[idmapping]
sqlite-path = :memory:
authentication-enabled = local, ghost
auth-source-ghost-factory-module = nosuchfactory
`))
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg)
	require.ErrorContains(t, err, "nosuchfactory")
}

func TestAPIConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	cfg.Host = "10.0.0.1"
	cfg.DontTrustXIPHeaders = true

	apiCfg := cfg.APIConfig("1.2.3", "deadbeef")
	assert.Equal(t, "10.0.0.1", apiCfg.Host)
	assert.Equal(t, 8080, apiCfg.Port)
	assert.False(t, apiCfg.TrustProxyHeaders)
	assert.Equal(t, "1.2.3", apiCfg.Version)
	assert.Equal(t, "deadbeef", apiCfg.GitCommit)
}
