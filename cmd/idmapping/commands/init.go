package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// sampleConfig is written by `idmapping init` as a starting point.
const sampleConfig = `[idmapping]
# Listen address and port.
host =
port = 8080

# Set to true when the service is NOT behind a trusted reverse proxy.
dont-trust-x-ip-headers = false

# Storage backend: sqlite or postgres.
storage-type = sqlite
sqlite-path = /var/lib/idmapping/idmapping.db
# postgres-host =
# postgres-port = 5432
# postgres-db = idmapping
# postgres-user =
# postgres-pwd =

# Comma separated list of enabled authentication sources. The reserved
# source "local" serves users created with "idmapping user add".
authentication-enabled = local
# Subset of the enabled sources whose admin flag grants system
# administration rights on this service.
authentication-admin-enabled = local

# Remote sources need a factory module and init options, e.g.:
# authentication-enabled = local, kbase
# auth-source-kbase-factory-module = kbase
# auth-source-kbase-init-url = https://kbase.us/services/auth/
# auth-source-kbase-init-token = <service token>

log-level = info
log-format = json

# Prometheus /metrics endpoint.
metrics-enabled = false

# OTLP trace export.
telemetry-enabled = false
telemetry-endpoint = localhost:4317
telemetry-insecure = true
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample ID mapping configuration file.

The target path is taken from --config, then ID_MAPPING_CONFIG, then
KB_DEPLOYMENT_CONFIG. Existing files are not overwritten unless --force
is given.

Examples:
  idmapping init --config /etc/idmapping.cfg
  idmapping init --config /etc/idmapping.cfg --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		for _, env := range []string{"ID_MAPPING_CONFIG", "KB_DEPLOYMENT_CONFIG"} {
			if p := os.Getenv(env); p != "" {
				path = p
				break
			}
		}
	}
	if path == "" {
		return fmt.Errorf("no config path: pass --config or set ID_MAPPING_CONFIG")
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// 0600: the file may hold database and service credentials.
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Create an administrator: idmapping user add <name>")
	fmt.Printf("  3. Start the server: idmapping start --config %s\n", path)
	return nil
}
