// Package commands implements the CLI for the ID mapping service: the
// server itself plus the administrative commands that manage local users
// and namespaces directly against storage.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbase/idmapping/internal/logger"
	"github.com/kbase/idmapping/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "idmapping",
	Short: "ID Mapping Service - map identifiers across namespaces",
	Long: `The ID Mapping Service records equivalences between identifiers living
in different administrative namespaces (e.g. NCBI_Refseq/GCF_001598195.1 and
an ENSEMBL gene id). Clients add, remove, and query mappings over HTTP;
namespace owners control who may write into their namespace.

Use "idmapping [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: $ID_MAPPING_CONFIG, then $KB_DEPLOYMENT_CONFIG)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(namespaceCmd)
}

// loadConfig loads the configuration honoring the global --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// initLogger initializes the structured logger from configuration.
func initLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stdout",
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
