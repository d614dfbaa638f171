package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbase/idmapping/internal/logger"
	"github.com/kbase/idmapping/internal/telemetry"
	"github.com/kbase/idmapping/pkg/api"
	"github.com/kbase/idmapping/pkg/config"
	"github.com/kbase/idmapping/pkg/metrics"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ID mapping server",
	Long: `Start the ID mapping server with the specified configuration.

The configuration file is resolved from --config, then the
ID_MAPPING_CONFIG environment variable, then KB_DEPLOYMENT_CONFIG.

Examples:
  # Start with the config from the environment
  ID_MAPPING_CONFIG=/etc/idmapping.cfg idmapping start

  # Start with an explicit config file
  idmapping start --config /etc/idmapping.cfg`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.TelemetryEnabled,
		ServiceName:    "idmapping",
		ServiceVersion: Version,
		Endpoint:       cfg.TelemetryEndpoint,
		Insecure:       cfg.TelemetryInsecure,
		SampleRate:     cfg.TelemetrySampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	if cfg.MetricsEnabled {
		metrics.InitRegistry()
	}

	logger.Info("configuration loaded",
		"log_level", cfg.LogLevel,
		"storage", cfg.StorageType,
		"auth_sources", cfg.EnabledSources(),
		"admin_sources", cfg.AdminSources,
		"metrics", cfg.MetricsEnabled,
		"telemetry", telemetry.IsEnabled(),
	)

	sys, err := config.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sys.Close(); err != nil {
			logger.Error("storage shutdown error", logger.Err(err))
		}
	}()

	server := api.NewServer(cfg.APIConfig(Version, Commit), sys.Mapper, sys.Store)
	return server.Start(ctx)
}
