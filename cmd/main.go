// Command ehb serves the tiered access and reward API and ships a few
// operator tools around it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	app "github.com/okian/ehb/internal/app"
	"github.com/okian/ehb/internal/config"
	"github.com/okian/ehb/pkg/logger"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = "dev"
	buildTime = "unknown"
)

const appName = "ehb"

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Tiered access, reward and franchise earnings service",
		Long: `ehb evaluates SQL tier access, validator rewards and franchise
earnings, rate limits its API and moderates reported content.

Running it without a subcommand starts the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// The loader reads the file path from the environment so that
			// the flag and EHB_CONFIG behave the same.
			if configPath != "" {
				return os.Setenv(config.EnvConfigFile, configPath)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (overrides "+config.EnvConfigFile+")")

	cmd.AddCommand(
		serveCmd(),
		versionCmd(),
		rewardCmd(),
		tokenCmd(),
		walletCmd(),
		loadgenCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, version, buildTime)
		},
	}
}

// loadConfig loads configuration and initializes the global logger from it.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithFile(cfg.LogFile)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, log logger.Logger) []app.Option {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN),
		app.WithDatabasePool(cfg.DatabaseMaxOpenConns, strings.EqualFold(cfg.LogLevel, "debug")),
		app.WithWorkerCount(cfg.NotifyWorkers),
		app.WithQueueSize(cfg.NotifyQueueSize),
		app.WithNotifyRate(cfg.NotifyRatePerSecond),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithRewardBaseRate(cfg.RewardBaseRate),
		app.WithReportThresholds(cfg.ReportThresholds),
		app.WithRateLimitProfiles(cfg.RateLimitProfiles()...),
		app.WithNATS(cfg.NATSURL, cfg.NotifySubject),
	}
	if cfg.CounterBackend == config.BackendRedis {
		opts = append(opts, app.WithRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTimeout()))
	}
	return opts
}
