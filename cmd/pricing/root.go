package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pricingcli/internal/config"
	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/infrastructure"
)

// globalOptions are shared by every subcommand
type globalOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Budget pricing from SINAPI, CDHU and SICRO cost libraries",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a YAML config file (default: pricing.yaml when present)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newCalculateCmd(opts),
		newServeCmd(opts),
		newInspectDBCmd(opts),
	)
	return root
}

// load reads the configuration and applies the global overrides.
// CLI commands that print results keep stdout for them.
func (o *globalOptions) load(keepStdout bool) (*config.Config, error) {
	if o.configFile != "" {
		if err := os.Setenv(config.EnvPrefix+"_CONFIG", o.configFile); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if keepStdout && (cfg.Logging.Output == "stdout" || cfg.Logging.Output == "both") {
		cfg.Logging.Output = "stderr"
	}
	if err := cfg.Validate(); err != nil {
		return nil, apierrors.NewConfigError("invalid configuration", err)
	}
	return cfg, nil
}

func (o *globalOptions) logger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// absolute resolves a flag path against the working directory so it is not
// re-rooted under the configured data directory
func absolute(p string) (string, error) {
	if p == "" || filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Abs(p)
}
