package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/headline-goat/powergoat/internal/config"
	"github.com/headline-goat/powergoat/internal/logging"
)

var (
	configPath   string
	outputFormat string
	logLevel     string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "powergoat",
	Short: "powergoat - experiment power and decision engine",
	Long: `powergoat estimates statistical power and minimum detectable effects for
A/B experiments, projects power for running experiments, and turns metric
results into ship / rollback / review recommendations.

Inputs are YAML or JSON files; pass "-" to read JSON from stdin.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./powergoat.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// setup loads configuration and installs the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}

	v := config.New()
	if logLevel != "" {
		v.Set("log.level", logLevel)
	}

	loaded, err := config.Load(v, configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	l, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(logger)

	logger.Debug("configuration loaded", "file", v.ConfigFileUsed(), "engine", cfg.Stats.Engine)
	return nil
}
