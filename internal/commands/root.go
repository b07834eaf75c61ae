// Package commands implements the extractctl command line.
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fintrack/internal/config"
	pkgconfig "fintrack/pkg/config"
	"fintrack/pkg/logger"
)

type globalOptions struct {
	env       string
	configDir string
}

func (o *globalOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(o.env, o.configDir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewLogger(cfg.Log), nil
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "extractctl",
		Short: "Inspect and operate the bank email extraction pipeline",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", pkgconfig.GetConfigEnv(), "configuration environment")
	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", pkgconfig.GetEnv("CONFIG_DIR", "config"), "configuration directory")

	rootCmd.AddCommand(
		newExtractCommand(),
		newRulesCommand(),
		newOutboxCommand(opts),
		newFailuresCommand(opts),
		newTokenCommand(opts),
	)

	return rootCmd
}
