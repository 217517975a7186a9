package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/config"
	logpkg "github.com/kailas-cloud/catalogqa/internal/logger"
	"github.com/kailas-cloud/catalogqa/internal/version"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	cfgFile string
	env     string
	verbose bool
	noColor bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "catalogqa-cli",
		Short: "Ask questions about the product catalog",
		Long: `catalogqa-cli answers natural-language questions about the product catalog
using the same classification, filter synthesis and retrieval pipeline as the
API server. The classify and filter commands run offline without any provider.`,
		Version:       fmt.Sprintf("%s (%s, %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path (default: config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.env, "env", "", "environment name (default: $ENV or local)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newAskCmd(opts),
		newClassifyCmd(opts),
		newFilterCmd(opts),
		newSeedCmd(opts),
	)
	return cmd
}

func (o *rootOptions) environment() string {
	if o.env != "" {
		return o.env
	}
	return config.GetEnv()
}

// loadConfig reads the configuration. With optional set, a missing or invalid
// file yields built-in defaults so offline commands work without one.
func (o *rootOptions) loadConfig(optional bool) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.cfgFile != "" {
		cfg, err = config.LoadFile(o.cfgFile)
	} else {
		cfg, err = config.Load(o.environment())
	}
	if err == nil {
		return cfg, nil
	}
	if !optional || o.cfgFile != "" {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg = config.Config{}
	cfg.ApplyDefaults()
	return cfg, nil
}

// newLogger logs to stderr only when verbose; CLI output stays clean otherwise.
func (o *rootOptions) newLogger(cfg config.Config) (*zap.Logger, error) {
	if !o.verbose {
		return zap.NewNop(), nil
	}
	level := cfg.Logging.Level
	if level == "" {
		level = "debug"
	}
	l, err := logpkg.NewLogger("dev", level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l, nil
}
