// Package cli wires configuration, stores and the beacon emitter into the
// beacon command-line tool.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lstn/beacon/internal/config"
	"github.com/lstn/beacon/internal/metrics"
)

// RootOptions holds global flags and the state PersistentPreRunE builds.
type RootOptions struct {
	Collector string
	Scheme    string
	LogLevel  string
	LogFormat string

	Config  *config.Config
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// ValidFormats defines the allowed log formats.
var ValidFormats = []string{"json", "text"}

// NewRootCommand creates the root command for the beacon CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "beacon",
		Short: "Page-view analytics beacon client",
		Long: `Send LOAD, TIME and UNLOAD beacons to an analytics collector.

Every beacon is an empty-body POST whose headers carry the signal type, a
persistent device id, a session id and a content id. Settings come from
BEACON_* environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Collector, "collector", "", "collector URL (overrides BEACON_COLLECTOR_URL)")
	cmd.PersistentFlags().StringVar(&opts.Scheme, "scheme", "", "header scheme: plain|prefixed (overrides BEACON_HEADER_SCHEME)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format: json|text (overrides LOG_FORMAT)")

	cmd.AddCommand(NewPageCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))

	return cmd
}

// load reads the environment, applies flag overrides and builds the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.Collector != "" {
		cfg.CollectorURL = o.Collector
	}
	if o.Scheme != "" {
		cfg.HeaderScheme = o.Scheme
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	if !isValidFormat(cfg.LogFormat) {
		return fmt.Errorf("invalid log format %q: must be one of %v", cfg.LogFormat, ValidFormats)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	o.Config = cfg
	o.Logger = initLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if o.Metrics == nil {
		o.Metrics = metrics.NewInMemory()
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
