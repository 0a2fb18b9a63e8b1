//go:build linux

package main

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ja7ad/heartbeat/internal/config"
)

type globals struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool
}

func main() {
	var g globals

	root := &cobra.Command{
		Use:   "heartbeat",
		Short: "Application heartbeat telemetry: rate, accuracy and power",
		Long: `The heartbeat tool drives and inspects the heartbeat engine, which turns
application progress markers into global, window and instant rate, accuracy
and power metrics, and publishes them for external control loops.

Published state goes to a directory (HEARTBEAT_ENABLED_DIR), a NATS
JetStream key-value bucket or Redis. Energy comes from RAPL, hwmon power
sensors, a CPU utilization model or nothing at all (HEARTBEAT_ENERGY_SOURCE).

Examples:
  HEARTBEAT_ENABLED_DIR=/run/heartbeat heartbeat run --beats 500 --window 20 --depth 64
  heartbeat run --publisher nats --nats-url nats://127.0.0.1:4222 --source rapl --metrics-addr :9100
  heartbeat watch --dir /run/heartbeat
  heartbeat sources`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if g.noColor || !isTerminal(os.Stdout) {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: text, json")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newRunCmd(&g), newWatchCmd(&g), newSourcesCmd())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// load reads the configuration, applies the global flags and the command's
// own overrides, and installs the resulting logger as the default.
func (g *globals) load(overrides ...func(*config.Config)) (*config.Config, *slog.Logger, error) {
	all := append([]func(*config.Config){func(c *config.Config) {
		if g.logLevel != "" {
			c.Log.Level = g.logLevel
		}
		if g.logFormat != "" {
			c.Log.Format = g.logFormat
		}
	}}, overrides...)

	cfg, err := config.Load(g.configPath, all...)
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
