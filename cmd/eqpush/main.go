// Command eqpush watches EverQuest logs and sends Prowl push notifications.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/eqpush/eqpush-go/pkg/eqpush/config"
)

var (
	// global flags
	configPath string
	verbose    bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "eqpush",
	Short: "EverQuest log notifications",
	Long: `eqpush follows the active EverQuest log file, tracks AFK and camping
state, and pushes a notification through Prowl when a configured
trigger matches.

Configuration is read from a YAML file (--config) and EQPUSH_*
environment variables. Without --config only defaults and the
environment are used.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !validLogFormats[logFormat] {
			return fmt.Errorf("invalid --log-format %q (valid: text, json)", logFormat)
		}
		return nil
	},
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"YAML configuration file (hot-reloaded while watching)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Diagnostic log format on stderr: text, json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the diagnostic logger from the global flags.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig returns the starting snapshot and, when a file is used, the
// manager that keeps it current.
func loadConfig(logger *slog.Logger) (config.Source, *config.Manager, error) {
	if configPath == "" {
		snap, err := config.FromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}
		return config.Static(snap), nil, nil
	}

	m := config.NewManager(configPath, config.WithManagerLogger(logger))
	if _, err := m.Load(); err != nil {
		// Error from config package does not include the path.
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return m, m, nil
}
