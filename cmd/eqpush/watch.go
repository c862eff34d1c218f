package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eqpush/eqpush-go/internal/idle"
	"github.com/eqpush/eqpush-go/internal/prowl"
	"github.com/eqpush/eqpush-go/pkg/eqpush"
)

var (
	// watch flags
	logDir        string
	format        string
	pollInterval  time.Duration
	waitForLogs   bool
	dryRun        bool
	notifyTimeout time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch EverQuest logs and send notifications",
	Long: `Watch the most recently written EverQuest log file and send a push
notification when a trigger matches or a timer expires.

Every decision is printed as JSON Lines by default (one JSON object per
line), which makes it easy to process with tools like jq.

Examples:
  # Watch with default settings (auto-detect log directory)
  eqpush watch --config eqpush.yaml

  # Specify log directory
  eqpush watch --log-dir "C:\Users\Public\Daybreak Game Company\Installed Games\EverQuest\Logs"

  # Show decisions without sending anything
  eqpush watch --dry-run --format pretty

  # Only print what was actually sent
  eqpush watch | jq 'select(.sent)'`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&logDir, "log-dir", "d", "",
		"EverQuest Logs directory (overrides log_dir; auto-detected if empty)")
	watchCmd.Flags().StringVarP(&format, "format", "f", "jsonl",
		"Output format: jsonl, pretty")
	watchCmd.Flags().DurationVar(&pollInterval, "poll-interval", 2*time.Second,
		"How often to re-check the newest log file")
	watchCmd.Flags().BoolVar(&waitForLogs, "wait", false,
		"Wait for a log file to appear instead of failing")
	watchCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Evaluate the policy but do not contact Prowl")
	watchCmd.Flags().DurationVar(&notifyTimeout, "notify-timeout", eqpush.DefaultNotifyTimeout,
		"Maximum time for one notification")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("unknown format: %s", format)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(os.Stderr)
	cfg, manager, err := loadConfig(logger)
	if err != nil {
		return err
	}
	if manager != nil {
		go manager.Watch(ctx)
	}

	dir := logDir
	if dir == "" {
		dir = cfg.Current().LogDir
	}
	watcher, err := eqpush.NewWatcherWithOptions(
		eqpush.WithLogDir(dir),
		eqpush.WithPollInterval(pollInterval),
		eqpush.WithWaitForLogs(waitForLogs),
		eqpush.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer watcher.Close()
	logger.Info("watching", "dir", watcher.LogDir())

	var notifier eqpush.Notifier = prowl.New()
	if dryRun {
		notifier = dryRunNotifier
	}
	if !idle.Supported() {
		logger.Debug("idle detection not supported on this platform")
	}

	out := cmd.OutOrStdout()
	engine := eqpush.NewEngine(watcher, cfg, notifier,
		eqpush.WithEngineLogger(logger),
		eqpush.WithIdleProbe(idle.Seconds),
		eqpush.WithDispatcherOptions(eqpush.WithNotifyTimeout(notifyTimeout)),
		eqpush.WithReport(func(r eqpush.Report) {
			if err := OutputReport(format, r, out); err != nil {
				logger.Warn("output error", "err", err)
			}
		}),
	)
	return engine.Run(ctx)
}

// dryRunNotifier accepts every notification without sending it.
var dryRunNotifier = eqpush.NotifierFunc(func(context.Context, eqpush.Notification) error {
	return nil
})
