package eqpush

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxLineBytes bounds a pending partial line.
const DefaultMaxLineBytes = 512 * 1024

// WatchOption configures a Watcher using the functional options pattern.
type WatchOption func(*watchConfig)

// watchConfig holds internal configuration for the watcher.
type watchConfig struct {
	logDir       string
	pollInterval time.Duration
	waitForLogs  bool
	fileEvents   bool // use fsnotify in addition to polling
	maxLineBytes int
	logger       *slog.Logger
	now          func() time.Time
}

// defaultWatchConfig returns a watchConfig with sensible defaults.
func defaultWatchConfig() *watchConfig {
	return &watchConfig{
		pollInterval: 2 * time.Second,
		fileEvents:   true,
		maxLineBytes: DefaultMaxLineBytes,
		now:          time.Now,
	}
}

// applyWatchOptions applies functional options to a watchConfig.
func applyWatchOptions(opts []WatchOption) *watchConfig {
	cfg := defaultWatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// validate checks for invalid option values.
func (c *watchConfig) validate() error {
	if c.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.pollInterval)
	}
	if c.maxLineBytes <= 0 {
		return fmt.Errorf("max line bytes must be positive, got %d", c.maxLineBytes)
	}
	return nil
}

// WithLogDir sets the EverQuest Logs directory.
// If not set, auto-detects from default Windows install locations.
// Can also be set via the EQPUSH_LOGDIR environment variable.
func WithLogDir(dir string) WatchOption {
	return func(c *watchConfig) {
		c.logDir = dir
	}
}

// WithPollInterval sets how often the newest log file is re-checked.
// Default: 2 seconds.
func WithPollInterval(interval time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.pollInterval = interval
	}
}

// WithWaitForLogs configures whether to wait for a log file to appear.
// When false (default), ErrNoLogFiles is reported immediately if the
// directory has no logs, and the watcher stops.
func WithWaitForLogs(wait bool) WatchOption {
	return func(c *watchConfig) {
		c.waitForLogs = wait
	}
}

// WithFileEvents enables or disables fsnotify change events.
// When disabled only the poll ticker drives reads. Default: true.
func WithFileEvents(enabled bool) WatchOption {
	return func(c *watchConfig) {
		c.fileEvents = enabled
	}
}

// WithMaxLineBytes sets how long an unterminated line may grow before
// the watcher gives up on it and resyncs to end of file.
// Default: 512KB.
func WithMaxLineBytes(n int) WatchOption {
	return func(c *watchConfig) {
		c.maxLineBytes = n
	}
}

// WithLogger sets a custom logger for debug output.
// If logger is nil, logging is disabled (default behavior).
func WithLogger(logger *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = logger
	}
}

// WithClock sets the function used to stamp LogLine.ArrivalTime.
func WithClock(now func() time.Time) WatchOption {
	return func(c *watchConfig) {
		if now != nil {
			c.now = now
		}
	}
}
