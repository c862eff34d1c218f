package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eqpush/eqpush-go/internal/logfinder"
	"github.com/eqpush/eqpush-go/internal/parser"
	"github.com/eqpush/eqpush-go/internal/tailer"
	"github.com/eqpush/eqpush-go/pkg/eqpush"
	"github.com/eqpush/eqpush-go/pkg/eqpush/event"
)

var (
	// follow flags
	followFromStart bool
	followPoll      bool
	followFormat    string
)

var followCmd = &cobra.Command{
	Use:   "follow FILE",
	Short: "Evaluate one log file without sending notifications",
	Long: `Follow a single eqlog_<Character>_<server>.txt file and print what would be
sent for every control line and trigger match. Nothing is sent to Prowl.

Unlike watch, follow never switches to a newer file; it only reopens FILE
after it is rotated.

Examples:
  # Replay a whole log through the current triggers
  eqpush follow --from-start eqlog_Fippy_povar.txt

  # Follow on a network share
  eqpush follow --poll //host/Logs/eqlog_Fippy_povar.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().BoolVar(&followFromStart, "from-start", false,
		"Read existing content before following")
	followCmd.Flags().BoolVar(&followPoll, "poll", false,
		"Poll for changes instead of using file system notifications")
	followCmd.Flags().StringVarP(&followFormat, "format", "f", "pretty",
		"Output format: jsonl, pretty")

	rootCmd.AddCommand(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	if !ValidFormats[followFormat] {
		return fmt.Errorf("unknown format: %s", followFormat)
	}

	path := args[0]
	character, err := logfinder.CharacterName(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(os.Stderr)
	cfg, _, err := loadConfig(logger)
	if err != nil {
		return err
	}

	cfgTail := tailer.DefaultConfig()
	cfgTail.FromStart = followFromStart
	cfgTail.Poll = followPoll
	src := &fileSource{path: path, character: character, cfg: cfgTail}

	out := cmd.OutOrStdout()
	engine := eqpush.NewEngine(src, cfg, dryRunNotifier,
		eqpush.WithEngineLogger(logger),
		eqpush.WithReport(func(r eqpush.Report) {
			if err := OutputReport(followFormat, r, out); err != nil {
				logger.Warn("output error", "err", err)
			}
		}),
	)
	return engine.Run(ctx)
}

// fileSource feeds one tailed file to the engine.
type fileSource struct {
	path      string
	character string
	cfg       tailer.Config
	now       func() time.Time
}

func (s *fileSource) Watch(ctx context.Context) (<-chan event.LogLine, <-chan error, error) {
	tr, err := tailer.New(ctx, s.path, s.cfg)
	if err != nil {
		return nil, nil, err
	}
	now := s.now
	if now == nil {
		now = time.Now
	}

	lineCh := make(chan event.LogLine)
	go func() {
		defer close(lineCh)
		defer tr.Stop()
		for raw := range tr.Lines() {
			if ctx.Err() != nil {
				return
			}
			if strings.TrimSpace(raw) == "" {
				continue
			}
			text, loggedAt := parser.StripTimestamp(raw)
			ln := event.LogLine{
				ArrivalTime: now(),
				Character:   s.character,
				Text:        text,
				File:        s.path,
				LoggedAt:    loggedAt,
			}
			select {
			case lineCh <- ln:
			case <-ctx.Done():
				return
			}
		}
	}()
	return lineCh, tr.Errors(), nil
}
