package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eqpush/eqpush-go/internal/parser"
	"github.com/eqpush/eqpush-go/pkg/eqpush/config"
	"github.com/eqpush/eqpush-go/pkg/eqpush/trigger"
)

var (
	// check flags
	checkLines  []string
	checkStrict bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and test triggers",
	Long: `Load the configuration, compile its triggers and report problems.

Each --line is classified as it would be while watching: timestamps are
stripped, AFK toggles are recognized and consumed, and everything else
is matched against the triggers. Camp and login lines are reported and
then matched as well.

Examples:
  eqpush check --config eqpush.yaml
  eqpush check --line "[Wed Oct 14 20:01:02 2026] a gnoll has been slain by Fippy."`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringArrayVarP(&checkLines, "line", "l", nil,
		"Log line to test (repeatable)")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false,
		"Fail when any trigger is skipped")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)
	cfg, _, err := loadConfig(logger)
	if err != nil {
		return err
	}
	return check(cmd.OutOrStdout(), cfg.Current(), checkLines, checkStrict)
}

func check(out io.Writer, snap *config.Snapshot, lines []string, strict bool) error {
	rs := trigger.Compile(snap.Push.Triggers)
	fmt.Fprintf(out, "config %016x: %d of %d triggers compiled\n",
		snap.Version(), rs.Len(), len(snap.Push.Triggers))
	for _, w := range rs.Warnings() {
		fmt.Fprintf(out, "  warning: %v\n", w)
	}
	if !snap.Push.Enabled {
		fmt.Fprintln(out, "  note: push is disabled")
	}
	if snap.Push.ProwlAPIKey == "" {
		fmt.Fprintln(out, "  note: prowl_api_key is empty, nothing will be sent")
	}

	for _, line := range lines {
		fmt.Fprintln(out, describeLine(rs, line))
	}

	if strict && len(rs.Warnings()) > 0 {
		return fmt.Errorf("%d trigger(s) skipped", len(rs.Warnings()))
	}
	return nil
}

// describeLine reports what the engine does with line. AFK toggles are
// consumed; other control lines update the session and are still matched.
func describeLine(rs *trigger.RuleSet, line string) string {
	text, _ := parser.StripTimestamp(line)
	prefix := quoteIfNeeded(text) + " =>"

	c := parser.Classify(text)
	switch c.Kind {
	case parser.AFKOn, parser.AFKOff:
		return prefix + " " + c.Kind.String()
	case parser.None:
	default:
		prefix += " " + c.Kind.String() + ","
	}

	m, ok := rs.Match(text)
	switch {
	case !ok:
		return prefix + " no match"
	case len(m.Groups) > 0:
		return prefix + " " + m.Rule + " " + formatData(m.Groups)
	default:
		return prefix + " " + m.Rule
	}
}
