package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/eqpush/eqpush-go/pkg/eqpush"
	"github.com/eqpush/eqpush-go/pkg/eqpush/event"
)

// ValidFormats lists all valid output formats.
var ValidFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

// OutputReport writes a report in the specified format to the writer.
func OutputReport(format string, r eqpush.Report, out io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(r, out)
	case "pretty":
		return OutputPretty(r, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes a report as JSON Lines format.
func OutputJSON(r eqpush.Report, out io.Writer) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// OutputPretty writes a report in human-readable format.
func OutputPretty(r eqpush.Report, out io.Writer) error {
	ts := r.Time.Format("15:04:05")

	var err error
	switch {
	case r.Consumed:
		_, err = fmt.Fprintf(out, "[%s] ~ %s\n", ts, r.Control)
	case r.Timer != nil:
		_, err = fmt.Fprintf(out, "[%s] %s timer %s on %s (%s)\n",
			ts, mark(r), quoteIfNeeded(r.Timer.SpellName), quoteIfNeeded(timerTarget(r.Timer.Target)), outcome(r))
	case r.Match != nil:
		if len(r.Match.Groups) > 0 {
			_, err = fmt.Fprintf(out, "[%s] %s %s: %s (%s)\n", ts, mark(r), r.Match.Rule, formatData(r.Match.Groups), outcome(r))
		} else {
			_, err = fmt.Fprintf(out, "[%s] %s %s (%s)\n", ts, mark(r), r.Match.Rule, outcome(r))
		}
	default:
		_, err = fmt.Fprintf(out, "[%s] * %s\n", ts, outcome(r))
	}

	return err
}

// timerTarget replaces the target sentinels with readable names.
func timerTarget(target string) string {
	switch target {
	case event.TargetYou:
		return "you"
	case event.TargetCustom:
		return "custom"
	}
	return target
}

func mark(r eqpush.Report) string {
	if r.Sent {
		return ">"
	}
	return "-"
}

func outcome(r eqpush.Report) string {
	s := string(r.Reason)
	if r.Error != "" {
		s += ": " + r.Error
	}
	return s
}

// formatData formats a map as sorted key=value pairs.
// Values are quoted if they contain spaces, equals signs, quotes, or control characters.
func formatData(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(data))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", quoteIfNeeded(k), quoteIfNeeded(data[k])))
	}
	return strings.Join(parts, " ")
}

// quoteIfNeeded quotes a value if it contains special characters or control characters.
func quoteIfNeeded(v string) string {
	if v == "" {
		return `""`
	}

	needsQuote := strings.ContainsFunc(v, func(c rune) bool {
		return c == ' ' || c == '=' || c == '"' || c == '\\' || c < 0x20 || c == 0x7F
	})
	if !needsQuote {
		return v
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range v {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c == 0x7F:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
