// Package event defines the values that flow through the eqpush pipeline.
package event

import "time"

// Timer targets with special meaning.
const (
	// TargetYou marks a timer cast on the player.
	TargetYou = "__you__"
	// TargetCustom marks a user-defined timer with no target.
	TargetCustom = "__custom__"
)

// LogLine is one complete line read from the active log file.
type LogLine struct {
	// ArrivalTime is when the watcher read the line.
	ArrivalTime time.Time `json:"arrival_time"`

	// Character is taken from the log file name; empty if it could not be parsed.
	Character string `json:"character"`

	// Text is the line with its timestamp prefix removed.
	Text string `json:"text"`

	// File is the path of the log file the line came from.
	File string `json:"file,omitempty"`

	// LoggedAt is the timestamp the game wrote, zero if the line had none.
	LoggedAt time.Time `json:"logged_at,omitempty"`
}

// TimerExpiry signals that a buff, spell or custom timer ran out.
type TimerExpiry struct {
	// SpellID is zero for custom timers with no spell behind them.
	SpellID int `json:"spell_id"`

	SpellName string `json:"spell_name"`

	// Target is TargetYou, TargetCustom or the name of the target.
	Target string `json:"target"`
}
