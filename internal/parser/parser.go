// Package parser recognizes the fixed EverQuest log lines that drive
// session state and strips the engine's timestamp prefix.
package parser

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies a session control line.
type Kind int

const (
	// None is an ordinary line that falls through to trigger matching.
	None Kind = iota
	// AFKOn is "You are now A.F.K. (Away From Keyboard)."
	AFKOn
	// AFKOff is "You are no longer A.F.K. (Away From Keyboard)."
	AFKOff
	// Welcome is the login banner.
	Welcome
	// CampPrepare is the camp countdown notice.
	CampPrepare
	// CampAbandon is the camp cancellation notice.
	CampAbandon
)

var kindNames = map[Kind]string{
	None:        "none",
	AFKOn:       "afk_on",
	AFKOff:      "afk_off",
	Welcome:     "welcome",
	CampPrepare: "camp_prepare",
	CampAbandon: "camp_abandon",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Control is the classification of a stripped log line.
type Control struct {
	Kind Kind
	// Delay is the camp countdown; only set for CampPrepare.
	Delay time.Duration
}

// StripTimestamp removes everything up to and including the first
// well-formed "[Mon Jan 02 15:04:05 2006]" token. Lines without one are
// returned unchanged with a zero time.
func StripTimestamp(line string) (string, time.Time) {
	loc := timestampPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return line, time.Time{}
	}
	ts, err := time.ParseInLocation(timestampLayout, line[loc[2]:loc[3]], time.Local)
	if err != nil {
		// Bracket has the right shape but is not a real date; keep the text.
		return line, time.Time{}
	}
	return line[loc[1]:], ts
}

// Classify reports whether text (already stripped) is a session control line.
func Classify(text string) Control {
	switch {
	case afkOnPattern.MatchString(text):
		return Control{Kind: AFKOn}
	case afkOffPattern.MatchString(text):
		return Control{Kind: AFKOff}
	case strings.HasPrefix(text, welcomePrefix):
		return Control{Kind: Welcome}
	case strings.HasPrefix(text, campAbandonPrefix):
		return Control{Kind: CampAbandon}
	}

	if m := campPreparePattern.FindStringSubmatch(text); m != nil {
		seconds := DefaultCampSeconds
		if m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				seconds = n
			}
		}
		return Control{Kind: CampPrepare, Delay: time.Duration(seconds) * time.Second}
	}

	return Control{Kind: None}
}
