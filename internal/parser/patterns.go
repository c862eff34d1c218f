package parser

import "regexp"

// Timestamp format in EverQuest logs: "[Wed Mar 06 19:40:12 2019]"
const timestampLayout = "Mon Jan _2 15:04:05 2006"

// DefaultCampSeconds is the in-game camp delay used when the notice carries no number.
const DefaultCampSeconds = 5

// Fixed patterns for lines that drive session state.
var (
	// Matches: "[Wed Mar 06 19:40:12 2019] " followed by the message.
	// Captures: (1) timestamp
	timestampPattern = regexp.MustCompile(
		`\[(\w{3} \w{3} [ \d]\d \d{2}:\d{2}:\d{2} \d{4})\] ?`,
	)

	afkOnPattern = regexp.MustCompile(
		`^You are now A\.F\.K\. \(Away From Keyboard\)\.$`,
	)

	afkOffPattern = regexp.MustCompile(
		`^You are no longer A\.F\.K\. \(Away From Keyboard\)\.$`,
	)

	// Matches: "It will take about 5 more seconds to prepare your camp."
	// Captures: (1) seconds
	campPreparePattern = regexp.MustCompile(
		`^It will take (?:about )?(\d+)? ?(?:more )?seconds to prepare your camp`,
	)
)

// Fixed prefixes for camp and login notices.
const (
	welcomePrefix     = "Welcome to EverQuest"
	campAbandonPrefix = "You abandon your preparations to camp"
)
