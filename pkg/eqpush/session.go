package eqpush

import (
	"time"

	"github.com/eqpush/eqpush-go/internal/parser"
	"github.com/eqpush/eqpush-go/pkg/eqpush/event"
)

// IdleFunc reports how many seconds the user has been idle.
type IdleFunc func() float64

// Session tracks whether the player is AFK, camping out, or idle.
// A Session is owned by one goroutine and is not safe for concurrent use.
type Session struct {
	character    string
	afk          bool
	campDeadline time.Time // zero when no camp is pending

	idle IdleFunc
	now  func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithIdleFunc sets the idle probe. Without one the user never counts as idle.
func WithIdleFunc(fn IdleFunc) SessionOption {
	return func(s *Session) {
		if fn != nil {
			s.idle = fn
		}
	}
}

// WithSessionClock sets the clock used to decide whether a camp deadline has passed.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession returns a session for character in the not-AFK, not-camping state.
func NewSession(character string, opts ...SessionOption) *Session {
	s := &Session{
		character: character,
		idle:      func() float64 { return 0 },
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Update applies a line to the session. It returns true when the line was
// an AFK toggle, which must not be matched against triggers.
func (s *Session) Update(line event.LogLine) bool {
	c := parser.Classify(line.Text)
	switch c.Kind {
	case parser.AFKOn:
		s.afk = true
		return true
	case parser.AFKOff:
		s.afk = false
		return true
	case parser.Welcome, parser.CampAbandon:
		s.campDeadline = time.Time{}
	case parser.CampPrepare:
		s.campDeadline = line.ArrivalTime.Add(c.Delay)
	}
	return false
}

// Reset returns the session to its initial state for a new character.
func (s *Session) Reset(character string) {
	s.character = character
	s.afk = false
	s.campDeadline = time.Time{}
}

// Character returns the character the session belongs to.
func (s *Session) Character() string { return s.character }

// IsAFK reports whether the game says the player is AFK.
func (s *Session) IsAFK() bool { return s.afk }

// IsCampedOut reports whether a camp countdown is running.
func (s *Session) IsCampedOut() bool {
	return !s.campDeadline.IsZero() && s.campDeadline.After(s.now())
}

// CampDeadline returns when the running camp countdown ends, or the zero time.
func (s *Session) CampDeadline() time.Time { return s.campDeadline }

// IsIdle reports whether the idle probe exceeds threshold seconds.
// The probe is not called when threshold is zero or negative.
func (s *Session) IsIdle(threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	return s.idle() > threshold
}

// IsAFKOrIdle reports IsAFK() || IsIdle(threshold).
func (s *Session) IsAFKOrIdle(threshold float64) bool {
	return s.afk || s.IsIdle(threshold)
}
