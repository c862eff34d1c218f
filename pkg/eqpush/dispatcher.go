package eqpush

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/eqpush/eqpush-go/pkg/eqpush/config"
	"github.com/eqpush/eqpush-go/pkg/eqpush/event"
	"github.com/eqpush/eqpush-go/pkg/eqpush/trigger"
)

// DefaultNotifyTimeout bounds a single notifier call.
const DefaultNotifyTimeout = 10 * time.Second

// SelfAlias always refers to the player.
const SelfAlias = "you"

// Notification is the content handed to a Notifier.
type Notification struct {
	Event       string `json:"event"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	AppName     string `json:"app_name"`
	APIKey      string `json:"-"`
}

// Notifier delivers a push notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f(ctx, n).
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Reason says why a notification was or was not sent.
type Reason string

const (
	ReasonSent         Reason = "sent"
	ReasonDisabled     Reason = "disabled"
	ReasonNotAway      Reason = "not_away"
	ReasonCamping      Reason = "camping"
	ReasonSelf         Reason = "self"
	ReasonNoCredential Reason = "no_credential"
	ReasonTransport    Reason = "transport"
)

// Result is the outcome of one dispatch.
type Result struct {
	Sent         bool
	Reason       Reason
	Notification Notification // zero when suppressed before content was built
	Err          error        // *ConfigurationError or *TransportError
}

// Dispatcher applies the notification policy and calls the Notifier at
// most once per event. Delivery failures are logged and returned in the
// Result, never retried.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNotifyTimeout bounds each notifier call. Default: 10 seconds.
func WithNotifyTimeout(d time.Duration) DispatcherOption {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.timeout = d
		}
	}
}

// WithDispatcherLogger sets the logger for delivery outcomes.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(ds *Dispatcher) {
		if logger != nil {
			ds.log = logger
		}
	}
}

// NewDispatcher returns a Dispatcher that sends through notifier.
func NewDispatcher(notifier Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		timeout:  DefaultNotifyTimeout,
		log:      discardLogger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DispatchMatch decides whether a trigger match is pushed.
func (d *Dispatcher) DispatchMatch(ctx context.Context, snap *config.Snapshot, s *Session, line event.LogLine, m trigger.Match) Result {
	p := &snap.Push
	if !p.Enabled {
		return Result{Reason: ReasonDisabled}
	}
	if r := eligibility(p, s, p.AFKOnly); r != "" {
		return Result{Reason: r}
	}
	if src, ok := m.Source(); ok && isSelf(p, s, src) {
		d.log.Debug("skipping self-triggered notification", "rule", m.Rule, "source", src)
		return Result{Reason: ReasonSelf}
	}

	return d.deliver(ctx, Notification{
		Event:       m.Rule,
		Description: line.Text,
		AppName:     p.AppName,
		APIKey:      p.ProwlAPIKey,
	})
}

// DispatchTimer decides whether a timer expiry is pushed.
func (d *Dispatcher) DispatchTimer(ctx context.Context, snap *config.Snapshot, s *Session, ev event.TimerExpiry) Result {
	p := &snap.Push
	if !p.Enabled || !p.TimerExpiry {
		return Result{Reason: ReasonDisabled}
	}
	if r := eligibility(p, s, p.TimerExpiryAFKOnly); r != "" {
		return Result{Reason: r}
	}

	title, description := TimerContent(ev)
	return d.deliver(ctx, Notification{
		Event:       title,
		Description: description,
		AppName:     p.AppName,
		APIKey:      p.ProwlAPIKey,
	})
}

// TimerContent builds the event title and description for a timer expiry.
func TimerContent(ev event.TimerExpiry) (title, description string) {
	spell := cases.Title(language.English).String(ev.SpellName)

	title = spell
	if ev.Target != event.TargetYou && ev.Target != event.TargetCustom {
		title = spell + " | " + ev.Target
	}

	switch {
	case ev.SpellID == 0:
		description = fmt.Sprintf("Your %s timer has expired.", spell)
	case ev.Target == event.TargetYou:
		description = fmt.Sprintf("%s has faded on you.", spell)
	default:
		description = fmt.Sprintf("%s has faded on %s.", spell, ev.Target)
	}
	return title, description
}

// eligibility returns the suppression reason, or "" if the session may
// receive a notification.
func eligibility(p *config.Push, s *Session, afkOnly bool) Reason {
	camping := s.IsCampedOut()
	if p.CampPolicy == config.CampSuppress && camping {
		return ReasonCamping
	}
	if !afkOnly {
		return ""
	}
	if s.IsAFKOrIdle(p.IdleTimeToAFK) {
		return ""
	}
	if p.CampPolicy == config.CampAway && camping {
		return ""
	}
	return ReasonNotAway
}

// isSelf reports whether source names the player: a configured alias,
// the implicit "you", or the character the log belongs to.
func isSelf(p *config.Push, s *Session, source string) bool {
	src := strings.ToLower(strings.TrimSpace(source))
	if src == "" {
		return false
	}
	if src == SelfAlias {
		return true
	}
	if c := s.Character(); c != "" && src == strings.ToLower(c) {
		return true
	}
	for _, alias := range p.Aliases() {
		if src == alias {
			return true
		}
	}
	return false
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) Result {
	if n.APIKey == "" {
		err := &ConfigurationError{Field: "push.prowl_api_key", Message: "no API key configured"}
		d.log.Error("cannot send notification", "event", n.Event, "err", err)
		return Result{Reason: ReasonNoCredential, Notification: n, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// The pipeline must not stall on a notifier that ignores ctx.
	errc := make(chan error, 1)
	go func() { errc <- d.notifier.Notify(ctx, n) }()
	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		terr := &TransportError{Event: n.Event, Err: err}
		d.log.Warn("notification dropped", "event", n.Event, "err", terr)
		return Result{Reason: ReasonTransport, Notification: n, Err: terr}
	}

	d.log.Info("notification sent", "event", n.Event)
	return Result{Sent: true, Reason: ReasonSent, Notification: n}
}
