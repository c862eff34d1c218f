package eqpush

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eqpush/eqpush-go/pkg/eqpush/config"
	"github.com/eqpush/eqpush-go/pkg/eqpush/event"
	"github.com/eqpush/eqpush-go/pkg/eqpush/trigger"
)

// timerQueueSize is the buffer for ExpireTimer.
const timerQueueSize = 64

// LineSource produces log lines. *Watcher implements it.
type LineSource interface {
	Watch(ctx context.Context) (<-chan event.LogLine, <-chan error, error)
}

// Report describes what the engine did with one line or timer.
// Lines that are neither session control lines nor trigger matches are
// not reported.
type Report struct {
	Time     time.Time          `json:"time"`
	Line     *event.LogLine     `json:"line,omitempty"`
	Timer    *event.TimerExpiry `json:"timer,omitempty"`
	Control  string             `json:"control,omitempty"`
	Consumed bool               `json:"consumed,omitempty"`
	Match    *trigger.Match     `json:"match,omitempty"`
	Sent     bool               `json:"sent"`
	Reason   Reason             `json:"reason,omitempty"`
	Error    string             `json:"error,omitempty"`

	// Result is the full dispatch outcome; zero for control lines.
	Result Result `json:"-"`
}

// Engine is the single consumer that feeds lines and timer expiries
// through the session, the trigger table and the dispatcher in order.
type Engine struct {
	source     LineSource
	cfg        config.Source
	dispatcher *Dispatcher
	table      *trigger.Table
	session    *Session
	log        *slog.Logger
	report     func(Report)
	now        func() time.Time

	timers chan event.TimerExpiry
	done   chan struct{}

	mu      sync.Mutex
	running bool

	file string // file of the last line, owned by Run
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	logger     *slog.Logger
	report     func(Report)
	idle       IdleFunc
	now        func() time.Time
	table      *trigger.Table
	dispatcher []DispatcherOption
}

// WithEngineLogger sets the logger for the engine and the components it creates.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) { c.logger = logger }
}

// WithReport registers fn to observe every decision. fn runs on the
// engine goroutine and should return quickly.
func WithReport(fn func(Report)) EngineOption {
	return func(c *engineConfig) { c.report = fn }
}

// WithIdleProbe sets the idle probe used by the session.
func WithIdleProbe(fn IdleFunc) EngineOption {
	return func(c *engineConfig) { c.idle = fn }
}

// WithEngineClock sets the clock for camp deadlines and reports.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(c *engineConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTriggerTable shares an existing trigger table.
func WithTriggerTable(t *trigger.Table) EngineOption {
	return func(c *engineConfig) { c.table = t }
}

// WithDispatcherOptions passes options to the engine's Dispatcher.
func WithDispatcherOptions(opts ...DispatcherOption) EngineOption {
	return func(c *engineConfig) { c.dispatcher = append(c.dispatcher, opts...) }
}

// NewEngine wires source, configuration and notifier together.
// Does NOT start goroutines.
func NewEngine(source LineSource, cfg config.Source, notifier Notifier, opts ...EngineOption) *Engine {
	c := &engineConfig{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	log := c.logger
	if log == nil {
		log = discardLogger
	}
	table := c.table
	if table == nil {
		table = trigger.NewTable(trigger.WithLogger(log))
	}
	dopts := append([]DispatcherOption{WithDispatcherLogger(log)}, c.dispatcher...)

	return &Engine{
		source:     source,
		cfg:        cfg,
		dispatcher: NewDispatcher(notifier, dopts...),
		table:      table,
		session:    NewSession("", WithIdleFunc(c.idle), WithSessionClock(c.now)),
		log:        log,
		report:     c.report,
		now:        c.now,
		timers:     make(chan event.TimerExpiry, timerQueueSize),
		done:       make(chan struct{}),
	}
}

// Run processes lines, watcher errors and timer expiries until ctx is
// cancelled or the source stops. Watcher errors are logged and never
// stop the loop. A source that ends on its own returns its last error.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrEngineRunning
	}
	e.running = true
	e.mu.Unlock()
	defer close(e.done)

	lines, errs, err := e.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	var lastErr error
	for lines != nil || errs != nil {
		select {
		case <-ctx.Done():
			return nil
		case ln, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			e.handleLine(ctx, ln)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			lastErr = err
			e.log.Warn("watcher error", "err", err)
		case ev := <-e.timers:
			e.handleTimer(ctx, ev)
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("watcher stopped: %w", lastErr)
	}
	return nil
}

// ExpireTimer queues a timer expiry for the engine goroutine.
// It returns ErrEngineStopped once Run has returned.
func (e *Engine) ExpireTimer(ctx context.Context, ev event.TimerExpiry) error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}
	select {
	case e.timers <- ev:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Table returns the engine's trigger table.
func (e *Engine) Table() *trigger.Table { return e.table }

func (e *Engine) handleLine(ctx context.Context, ln event.LogLine) {
	if ln.File != e.file {
		e.file = ln.File
		e.session.Reset(ln.Character)
		e.log.Info("log file switched", "path", ln.File, "character", ln.Character)
	}

	if e.session.Update(ln) {
		control := "afk_off"
		if e.session.IsAFK() {
			control = "afk_on"
		}
		e.log.Info("afk state changed", "control", control, "character", e.session.Character())
		e.emit(Report{Line: &ln, Control: control, Consumed: true})
		return
	}

	snap := e.cfg.Current()
	if snap == nil {
		return
	}
	m, ok := e.table.Match(snap.Push.Triggers, ln.Text)
	if !ok {
		return
	}

	res := e.dispatcher.DispatchMatch(ctx, snap, e.session, ln, m)
	e.log.Debug("trigger matched", "rule", m.Rule, "sent", res.Sent, "reason", res.Reason)
	e.emit(newReport(res, Report{Line: &ln, Match: &m}))
}

func (e *Engine) handleTimer(ctx context.Context, ev event.TimerExpiry) {
	snap := e.cfg.Current()
	if snap == nil {
		return
	}
	res := e.dispatcher.DispatchTimer(ctx, snap, e.session, ev)
	e.log.Debug("timer expired", "spell", ev.SpellName, "target", ev.Target, "sent", res.Sent, "reason", res.Reason)
	e.emit(newReport(res, Report{Timer: &ev}))
}

func newReport(res Result, r Report) Report {
	r.Result = res
	r.Sent = res.Sent
	r.Reason = res.Reason
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r
}

func (e *Engine) emit(r Report) {
	if e.report == nil {
		return
	}
	r.Time = e.now()
	e.report(r)
}
