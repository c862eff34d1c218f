package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Source supplies the configuration snapshot that is current right now.
type Source interface {
	Current() *Snapshot
}

type staticSource struct{ s *Snapshot }

func (s staticSource) Current() *Snapshot { return s.s }

// Static returns a Source that always yields s.
func Static(s *Snapshot) Source {
	return staticSource{s: s}
}

// DefaultDebounce is the quiet period after a file event before reloading.
const DefaultDebounce = 250 * time.Millisecond

const (
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Manager holds the live Snapshot for a config file and swaps it when the
// file changes. A reload that fails to parse or validate keeps the previous
// snapshot.
type Manager struct {
	path     string
	log      *slog.Logger
	debounce time.Duration
	onChange func(*Snapshot)

	current atomic.Pointer[Snapshot]
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for reload events.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.log = logger
		}
	}
}

// WithDebounce sets the quiet period between a file event and the reload.
func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithOnChange registers fn to run after a new snapshot is committed.
func WithOnChange(fn func(*Snapshot)) ManagerOption {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// NewManager returns a Manager for the file at path. Call Load before Current.
func NewManager(path string, opts ...ManagerOption) *Manager {
	m := &Manager{
		path:     path,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Load reads the file and commits the result. Unlike Reload, a failure
// here is returned so startup can abort.
func (m *Manager) Load() (*Snapshot, error) {
	s, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.current.Store(s)
	return s, nil
}

// Current returns the committed snapshot, or nil before Load.
func (m *Manager) Current() *Snapshot {
	return m.current.Load()
}

// Reload re-reads the file. It reports whether a new snapshot was committed;
// identical content is not republished.
func (m *Manager) Reload() (bool, error) {
	s, err := Load(m.path)
	if err != nil {
		return false, err
	}
	if old := m.current.Load(); old != nil && old.Version() == s.Version() {
		return false, nil
	}
	m.current.Store(s)
	if m.onChange != nil {
		m.onChange(s)
	}
	return true, nil
}

func (m *Manager) reload() {
	changed, err := m.Reload()
	switch {
	case err != nil:
		m.log.Warn("config reload rejected; keeping previous", "err", err)
	case changed:
		m.log.Info("config reloaded", "version", fmt.Sprintf("%016x", m.Current().Version()))
	default:
		m.log.Debug("config unchanged; skipping publish")
	}
}

// Watch reloads the file whenever it changes, until ctx is cancelled.
// The parent directory is watched so editors that replace the file by
// rename are handled. A broken watcher is recreated with backoff.
func (m *Manager) Watch(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)
	backoff := restartBackoffBase

	wait := func() bool {
		d := backoff + time.Duration(rand.Int63n(int64(backoff/2+1)))
		backoff = min(backoff*2, restartBackoffMax)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	for ctx.Err() == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			m.log.Warn("config watch init failed", "err", err)
			if !wait() {
				break
			}
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			m.log.Warn("config watch add failed", "err", err)
			if !wait() {
				break
			}
			continue
		}
		backoff = restartBackoffBase
		m.log.Debug("config watcher started", "file", file)

		err = m.watchLoop(ctx, w, file)
		w.Close()
		if err == nil {
			break
		}
		m.log.Warn("config watcher stopped; restarting", "err", err)
		if !wait() {
			break
		}
	}
	return nil
}

// watchLoop returns nil when ctx is done and an error when the watcher breaks.
func (m *Manager) watchLoop(ctx context.Context, w *fsnotify.Watcher, file string) error {
	timer := time.NewTimer(m.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("event channel closed")
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
				timer.Reset(m.debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				m.log.Warn("config watch overflow; forcing reload")
				timer.Reset(m.debounce)
				continue
			}
			m.log.Warn("config watch error", "err", err)
		case <-timer.C:
			m.reload()
		}
	}
}
