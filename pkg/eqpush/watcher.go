package eqpush

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eqpush/eqpush-go/internal/logfinder"
	"github.com/eqpush/eqpush-go/internal/parser"
	"github.com/eqpush/eqpush-go/internal/safefile"
	"github.com/eqpush/eqpush-go/pkg/eqpush/event"
)

// watcherErrBuffer is the buffer size for the error channel.
const watcherErrBuffer = 16

// Watcher follows the most recently written EverQuest log file and
// emits each new complete line once, in file order.
type Watcher struct {
	cfg    watchConfig // immutable after creation
	logDir string
	log    *slog.Logger

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc
	doneCh   chan struct{}
	watching bool
}

// cursor is the read position in the tracked file. Only the run
// goroutine touches it.
type cursor struct {
	path      string
	offset    int64
	character string
	info      os.FileInfo // identity of the file at path when tracking began
}

// discardLogger returns a logger that discards all output.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// WatchWithOptions creates a watcher using functional options and starts watching.
// The watcher stops when ctx is cancelled.
func WatchWithOptions(ctx context.Context, opts ...WatchOption) (<-chan event.LogLine, <-chan error, error) {
	w, err := NewWatcherWithOptions(opts...)
	if err != nil {
		return nil, nil, err
	}
	return w.Watch(ctx)
}

// NewWatcherWithOptions creates a watcher using functional options.
// Validates options and locates the log directory.
// Does NOT start goroutines.
func NewWatcherWithOptions(opts ...WatchOption) (*Watcher, error) {
	cfg := applyWatchOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logDir, err := logfinder.FindLogDir(cfg.logDir)
	if err != nil {
		return nil, fmt.Errorf("finding log directory: %w", err)
	}

	log := cfg.logger
	if log == nil {
		log = discardLogger
	}

	return &Watcher{
		cfg:    *cfg,
		logDir: logDir,
		log:    log,
	}, nil
}

// LogDir returns the resolved log directory.
func (w *Watcher) LogDir() string {
	return w.logDir
}

// Watch starts watching and returns channels.
// Both channels close on ctx.Done(), Close, or when no log file can be
// found. Watch can only be called once per Watcher.
//
// Returns ErrWatcherClosed if the watcher has been closed.
// Returns ErrAlreadyWatching if Watch() has already been called.
func (w *Watcher) Watch(ctx context.Context) (<-chan event.LogLine, <-chan error, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, nil, ErrWatcherClosed
	}
	if w.watching {
		return nil, nil, ErrAlreadyWatching
	}
	w.watching = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	lineCh := make(chan event.LogLine)
	errCh := make(chan error, watcherErrBuffer)

	go w.run(ctx, lineCh, errCh)

	return lineCh, errCh, nil
}

// Close stops the watcher and releases resources.
// Safe to call multiple times. Blocks until the goroutine has exited.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, lineCh chan<- event.LogLine, errCh chan<- error) {
	defer close(w.doneCh)
	defer close(lineCh)
	defer close(errCh)

	first, err := w.findLogFileWithWait(ctx, errCh)
	if err != nil {
		return
	}

	var (
		fsEvents <-chan fsnotify.Event
		fsErrors <-chan error
	)
	if w.cfg.fileEvents {
		fw, err := w.newFileWatcher()
		if err != nil {
			w.log.Warn("file events unavailable, polling only", "err", err)
		} else {
			defer fw.Close()
			fsEvents, fsErrors = fw.Events, fw.Errors
		}
	}

	ticker := time.NewTicker(w.cfg.pollInterval)
	defer ticker.Stop()

	var cur cursor
	w.handleChange(ctx, &cur, first, lineCh, errCh)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 && logfinder.IsLogFile(ev.Name) {
				w.handleChange(ctx, &cur, ev.Name, lineCh, errCh)
			}
		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			sendError(ctx, errCh, &WatchError{Op: WatchOpNotify, Path: w.logDir, Err: err})
		case <-ticker.C:
			latest, err := logfinder.FindLatestLogFile(w.logDir)
			if err != nil {
				sendError(ctx, errCh, &WatchError{Op: WatchOpPoll, Err: err})
				continue
			}
			w.handleChange(ctx, &cur, latest, lineCh, errCh)
		}
	}
}

func (w *Watcher) newFileWatcher() (*fsnotify.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(w.logDir); err != nil {
		fw.Close()
		return nil, err
	}
	return fw, nil
}

// findLogFileWithWait finds the latest log file, optionally waiting if none exist yet.
// Errors are also sent to errCh.
func (w *Watcher) findLogFileWithWait(ctx context.Context, errCh chan<- error) (string, error) {
	logFile, err := logfinder.FindLatestLogFile(w.logDir)
	if err == nil {
		return logFile, nil
	}
	if !errors.Is(err, ErrNoLogFiles) || !w.cfg.waitForLogs {
		sendError(ctx, errCh, &WatchError{Op: WatchOpFindLatest, Err: err})
		return "", err
	}

	w.log.Debug("no log files found, waiting for logs to appear", "poll_interval", w.cfg.pollInterval)
	ticker := time.NewTicker(w.cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			logFile, err := logfinder.FindLatestLogFile(w.logDir)
			if err == nil {
				w.log.Debug("log file appeared", "path", logFile)
				return logFile, nil
			}
			if !errors.Is(err, ErrNoLogFiles) {
				sendError(ctx, errCh, &WatchError{Op: WatchOpFindLatest, Err: err})
				return "", err
			}
		}
	}
}

// handleChange switches to path if it is not the tracked file, then reads
// whatever complete lines were appended since the cursor.
func (w *Watcher) handleChange(ctx context.Context, cur *cursor, path string, lineCh chan<- event.LogLine, errCh chan<- error) {
	if path != cur.path {
		info, err := safefile.Stat(path)
		if err != nil {
			sendError(ctx, errCh, &FileReadError{Path: path, Err: err})
			return
		}
		character, err := logfinder.CharacterName(path)
		if err != nil {
			sendError(ctx, errCh, &ParseError{Path: path, Err: err})
		}
		w.log.Debug("tracking log file", "path", path, "character", character, "offset", info.Size())
		*cur = cursor{path: path, offset: info.Size(), character: character, info: info}
	}

	lines, next, err := readLines(cur.path, cur.offset, cur.info, w.cfg.maxLineBytes)
	if err != nil {
		sendError(ctx, errCh, &FileReadError{Path: cur.path, Offset: cur.offset, Err: err})
		// Resync to the end of whatever file the path names now.
		if info, err := safefile.Stat(cur.path); err == nil {
			cur.offset = info.Size()
			cur.info = info
		}
		return
	}
	cur.offset = next

	for _, raw := range lines {
		// No line goes out once stopped, even if the consumer is ready.
		if ctx.Err() != nil {
			return
		}
		text, loggedAt := parser.StripTimestamp(raw)
		ln := event.LogLine{
			ArrivalTime: w.cfg.now(),
			Character:   cur.character,
			Text:        text,
			File:        cur.path,
			LoggedAt:    loggedAt,
		}
		select {
		case lineCh <- ln:
		case <-ctx.Done():
			return
		}
	}
}

// readLines returns the complete lines between offset and the end of the
// file as it was when opened, and the offset just past the last newline.
// A trailing partial line is left unconsumed unless it is longer than
// maxLineBytes, which is an error. A non-nil want must be the same file
// as the one path names now.
func readLines(path string, offset int64, want os.FileInfo, maxLineBytes int) ([]string, int64, error) {
	f, size, err := safefile.OpenAt(path, offset, want)
	if err != nil {
		return nil, offset, err
	}
	defer f.Close()

	if size == offset {
		return nil, offset, nil
	}

	r := bufio.NewReader(io.LimitReader(f, size-offset))
	next := offset
	var lines []string
	for {
		s, err := r.ReadString('\n')
		if err == io.EOF {
			if len(s) > maxLineBytes {
				return nil, offset, fmt.Errorf("%w: %d bytes pending", ErrLineTooLong, len(s))
			}
			return lines, next, nil
		}
		if err != nil {
			return nil, offset, err
		}
		next += int64(len(s))

		line := strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
}

// sendError sends an error to the error channel.
// With a buffered channel, errors are only dropped if the buffer is full.
func sendError(ctx context.Context, errCh chan<- error, err error) {
	if err == nil || ctx.Err() != nil {
		return
	}
	select {
	case errCh <- err:
	case <-ctx.Done():
	default:
	}
}
