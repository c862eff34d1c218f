package eqpush

import (
	"errors"
	"fmt"

	"github.com/eqpush/eqpush-go/internal/logfinder"
)

// Sentinel errors.
var (
	// ErrWatcherClosed is returned by Watch after Close.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrAlreadyWatching is returned when Watch is called twice.
	ErrAlreadyWatching = errors.New("already watching")

	// ErrNoLogFiles means the log directory has no eqlog*.txt files.
	ErrNoLogFiles = logfinder.ErrNoLogFiles

	// ErrLogDirNotFound means no log directory could be located.
	ErrLogDirNotFound = logfinder.ErrLogDirNotFound

	// ErrEngineRunning is returned when Run is called twice.
	ErrEngineRunning = errors.New("engine already running")

	// ErrEngineStopped is returned by ExpireTimer once Run has returned.
	ErrEngineStopped = errors.New("engine stopped")
)

// WatchOp identifies the watcher operation that failed.
type WatchOp string

const (
	WatchOpFindLatest WatchOp = "find_latest"
	WatchOpNotify     WatchOp = "fsnotify"
	WatchOpPoll       WatchOp = "poll"
)

// WatchError is a file discovery or change-notification failure.
type WatchError struct {
	Op   WatchOp
	Path string // may be empty
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("watch %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("watch %s: %v", e.Op, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

// ParseError reports a log file name the character could not be read from.
// Watching continues with an empty character name.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse character name from %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FileReadError reports a failed read of the active log file. When it is
// delivered the lines of the failed batch were dropped and the cursor
// was moved to end of file.
type FileReadError struct {
	Path   string
	Offset int64 // cursor before the failed read
	Err    error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// ConfigurationError reports a notification that could not be sent
// because the configuration is incomplete.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// TransportError wraps a failed or timed-out notifier call.
type TransportError struct {
	Event string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("deliver notification %q: %v", e.Event, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrLineTooLong is wrapped in a FileReadError when a partial line grows
// past the configured maximum without a newline.
var ErrLineTooLong = errors.New("line exceeds maximum length")
