// Package tailer follows a single file with github.com/nxadm/tail.
package tailer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nxadm/tail"
)

// Config controls how the file is followed.
type Config struct {
	// FromStart reads existing content before following.
	FromStart bool
	// Poll uses stat polling instead of inotify/kqueue.
	Poll bool
	// ReOpen reopens the file after it is removed or rotated.
	ReOpen bool
	// MustExist fails New if the file does not exist yet.
	MustExist bool
}

// DefaultConfig follows from the end of an existing file and survives rotation.
func DefaultConfig() Config {
	return Config{ReOpen: true, MustExist: true}
}

// Tailer forwards complete lines of one file until stopped.
type Tailer struct {
	t      *tail.Tail
	lines  chan string
	errs   chan error
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts following path. Lines have their trailing "\r" removed.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	whence := io.SeekEnd
	if cfg.FromStart {
		whence = io.SeekStart
	}
	t, err := tail.TailFile(path, tail.Config{
		Location:      &tail.SeekInfo{Offset: 0, Whence: whence},
		ReOpen:        cfg.ReOpen,
		MustExist:     cfg.MustExist,
		Poll:          cfg.Poll,
		Follow:        true,
		CompleteLines: true,
		Logger:        tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	tr := &Tailer{
		t:      t,
		lines:  make(chan string),
		errs:   make(chan error, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go tr.run(ctx)
	return tr, nil
}

// Lines returns the line channel; it closes when the tailer stops.
func (tr *Tailer) Lines() <-chan string { return tr.lines }

// Errors returns read errors; it closes when the tailer stops.
func (tr *Tailer) Errors() <-chan error { return tr.errs }

// Stop stops following and waits for the goroutine to exit.
func (tr *Tailer) Stop() error {
	tr.cancel()
	<-tr.done
	return nil
}

func (tr *Tailer) run(ctx context.Context) {
	defer close(tr.done)
	defer close(tr.lines)
	defer close(tr.errs)
	defer tr.t.Cleanup()
	defer tr.t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-tr.t.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				tr.sendError(ctx, line.Err)
				continue
			}
			select {
			case tr.lines <- strings.TrimSuffix(line.Text, "\r"):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (tr *Tailer) sendError(ctx context.Context, err error) {
	select {
	case tr.errs <- err:
	case <-ctx.Done():
	default:
	}
}
