// Package safefile opens log files for tailing without following links
// or blocking on special files.
package safefile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotRegularFile is returned for symlinks, FIFOs, devices, sockets and directories.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrTruncated is returned by OpenAt when the file is shorter than the requested offset.
	ErrTruncated = errors.New("file truncated below read offset")

	// ErrReplaced is returned by OpenAt when path no longer names the expected file.
	ErrReplaced = errors.New("file replaced")
)

// OpenRegular opens path after checking with Lstat that it is a regular file,
// then re-checks the opened descriptor. The caller must close the file.
func OpenRegular(path string) (*os.File, os.FileInfo, error) {
	linkInfo, err := os.Lstat(path)
	if err != nil {
		return nil, nil, err
	}
	if !linkInfo.Mode().IsRegular() {
		return nil, nil, ErrNotRegularFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	// The path may have been swapped between Lstat and Open.
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotRegularFile
	}

	return f, info, nil
}

// Stat returns the FileInfo of the regular file at path, taken from an
// opened descriptor. Keep it to pass as want to OpenAt.
func Stat(path string) (os.FileInfo, error) {
	f, info, err := OpenRegular(path)
	if err != nil {
		return nil, err
	}
	f.Close()
	return info, nil
}

// OpenAt opens the regular file at path positioned at offset and returns the
// file together with its size at open time.
//
// If want is non-nil and the opened file is not the same file (os.SameFile),
// ErrReplaced is returned; that is how rotation by rename shows up.
// ErrTruncated is returned when the file has shrunk below offset, which is
// how rotation by truncation shows up.
func OpenAt(path string, offset int64, want os.FileInfo) (*os.File, int64, error) {
	f, info, err := OpenRegular(path)
	if err != nil {
		return nil, 0, err
	}
	if want != nil && !os.SameFile(want, info) {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrReplaced, path)
	}
	size := info.Size()
	if size < offset {
		f.Close()
		return nil, 0, fmt.Errorf("%w: size %d, offset %d", ErrTruncated, size, offset)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, size, nil
}
