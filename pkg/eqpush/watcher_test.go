package eqpush_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqpush/eqpush-go/internal/safefile"
	"github.com/eqpush/eqpush-go/pkg/eqpush"
	"github.com/eqpush/eqpush-go/pkg/eqpush/event"
)

const testTimeout = 5 * time.Second

// logFile is an append-only handle on a test log.
type logFile struct {
	t    *testing.T
	path string
	f    *os.File
}

func createLog(t *testing.T, dir, name string) *logFile {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return &logFile{t: t, path: path, f: f}
}

func (l *logFile) write(s string) {
	l.t.Helper()
	_, err := l.f.WriteString(s)
	require.NoError(l.t, err)
	require.NoError(l.t, l.f.Sync())
}

func startWatcher(t *testing.T, dir string, opts ...eqpush.WatchOption) (*eqpush.Watcher, <-chan event.LogLine, <-chan error) {
	t.Helper()
	opts = append([]eqpush.WatchOption{
		eqpush.WithLogDir(dir),
		eqpush.WithPollInterval(50 * time.Millisecond),
	}, opts...)
	w, err := eqpush.NewWatcherWithOptions(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	lines, errs, err := w.Watch(ctx)
	require.NoError(t, err)
	return w, lines, errs
}

// waitTracking writes probe lines to l until the watcher emits one, then
// skips everything up to a closing marker. After it returns the watcher
// is tracking l and positioned after the marker.
func waitTracking(t *testing.T, l *logFile, lines <-chan event.LogLine) {
	t.Helper()
	deadline := time.After(testTimeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	l.write("probe\n")
	for seen := false; !seen; {
		select {
		case ln := <-lines:
			seen = ln.Text == "probe" && filepath.Base(ln.File) == filepath.Base(l.path)
		case <-tick.C:
			l.write("probe\n")
		case <-deadline:
			t.Fatalf("watcher never picked up %s", l.path)
		}
	}

	l.write("probe-done\n")
	for {
		select {
		case ln := <-lines:
			if ln.Text == "probe-done" {
				return
			}
		case <-deadline:
			t.Fatal("timeout draining probe lines")
		}
	}
}

func recvLine(t *testing.T, lines <-chan event.LogLine, errs <-chan error) event.LogLine {
	t.Helper()
	select {
	case ln, ok := <-lines:
		require.True(t, ok, "line channel closed")
		return ln
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for line")
	}
	return event.LogLine{}
}

func recvError(t *testing.T, errs <-chan error) error {
	t.Helper()
	select {
	case err, ok := <-errs:
		require.True(t, ok, "error channel closed")
		return err
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for error")
	}
	return nil
}

func assertNoLine(t *testing.T, lines <-chan event.LogLine, d time.Duration) {
	t.Helper()
	select {
	case ln := <-lines:
		t.Fatalf("unexpected line %q", ln.Text)
	case <-time.After(d):
	}
}

func TestWatcher_InOrderExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	l.write("[Wed Mar 06 19:40:00 2019] old line, never delivered\n")

	_, lines, errs := startWatcher(t, dir)
	waitTracking(t, l, lines)

	l.write("[Wed Mar 06 19:40:12 2019] first\r\n[Wed Mar 06 19:40:13 2019] second\n")
	l.write("third\n")

	want := []string{"first", "second", "third"}
	for _, text := range want {
		ln := recvLine(t, lines, errs)
		assert.Equal(t, text, ln.Text)
		assert.Equal(t, "Grimjaw", ln.Character)
		assert.False(t, ln.ArrivalTime.IsZero())
	}
	assertNoLine(t, lines, 200*time.Millisecond)
}

func TestWatcher_StripsTimestamp(t *testing.T) {
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	_, lines, errs := startWatcher(t, dir)
	waitTracking(t, l, lines)

	l.write("[Wed Mar 06 19:40:12 2019] You died.\n")
	ln := recvLine(t, lines, errs)
	assert.Equal(t, "You died.", ln.Text)
	assert.Equal(t, 2019, ln.LoggedAt.Year())
	assert.Equal(t, time.March, ln.LoggedAt.Month())
}

func TestWatcher_PartialLineHeldBack(t *testing.T) {
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	_, lines, errs := startWatcher(t, dir)
	waitTracking(t, l, lines)

	l.write("Fippy says, 'hal")
	assertNoLine(t, lines, 300*time.Millisecond)

	l.write("lo'\n")
	assert.Equal(t, "Fippy says, 'hallo'", recvLine(t, lines, errs).Text)
}

func TestWatcher_TruncationResyncsWithoutRedelivery(t *testing.T) {
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	_, lines, errs := startWatcher(t, dir)
	waitTracking(t, l, lines)

	l.write("before truncation\n")
	assert.Equal(t, "before truncation", recvLine(t, lines, errs).Text)

	require.NoError(t, os.Truncate(l.path, 0))

	err := recvError(t, errs)
	var readErr *eqpush.FileReadError
	require.True(t, errors.As(err, &readErr), "got %T: %v", err, err)
	assert.True(t, errors.Is(err, safefile.ErrTruncated))

	l.write("after truncation\n")
	ln := recvLine(t, lines, errs)
	assert.Equal(t, "after truncation", ln.Text)
	assertNoLine(t, lines, 200*time.Millisecond)
}

func TestWatcher_ReplacedByRenameResyncs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("cannot rename over a file that is open for writing")
	}
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	_, lines, errs := startWatcher(t, dir)
	waitTracking(t, l, lines)

	// The replacement is longer than the cursor, so a size check alone
	// would resume mid-line inside the new file.
	tmp := filepath.Join(dir, "replacement.tmp")
	content := strings.Repeat("A", 200) + " first\nsecond\n"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, l.path))

	var err error
	select {
	case ln := <-lines:
		t.Fatalf("line %q emitted from the replaced file", ln.Text)
	case err = <-errs:
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for error")
	}
	var readErr *eqpush.FileReadError
	require.True(t, errors.As(err, &readErr), "got %T: %v", err, err)
	assert.True(t, errors.Is(err, safefile.ErrReplaced))

	// The watcher resumed at the end of the new file.
	next := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	next.write("after replace\n")
	ln := recvLine(t, lines, errs)
	assert.Equal(t, "after replace", ln.Text)
	assert.Equal(t, "Grimjaw", ln.Character)
	assertNoLine(t, lines, 200*time.Millisecond)
}

func TestWatcher_OversizedPartialLine(t *testing.T) {
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	_, lines, errs := startWatcher(t, dir, eqpush.WithMaxLineBytes(64))
	waitTracking(t, l, lines)

	l.write(string(make([]byte, 100)))

	err := recvError(t, errs)
	assert.True(t, errors.Is(err, eqpush.ErrLineTooLong), "got %v", err)

	l.write("\nrecovered\n")
	assert.Equal(t, "recovered", recvLine(t, lines, errs).Text)
}

func TestWatcher_SwitchesToNewFile(t *testing.T) {
	dir := t.TempDir()
	first := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	_, lines, errs := startWatcher(t, dir)
	waitTracking(t, first, lines)

	second := createLog(t, dir, "eqlog_Fippy_bertox.txt")
	waitTracking(t, second, lines)

	second.write("hail\n")
	ln := recvLine(t, lines, errs)
	assert.Equal(t, "hail", ln.Text)
	assert.Equal(t, "Fippy", ln.Character)
	assert.Equal(t, "eqlog_Fippy_bertox.txt", filepath.Base(ln.File))
}

func TestWatcher_PollOnly(t *testing.T) {
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	_, lines, errs := startWatcher(t, dir, eqpush.WithFileEvents(false))
	waitTracking(t, l, lines)

	l.write("polled\n")
	assert.Equal(t, "polled", recvLine(t, lines, errs).Text)
}

func TestWatcher_CharacterNameUnparsable(t *testing.T) {
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog.txt")
	_, lines, errs := startWatcher(t, dir)

	err := recvError(t, errs)
	var parseErr *eqpush.ParseError
	require.True(t, errors.As(err, &parseErr), "got %T: %v", err, err)

	waitTracking(t, l, lines)
	l.write("still tailed\n")
	ln := recvLine(t, lines, errs)
	assert.Equal(t, "still tailed", ln.Text)
	assert.Empty(t, ln.Character)
}

func TestWatcher_NoLogFiles(t *testing.T) {
	dir := t.TempDir()
	_, lines, errs := startWatcher(t, dir)

	err := recvError(t, errs)
	assert.True(t, errors.Is(err, eqpush.ErrNoLogFiles))
	var watchErr *eqpush.WatchError
	require.True(t, errors.As(err, &watchErr))
	assert.Equal(t, eqpush.WatchOpFindLatest, watchErr.Op)

	select {
	case _, ok := <-lines:
		assert.False(t, ok)
	case <-time.After(testTimeout):
		t.Fatal("line channel not closed")
	}
}

func TestWatcher_WaitForLogs(t *testing.T) {
	dir := t.TempDir()
	_, lines, errs := startWatcher(t, dir, eqpush.WithWaitForLogs(true))

	time.Sleep(100 * time.Millisecond)
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	waitTracking(t, l, lines)

	l.write("arrived\n")
	assert.Equal(t, "arrived", recvLine(t, lines, errs).Text)
}

func TestWatcher_CloseAndReuse(t *testing.T) {
	dir := t.TempDir()
	createLog(t, dir, "eqlog_Grimjaw_bertox.txt")

	w, err := eqpush.NewWatcherWithOptions(eqpush.WithLogDir(dir))
	require.NoError(t, err)

	lines, errs, err := w.Watch(context.Background())
	require.NoError(t, err)

	_, _, err = w.Watch(context.Background())
	assert.ErrorIs(t, err, eqpush.ErrAlreadyWatching)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "Close is idempotent")

	_, ok := <-lines
	assert.False(t, ok)
	for range errs {
	}

	_, _, err = w.Watch(context.Background())
	assert.ErrorIs(t, err, eqpush.ErrWatcherClosed)
}

func TestWatcher_NoLinesAfterClose(t *testing.T) {
	dir := t.TempDir()
	l := createLog(t, dir, "eqlog_Grimjaw_bertox.txt")
	w, lines, errs := startWatcher(t, dir)
	waitTracking(t, l, lines)

	l.write(strings.Repeat("pending\n", 50))
	assert.Equal(t, "pending", recvLine(t, lines, errs).Text)

	require.NoError(t, w.Close())
	ln, ok := <-lines
	assert.False(t, ok, "got %q after Close", ln.Text)
}

func TestNewWatcherWithOptions_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := eqpush.NewWatcherWithOptions(eqpush.WithLogDir(dir), eqpush.WithPollInterval(0))
	assert.Error(t, err)

	_, err = eqpush.NewWatcherWithOptions(eqpush.WithLogDir(dir), eqpush.WithMaxLineBytes(-1))
	assert.Error(t, err)

	_, err = eqpush.NewWatcherWithOptions(eqpush.WithLogDir(filepath.Join(dir, "missing")))
	assert.ErrorIs(t, err, eqpush.ErrLogDirNotFound)
}
