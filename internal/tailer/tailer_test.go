package tailer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqpush/eqpush-go/internal/tailer"
)

func next(t *testing.T, tr *tailer.Tailer) string {
	t.Helper()
	select {
	case line, ok := <-tr.Lines():
		require.True(t, ok, "lines closed")
		return line
	case err := <-tr.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for line")
	}
	return ""
}

func TestTailer_FromStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eqlog_Grimjaw_bertox.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\r\ntwo\n"), 0o644))

	cfg := tailer.DefaultConfig()
	cfg.FromStart = true
	cfg.Poll = true
	tr, err := tailer.New(context.Background(), path, cfg)
	require.NoError(t, err)
	defer tr.Stop()

	assert.Equal(t, "one", next(t, tr))
	assert.Equal(t, "two", next(t, tr))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString("three\n")
	require.NoError(t, err)

	assert.Equal(t, "three", next(t, tr))
}

func TestTailer_MustExist(t *testing.T) {
	_, err := tailer.New(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), tailer.DefaultConfig())
	assert.Error(t, err)
}

func TestTailer_StopClosesChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eqlog_Grimjaw_bertox.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg := tailer.DefaultConfig()
	cfg.Poll = true
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr, err := tailer.New(ctx, path, cfg)
	require.NoError(t, err)

	require.NoError(t, tr.Stop())
	_, ok := <-tr.Lines()
	assert.False(t, ok)
	_, ok = <-tr.Errors()
	assert.False(t, ok)
}
