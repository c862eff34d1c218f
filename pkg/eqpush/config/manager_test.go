package config_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqpush/eqpush-go/pkg/eqpush/config"
)

func TestManager_Reload(t *testing.T) {
	path := writeFile(t, "push:\n  afk_only: false\n")
	var changes atomic.Int32
	m := config.NewManager(path, config.WithOnChange(func(*config.Snapshot) { changes.Add(1) }))

	first, err := m.Load()
	require.NoError(t, err)
	assert.Same(t, first, m.Current())

	// Same content: nothing committed.
	changed, err := m.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Same(t, first, m.Current())

	require.NoError(t, os.WriteFile(path, []byte("push:\n  afk_only: true\n"), 0o644))
	changed, err = m.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, m.Current().Push.AFKOnly)
	assert.Equal(t, int32(1), changes.Load())
}

func TestManager_ReloadKeepsPreviousOnError(t *testing.T) {
	path := writeFile(t, "push:\n  afk_only: true\n")
	m := config.NewManager(path)
	good, err := m.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("push:\n  camp_policy: never\n"), 0o644))
	changed, err := m.Reload()
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Same(t, good, m.Current())
}

func TestManager_LoadError(t *testing.T) {
	m := config.NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := m.Load()
	assert.Error(t, err)
	assert.Nil(t, m.Current())
}

func TestManager_WatchPicksUpEdits(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping fsnotify test in short mode")
	}

	path := writeFile(t, "push:\n  afk_only: false\n")
	m := config.NewManager(path, config.WithDebounce(20*time.Millisecond))
	_, err := m.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Watch(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Keep writing until the watcher is up and sees the edit.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("push:\n  afk_only: true\n"), 0o644)
		return m.Current().Push.AFKOnly
	}, 5*time.Second, 50*time.Millisecond)
}

func TestManager_WatchStopsOnCancel(t *testing.T) {
	path := writeFile(t, "push: {}\n")
	m := config.NewManager(path)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Watch(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
