package assets

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) *atomic.Int32 {
	t.Helper()
	var changes atomic.Int32
	w, err := NewWatcher(root, func() { changes.Add(1) }, zerolog.Nop())
	require.NoError(t, err)
	w.SetDebounce(50 * time.Millisecond)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return &changes
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "burst-"+string(rune('a'+i))+".png")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 1, changes.Load(), "a burst is reported once")
}

func TestWatcher_FollowsNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	sub := filepath.Join(root, "2024")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool { return changes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "new.jpg"), []byte("x"), 0o644))
	assert.Eventually(t, func() bool { return changes.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".DS_Store"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, changes.Load())
}

func TestWatcher_StopDiscardsPending(t *testing.T) {
	root := t.TempDir()
	var changes atomic.Int32
	w, err := NewWatcher(root, func() { changes.Add(1) }, zerolog.Nop())
	require.NoError(t, err)
	w.SetDebounce(time.Second)
	require.NoError(t, w.Start())
	assert.Error(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	w.Stop()
	w.Stop()

	time.Sleep(1200 * time.Millisecond)
	assert.Zero(t, changes.Load())
}

func TestNewWatcher_NotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err := NewWatcher(file, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNotDirectory)
}
