package fsnotify

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// fsnotify Watcher: dump-file changes reach the callback, noise does not
// =============================================================================

// waitForCallback waits up to timeout for the callback channel to receive a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func wikiOnly(path string) bool { return strings.HasSuffix(path, ".wiki") }

func startWatcher(t *testing.T, dir string, accept func(string) bool) (*Watcher, <-chan string) {
	t.Helper()
	w, err := NewWatcher(Options{Accept: accept})
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(dir, func(path string) { changed <- path }))

	// Give watcher time to start
	time.Sleep(50 * time.Millisecond)
	return w, changed
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "Goblin.wiki")
	require.NoError(t, os.WriteFile(page, []byte("original"), 0644))

	_, changed := startWatcher(t, dir, wikiOnly)

	require.NoError(t, os.WriteFile(page, []byte("modified"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for file change")
	assert.Equal(t, page, path)
}

func TestWatcher_DetectsNewFileInNewSubdir(t *testing.T) {
	dir := t.TempDir()
	_, changed := startWatcher(t, dir, wikiOnly)

	sub := filepath.Join(dir, "bosses")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(50 * time.Millisecond)

	page := filepath.Join(sub, "Kalphite_Queen.wiki")
	require.NoError(t, os.WriteFile(page, []byte("new"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for new file")
	assert.Equal(t, page, path)
}

func TestWatcher_DetectsDeletedFile(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "Imp.wiki")
	require.NoError(t, os.WriteFile(page, []byte("delete me"), 0644))

	_, changed := startWatcher(t, dir, wikiOnly)

	require.NoError(t, os.Remove(page))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for deleted file")
	assert.Equal(t, page, path)
}

func TestWatcher_IgnoresNoise(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0755))

	_, changed := startWatcher(t, dir, wikiOnly)

	os.WriteFile(filepath.Join(gitDir, "Goblin.wiki"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "Goblin.wiki.swp"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	_, ok := waitForCallback(changed, 500*time.Millisecond)
	assert.False(t, ok, "should not have received callback for ignored files")

	page := filepath.Join(dir, "Cow.wiki")
	require.NoError(t, os.WriteFile(page, []byte("moo"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for page file")
	assert.Equal(t, page, path)
}

func TestWatcher_MissingDir(t *testing.T) {
	w, err := NewWatcher(Options{})
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing"), func(string) {}))
}

func TestWatcher_StopCleanup(t *testing.T) {
	// After Stop(), no more callbacks fire.
	dir := t.TempDir()

	w, err := NewWatcher(Options{})
	require.NoError(t, err)

	callCount := 0
	var mu sync.Mutex
	err = w.Watch(dir, func(path string) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, w.Stop())

	mu.Lock()
	countAfterStop := callCount
	mu.Unlock()

	os.WriteFile(filepath.Join(dir, "After_stop.wiki"), []byte("nope"), 0644)
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	countAfterWrite := callCount
	mu.Unlock()

	assert.Equal(t, countAfterStop, countAfterWrite, "callbacks fired after Stop()")

	// Double-stop should be safe
	assert.NoError(t, w.Stop())
}

func TestShouldIgnorePath(t *testing.T) {
	assert.True(t, shouldIgnorePath("/dump/.git/Goblin.wiki"))
	assert.True(t, shouldIgnorePath("/dump/Goblin.wiki~"))
	assert.True(t, shouldIgnorePath("/dump/Goblin.wiki.tmp"))
	assert.False(t, shouldIgnorePath("/dump/Goblin.wiki"))
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(Options{Accept: wikiOnly, Debounce: 100 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(dir, func(path string) { changed <- path }))
	time.Sleep(50 * time.Millisecond)

	page := filepath.Join(dir, "Hill_Giant.wiki")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(page, []byte(strings.Repeat("x", i+1)), 0644))
	}

	path, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, page, path)

	data, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Equal(t, "xxxxx", string(data), "callback sees the final content")

	_, again := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, again, "a burst yields one callback")
}
