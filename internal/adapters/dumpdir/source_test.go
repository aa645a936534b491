package dumpdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/dropcache/internal/ports"
)

func writePage(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestFileName_TitleRoundTrip(t *testing.T) {
	for _, title := range []string{"Hill Giant", "Goblin", "TzHaar-Ket", "Kalphite Queen (Level 333)", "Ogre/Archived", "100% Rat"} {
		got := TitleFromPath(filepath.Join("/dump", FileName(title)))
		assert.Equal(t, title, got)
	}
	assert.Equal(t, "Hill_Giant.wiki", FileName(" Hill Giant "))
}

func TestIsPageFile(t *testing.T) {
	assert.True(t, IsPageFile("Goblin.wiki"))
	assert.True(t, IsPageFile("/a/b/Goblin.wiki"))
	assert.False(t, IsPageFile(".Goblin.wiki.swp"))
	assert.False(t, IsPageFile(".hidden.wiki"))
	assert.False(t, IsPageFile("notes.txt"))
	assert.False(t, IsPageFile(".wiki"))
	assert.Equal(t, "", TitleFromPath("/dump/readme.md"))
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := writePage(t, t.TempDir(), "Goblin.wiki", "x")
	_, err = New(file)
	assert.Error(t, err)
}

func TestSource_TitlesAndFetch(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "Goblin.wiki", "goblin markup")
	writePage(t, dir, "Hill_Giant.wiki", "giant markup")
	writePage(t, dir, "bosses/Kalphite_Queen.wiki", "kq markup")
	writePage(t, dir, "notes.txt", "ignored")
	writePage(t, dir, ".git/Skipped.wiki", "ignored")

	src, err := New(dir)
	require.NoError(t, err)

	titles, err := src.Titles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Goblin", "Hill Giant", "Kalphite Queen"}, titles)

	body, err := src.Fetch(context.Background(), "Hill Giant")
	require.NoError(t, err)
	assert.Equal(t, "giant markup", body)

	body, err = src.Fetch(context.Background(), "Kalphite Queen")
	require.NoError(t, err)
	assert.Equal(t, "kq markup", body)
}

func TestSource_FetchWithoutListing(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "Imp.wiki", "imp markup")

	src, err := New(dir)
	require.NoError(t, err)

	body, err := src.Fetch(context.Background(), "Imp")
	require.NoError(t, err)
	assert.Equal(t, "imp markup", body)
}

func TestSource_FetchMissing(t *testing.T) {
	src, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), "Nothing")
	assert.ErrorIs(t, err, ports.ErrPageNotFound)
}

func TestSource_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "Imp.wiki", "imp")
	src, err := New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Titles(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = src.Fetch(ctx, "Imp")
	assert.ErrorIs(t, err, context.Canceled)
}
