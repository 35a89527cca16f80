package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Google Chrome.desktop"), "[Desktop Entry]\nName=Google Chrome\nExec=chrome\n")
	touch(t, filepath.Join(dir, "sub", "firefox.desktop"), "[Desktop Entry]\nExec=firefox\n")
	touch(t, filepath.Join(dir, "readme.txt"), "ignored")

	exts := []string{".desktop"}
	first := Build([]string{dir}, exts)
	second := Build([]string{dir}, exts)

	assert.Equal(t, first.Entries(), second.Entries())
	assert.Equal(t, 2, first.Len())
}

func TestBuildFirstNameWins(t *testing.T) {
	t.Parallel()

	a, b := t.TempDir(), t.TempDir()
	pa := touch(t, filepath.Join(a, "Song.mp3"), "")
	touch(t, filepath.Join(b, "song.MP3"), "")

	idx := Build([]string{a, "", filepath.Join(a, "missing"), b}, []string{".mp3"})
	require.Equal(t, 1, idx.Len())
	path, ok := idx.Lookup("song")
	assert.True(t, ok)
	assert.Equal(t, pa, path)
}

func TestDesktopEntryName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := touch(t, filepath.Join(dir, "org.gnome.Calculator.desktop"),
		"[Desktop Entry]\nName=Calculator\n\n[Desktop Action new]\nName=New Window\n")

	idx := Build([]string{dir}, []string{".desktop"})
	path, ok := idx.Lookup("calculator")
	assert.True(t, ok)
	assert.Equal(t, p, path)
}

func TestMatchSubstring(t *testing.T) {
	t.Parallel()

	idx := FromEntries(
		Entry{Name: "Visual Studio Code", Path: "/apps/code"},
		Entry{Name: "Google Chrome", Path: "/apps/chrome"},
	)

	e, err := idx.Match("chrome")
	require.NoError(t, err)
	assert.Equal(t, "/apps/chrome", e.Path)

	e, err = idx.Match("Google Chrome")
	require.NoError(t, err)
	assert.Equal(t, "google chrome", e.Name)
}

func TestMatchIgnoresSingleLetters(t *testing.T) {
	t.Parallel()

	idx := FromEntries(
		Entry{Name: "Firefox", Path: "/apps/firefox"},
		Entry{Name: "R", Path: "/apps/r"},
	)

	_, err := idx.Match("x")
	assert.ErrorIs(t, err, ErrNoMatch)

	e, err := idx.Match("r")
	require.NoError(t, err)
	assert.Equal(t, "/apps/r", e.Path)

	_, err = idx.Match("brave browser")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestMatchTokenOverlap(t *testing.T) {
	t.Parallel()

	idx := FromEntries(
		Entry{Name: "LibreOffice Writer", Path: "/apps/writer"},
		Entry{Name: "LibreOffice Calc", Path: "/apps/calc"},
		Entry{Name: "Spreadsheet Calc Helper", Path: "/apps/helper"},
	)

	e, err := idx.Match("calc spreadsheet tool")
	require.NoError(t, err)
	assert.Equal(t, "/apps/helper", e.Path)

	// One shared token each: the earlier entry wins.
	e, err = idx.Match("my libreoffice thing")
	require.NoError(t, err)
	assert.Equal(t, "/apps/writer", e.Path)
}

func TestMatchNoOverlap(t *testing.T) {
	t.Parallel()

	idx := FromEntries(Entry{Name: "Google Chrome", Path: "/apps/chrome"})

	_, err := idx.Match("spotify")
	assert.ErrorIs(t, err, ErrNoMatch)
	_, err = idx.Match("  ")
	assert.ErrorIs(t, err, ErrNoMatch)

	var empty *Index
	_, ok := empty.Lookup("chrome")
	assert.False(t, ok)
}

func TestRefSwapsWholeIndex(t *testing.T) {
	t.Parallel()

	ref := NewRef(nil)
	assert.Zero(t, ref.Len())

	ref.Store(FromEntries(Entry{Name: "vlc", Path: "/apps/vlc"}))
	path, ok := ref.Lookup("VLC")
	assert.True(t, ok)
	assert.Equal(t, "/apps/vlc", path)
}
