package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWalk_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.svg"))
	touch(t, filepath.Join(dir, "a.dxf"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "readme.md"))
	touch(t, filepath.Join(dir, "nested", "deep", "c.pdf"))

	files, err := Walk(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.dxf"),
		filepath.Join(dir, "b.svg"),
		filepath.Join(dir, "nested", "deep", "c.pdf"),
	}, files)
}

func TestWalk_CaseInsensitiveExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "upper.SVG"))
	touch(t, filepath.Join(dir, "mixed.Dxf"))

	files, err := Walk(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestWalk_DedupesPathsDifferingByCase(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Star.svg"))
	touch(t, filepath.Join(dir, "star.svg"))

	files, err := Walk(dir)
	require.NoError(t, err)
	// On a case-sensitive filesystem both exist; only one survives dedupe.
	// On a case-insensitive one there is only one to begin with.
	assert.Len(t, files, 1)
}

func TestWalk_SkipsHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "visible.svg"))
	touch(t, filepath.Join(dir, ".hidden.svg"))
	touch(t, filepath.Join(dir, ".git", "objects", "blob.svg"))

	files, err := Walk(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "visible.svg")}, files)
}

func TestWalk_MissingRoot(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWalk_EmptyDir(t *testing.T) {
	files, err := Walk(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}
