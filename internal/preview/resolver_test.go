package preview

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver() *Resolver {
	return NewResolver(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestResolve_SiblingSameStem(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "star.dxf")
	writeFile(t, design, []byte("not a real dxf"))
	writeFile(t, filepath.Join(dir, "star.png"), []byte("png"))

	p := testResolver().Resolve(context.Background(), design)
	require.NotNil(t, p)
	assert.Equal(t, filepath.Join(dir, "star.png"), p.Path)
	assert.False(t, p.Generated)
}

func TestResolve_SiblingPreviewSuffixes(t *testing.T) {
	tests := []struct {
		name    string
		sibling string
	}{
		{"underscore suffix", "box_preview.jpg"},
		{"dash suffix", "box-preview.jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			design := filepath.Join(dir, "box.ai")
			writeFile(t, design, []byte("data"))
			writeFile(t, filepath.Join(dir, tt.sibling), []byte("img"))

			p := testResolver().Resolve(context.Background(), design)
			require.NotNil(t, p)
			assert.Equal(t, filepath.Join(dir, tt.sibling), p.Path)
			assert.False(t, p.Generated)
		})
	}
}

func TestResolve_SiblingInPreviewsDir(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "sign.eps")
	writeFile(t, design, []byte("data"))
	writeFile(t, filepath.Join(dir, "previews", "sign.webp"), []byte("img"))

	p := testResolver().Resolve(context.Background(), design)
	require.NotNil(t, p)
	assert.Equal(t, filepath.Join(dir, "previews", "sign.webp"), p.Path)
}

func TestResolve_SiblingPrefersPNG(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "coaster.svg")
	writeFile(t, design, []byte("<svg/>"))
	writeFile(t, filepath.Join(dir, "coaster.jpg"), []byte("jpg"))
	writeFile(t, filepath.Join(dir, "coaster.png"), []byte("png"))

	p := testResolver().Resolve(context.Background(), design)
	require.NotNil(t, p)
	assert.Equal(t, filepath.Join(dir, "coaster.png"), p.Path)
}

func TestResolve_GeneratesFromSVG(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "plain.svg")
	writeFile(t, design, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><rect x="10" y="10" width="80" height="80" fill="black"/></svg>`))

	r := testResolver()
	p := r.Resolve(context.Background(), design)
	require.NotNil(t, p)
	assert.True(t, p.Generated)

	info, err := os.Stat(p.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	r.Cleanup(p)
	_, err = os.Stat(p.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestResolve_GenerationFailureReturnsNil(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "broken.svg")
	writeFile(t, design, []byte("<svg unterminated"))

	p := testResolver().Resolve(context.Background(), design)
	assert.Nil(t, p)
}

func TestResolve_UnsupportedExtensionReturnsNil(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "art.cdr")
	writeFile(t, design, []byte("data"))

	p := testResolver().Resolve(context.Background(), design)
	assert.Nil(t, p)
}

func TestResolve_CancelledContextSkipsGeneration(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "slow.svg")
	writeFile(t, design, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"/>`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := testResolver().Resolve(ctx, design)
	assert.Nil(t, p)
}

func TestCleanup_NilAndSiblingSafe(t *testing.T) {
	r := testResolver()
	r.Cleanup(nil)

	dir := t.TempDir()
	sibling := filepath.Join(dir, "keep.png")
	writeFile(t, sibling, []byte("img"))
	r.Cleanup(&Preview{Path: sibling, Generated: false})

	_, err := os.Stat(sibling)
	assert.NoError(t, err)
}
