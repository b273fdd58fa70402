package catalog

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/psykeus/designloft/internal/errors"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestDesign(t *testing.T, s *Store, title string) *Design {
	t.Helper()
	d := &Design{Title: title, IsPublic: true}
	require.NoError(t, s.CreateDesign(context.Background(), d))
	return d
}

func newTestFile(t *testing.T, s *Store, designID, sourcePath, hash string, version int) *DesignFile {
	t.Helper()
	f := &DesignFile{
		DesignID:      designID,
		StoragePath:   "files/" + designID + "/v1.svg",
		FileType:      "svg",
		SizeBytes:     128,
		ContentHash:   hash,
		SourcePath:    sourcePath,
		VersionNumber: version,
		IsActive:      true,
	}
	require.NoError(t, s.CreateFile(context.Background(), f))
	return f
}

func TestCreateDesign_GeneratesIDAndSlug(t *testing.T) {
	s := testStore(t)
	d := newTestDesign(t, s, "Celtic Knot Coaster")

	assert.True(t, strings.HasPrefix(d.ID, "dsn-"))
	assert.Equal(t, "celtic-knot-coaster", d.Slug)
}

func TestCreateDesign_SlugCollisionGetsSuffix(t *testing.T) {
	s := testStore(t)
	first := newTestDesign(t, s, "Tree Ornament")
	second := newTestDesign(t, s, "Tree Ornament")

	assert.Equal(t, "tree-ornament", first.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "tree-ornament-"))
}

func TestCreateDesign_RepeatedTitleSameSecond(t *testing.T) {
	s := testStore(t)

	// Three identical titles created back to back, faster than the
	// timestamp suffix changes, must still get three distinct slugs.
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		d := newTestDesign(t, s, "Hexagon Coaster")
		assert.True(t, strings.HasPrefix(d.Slug, "hexagon-coaster"))
		assert.False(t, seen[d.Slug], "slug %q reused", d.Slug)
		seen[d.Slug] = true
	}
}

func TestCreateDesign_EmptySlugFallback(t *testing.T) {
	s := testStore(t)
	d := newTestDesign(t, s, "!!!")
	assert.Equal(t, "design", d.Slug)
}

func TestFileByContentHash(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.FileByContentHash(ctx, "deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	d := newTestDesign(t, s, "Box")
	created := newTestFile(t, s, d.ID, "box.svg", "deadbeef", 1)

	found, err := s.FileByContentHash(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, strings.HasPrefix(found.ID, "dfl-"))
}

func TestLatestFileBySourcePath(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.LatestFileBySourcePath(ctx, "missing.dxf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	d := newTestDesign(t, s, "Sign")
	newTestFile(t, s, d.ID, "sign.dxf", "hash1", 1)
	newTestFile(t, s, d.ID, "sign.dxf", "hash2", 2)
	v3 := newTestFile(t, s, d.ID, "sign.dxf", "hash3", 3)

	latest, err := s.LatestFileBySourcePath(ctx, "sign.dxf")
	require.NoError(t, err)
	assert.Equal(t, v3.ID, latest.ID)
	assert.Equal(t, 3, latest.VersionNumber)
}

func TestSetCurrentVersion_SingleActiveInvariant(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d := newTestDesign(t, s, "Puzzle")
	v1 := newTestFile(t, s, d.ID, "puzzle.svg", "h1", 1)
	v2 := newTestFile(t, s, d.ID, "puzzle.svg", "h2", 2)

	require.NoError(t, s.SetCurrentVersion(ctx, d.ID, v2.ID))

	var active []DesignFile
	require.NoError(t, s.db.Where("design_id = ? AND is_active = ?", d.ID, true).Find(&active).Error)
	require.Len(t, active, 1)
	assert.Equal(t, v2.ID, active[0].ID)

	var updated Design
	require.NoError(t, s.db.First(&updated, "id = ?", d.ID).Error)
	require.NotNil(t, updated.CurrentVersionID)
	assert.Equal(t, v2.ID, *updated.CurrentVersionID)

	// Re-pointing back keeps exactly one active.
	require.NoError(t, s.SetCurrentVersion(ctx, d.ID, v1.ID))
	require.NoError(t, s.db.Where("design_id = ? AND is_active = ?", d.ID, true).Find(&active).Error)
	require.Len(t, active, 1)
	assert.Equal(t, v1.ID, active[0].ID)
}

func TestGetOrCreateTag(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateTag(ctx, "  Mandala ")
	require.NoError(t, err)
	assert.Equal(t, "mandala", first.Name)
	assert.True(t, strings.HasPrefix(first.ID, "tag-"))

	again, err := s.GetOrCreateTag(ctx, "MANDALA")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = s.GetOrCreateTag(ctx, "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestLinkTag_Idempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d := newTestDesign(t, s, "Art Panel")
	tag, err := s.GetOrCreateTag(ctx, "geometric")
	require.NoError(t, err)

	require.NoError(t, s.LinkTag(ctx, d.ID, tag.ID))
	require.NoError(t, s.LinkTag(ctx, d.ID, tag.ID))

	var count int64
	require.NoError(t, s.db.Model(&DesignTag{}).
		Where("design_id = ? AND tag_id = ?", d.ID, tag.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDesign_JSONColumnsRoundTrip(t *testing.T) {
	s := testStore(t)

	d := &Design{
		Title:      "Leather Coaster",
		Materials:  StringList{"leather", "wood"},
		Categories: StringList{"home"},
		Metadata: JSONMap{
			"ai_generated": true,
			"tags":         []any{"coaster"},
		},
	}
	require.NoError(t, s.CreateDesign(context.Background(), d))

	var loaded Design
	require.NoError(t, s.db.First(&loaded, "id = ?", d.ID).Error)
	assert.Equal(t, StringList{"leather", "wood"}, loaded.Materials)
	assert.Equal(t, StringList{"home"}, loaded.Categories)
	assert.Equal(t, true, loaded.Metadata["ai_generated"])
}
