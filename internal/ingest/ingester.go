package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/psykeus/designloft/internal/catalog"
	"github.com/psykeus/designloft/internal/errors"
	"github.com/psykeus/designloft/internal/hash"
	"github.com/psykeus/designloft/internal/metadata"
	"github.com/psykeus/designloft/internal/preview"
	"github.com/psykeus/designloft/internal/storage"
)

// Uploader sends local files to the object store.
type Uploader interface {
	Upload(ctx context.Context, bucket, objectPath, localPath string) error
	PublicURL(bucket, objectPath string) string
}

// Options tune a run.
type Options struct {
	// DryRun reports what each file would do without uploading or writing
	// catalog records. Catalog reads still happen.
	DryRun bool
	// OnProgress, when set, is called after each file.
	OnProgress func(processed, total int, path string)
}

// Ingester drives the pipeline for one directory.
type Ingester struct {
	store     *catalog.Store
	uploader  Uploader
	previews  *preview.Resolver
	extractor *metadata.Extractor
	logger    *slog.Logger
	opts      Options
}

// New creates an Ingester.
func New(
	store *catalog.Store,
	uploader Uploader,
	previews *preview.Resolver,
	extractor *metadata.Extractor,
	logger *slog.Logger,
	opts Options,
) *Ingester {
	return &Ingester{
		store:     store,
		uploader:  uploader,
		previews:  previews,
		extractor: extractor,
		logger:    logger,
		opts:      opts,
	}
}

// Run ingests every design file under dir. Per-file failures are logged and
// counted; the run keeps going. Only a failed walk or a cancelled context
// stops it.
func (in *Ingester) Run(ctx context.Context, dir string) (Stats, error) {
	var stats Stats

	files, err := Walk(dir)
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", dir, err)
	}
	in.logger.Info("found design files", "dir", dir, "count", len(files))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := in.processFile(ctx, dir, path, &stats); err != nil {
			in.logger.Error("processing failed", "file", path, "error", err)
			stats.Errors++
		}
		if in.opts.OnProgress != nil {
			in.opts.OnProgress(i+1, len(files), path)
		}
	}
	return stats, nil
}

func (in *Ingester) processFile(ctx context.Context, dir, path string, stats *Stats) error {
	stats.Scanned++

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return fmt.Errorf("relativize path: %w", err)
	}
	rel = filepath.ToSlash(rel)

	contentHash, err := hash.Content(path)
	if err != nil {
		return fmt.Errorf("hash content: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	// Identical bytes anywhere in the catalog mean a full duplicate.
	if existing, err := in.store.FileByContentHash(ctx, contentHash); err == nil {
		in.logger.Info("skipping exact duplicate",
			"file", rel,
			"design_id", existing.DesignID,
		)
		stats.SkippedDuplicate++
		return nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	// A previously ingested source path makes this a new version.
	prior, err := in.store.LatestFileBySourcePath(ctx, rel)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	pv := in.previews.Resolve(ctx, path)
	defer in.previews.Cleanup(pv)
	if pv != nil && pv.Generated {
		stats.PreviewsGenerated++
	}

	var phash *string
	if pv != nil {
		if ph, err := hash.Perceptual(pv.Path); err != nil {
			in.logger.Warn("perceptual hash failed", "file", rel, "error", err)
		} else {
			phash = &ph
		}
	}

	if in.opts.DryRun {
		if prior != nil {
			in.logger.Info("dry run: would create new version",
				"file", rel,
				"version", prior.VersionNumber+1,
			)
			stats.NewVersions++
		} else {
			in.logger.Info("dry run: would create new design", "file", rel)
			stats.NewDesigns++
		}
		return nil
	}

	if prior != nil {
		return in.createVersion(ctx, path, rel, contentHash, phash, info.Size(), prior, stats)
	}
	return in.createDesign(ctx, path, rel, contentHash, phash, info.Size(), pv, stats)
}

// createVersion adds the file as the next version of a known design and
// makes it the active one.
func (in *Ingester) createVersion(
	ctx context.Context,
	path, rel, contentHash string,
	phash *string,
	size int64,
	prior *catalog.DesignFile,
	stats *Stats,
) error {
	version := prior.VersionNumber + 1
	storagePath := fmt.Sprintf("files/%s/v%d%s", prior.DesignID, version, filepath.Ext(path))

	if err := in.uploader.Upload(ctx, storage.BucketDesigns, storagePath, path); err != nil {
		return fmt.Errorf("upload source: %w", err)
	}

	file := &catalog.DesignFile{
		DesignID:      prior.DesignID,
		StoragePath:   storagePath,
		FileType:      fileType(path),
		SizeBytes:     size,
		ContentHash:   contentHash,
		PreviewPHash:  phash,
		SourcePath:    rel,
		VersionNumber: version,
		IsActive:      true,
	}
	if err := in.store.CreateFile(ctx, file); err != nil {
		return err
	}
	if err := in.store.SetCurrentVersion(ctx, prior.DesignID, file.ID); err != nil {
		return err
	}

	in.logger.Info("created new version",
		"file", rel,
		"design_id", prior.DesignID,
		"version", version,
	)
	stats.NewVersions++
	return nil
}

// createDesign registers a brand-new design with metadata, preview, tags,
// and its first file version.
func (in *Ingester) createDesign(
	ctx context.Context,
	path, rel, contentHash string,
	phash *string,
	size int64,
	pv *preview.Preview,
	stats *Stats,
) error {
	previewPath := ""
	if pv != nil {
		previewPath = pv.Path
	}
	meta := in.extractor.Extract(ctx, previewPath, filepath.Base(path))

	previewURL := ""
	if pv != nil {
		remote := fmt.Sprintf("%s-%s.png", catalog.Slugify(meta.Title), contentHash[:8])
		if err := in.uploader.Upload(ctx, storage.BucketPreviews, remote, pv.Path); err != nil {
			return fmt.Errorf("upload preview: %w", err)
		}
		previewURL = in.uploader.PublicURL(storage.BucketPreviews, remote)
	}

	design := &catalog.Design{
		Title:            meta.Title,
		Description:      meta.Description,
		PreviewPath:      previewURL,
		ProjectType:      meta.ProjectType,
		Difficulty:       meta.Difficulty,
		Materials:        catalog.StringList(meta.Materials),
		Categories:       catalog.StringList(meta.Categories),
		Style:            meta.Style,
		ApproxDimensions: meta.ApproxDimensions,
		Metadata: catalog.JSONMap{
			"ai_generated": in.extractor.Enabled() && pv != nil,
			"tags":         meta.Tags,
		},
		IsPublic: true,
	}
	if err := in.store.CreateDesign(ctx, design); err != nil {
		return err
	}

	in.linkTags(ctx, design.ID, meta.Tags)

	storagePath := fmt.Sprintf("files/%s/v1%s", design.ID, filepath.Ext(path))
	if err := in.uploader.Upload(ctx, storage.BucketDesigns, storagePath, path); err != nil {
		return fmt.Errorf("upload source: %w", err)
	}

	file := &catalog.DesignFile{
		DesignID:      design.ID,
		StoragePath:   storagePath,
		FileType:      fileType(path),
		SizeBytes:     size,
		ContentHash:   contentHash,
		PreviewPHash:  phash,
		SourcePath:    rel,
		VersionNumber: 1,
		IsActive:      true,
	}
	if err := in.store.CreateFile(ctx, file); err != nil {
		return err
	}
	if err := in.store.SetCurrentVersion(ctx, design.ID, file.ID); err != nil {
		return err
	}

	in.logger.Info("created new design",
		"file", rel,
		"design_id", design.ID,
		"title", meta.Title,
	)
	stats.NewDesigns++
	return nil
}

// linkTags attaches each tag, creating missing ones. Tag problems never fail
// the file.
func (in *Ingester) linkTags(ctx context.Context, designID string, names []string) {
	for _, name := range names {
		tag, err := in.store.GetOrCreateTag(ctx, name)
		if err != nil {
			if !errors.Is(err, errors.ErrValidation) {
				in.logger.Warn("tag creation failed", "tag", name, "error", err)
			}
			continue
		}
		if err := in.store.LinkTag(ctx, designID, tag.ID); err != nil {
			in.logger.Warn("tag link failed", "tag", tag.Name, "error", err)
		}
	}
}

func fileType(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
