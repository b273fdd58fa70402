package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/psykeus/designloft/internal/errors"
)

// Open connects to the catalog database.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates the catalog tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Design{},
		&DesignFile{},
		&Tag{},
		&DesignTag{},
	); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Store is the catalog's persistence layer.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// FileByContentHash returns the design file whose bytes hash to contentHash,
// or a NotFound error. An identical hash means a full duplicate.
func (s *Store) FileByContentHash(ctx context.Context, contentHash string) (*DesignFile, error) {
	var file DesignFile
	err := s.db.WithContext(ctx).
		Where("content_hash = ?", contentHash).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundf("no file with content hash %s", contentHash)
		}
		return nil, errors.Wrap(err, errors.CodeUnavailable, "query file by content hash")
	}
	return &file, nil
}

// LatestFileBySourcePath returns the highest-numbered version ingested from
// the given source path, or a NotFound error when the path is new.
func (s *Store) LatestFileBySourcePath(ctx context.Context, sourcePath string) (*DesignFile, error) {
	var file DesignFile
	err := s.db.WithContext(ctx).
		Where("source_path = ?", sourcePath).
		Order("version_number DESC").
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundf("no file from source path %s", sourcePath)
		}
		return nil, errors.Wrap(err, errors.CodeUnavailable, "query file by source path")
	}
	return &file, nil
}

// UniqueSlug derives a slug from title that does not collide with an
// existing design. The first collision gets a unix-timestamp suffix; if that
// is also taken (same title, same second) a counter disambiguates further.
func (s *Store) UniqueSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "design"
	}

	candidate := base
	for attempt := 0; ; attempt++ {
		var count int64
		err := s.db.WithContext(ctx).
			Model(&Design{}).
			Where("slug = ?", candidate).
			Count(&count).Error
		if err != nil {
			return "", errors.Wrap(err, errors.CodeUnavailable, "check slug uniqueness")
		}
		if count == 0 {
			return candidate, nil
		}
		if attempt == 0 {
			candidate = fmt.Sprintf("%s-%d", base, time.Now().Unix())
		} else {
			candidate = fmt.Sprintf("%s-%d-%d", base, time.Now().Unix(), attempt+1)
		}
	}
}

// CreateDesign inserts a new design. An empty Slug is derived from the title
// via UniqueSlug.
func (s *Store) CreateDesign(ctx context.Context, design *Design) error {
	if design.Slug == "" {
		slug, err := s.UniqueSlug(ctx, design.Title)
		if err != nil {
			return err
		}
		design.Slug = slug
	}
	if err := s.db.WithContext(ctx).Create(design).Error; err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "create design")
	}
	return nil
}

// CreateFile inserts a new design file version.
func (s *Store) CreateFile(ctx context.Context, file *DesignFile) error {
	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "create design file")
	}
	return nil
}

// SetCurrentVersion makes fileID the design's only active file and points
// the design's current-version reference at it. Both steps run in one
// transaction so a failure cannot leave the design with zero or two active
// versions.
func (s *Store) SetCurrentVersion(ctx context.Context, designID, fileID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&DesignFile{}).
			Where("design_id = ? AND id <> ?", designID, fileID).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate old versions: %w", err)
		}
		if err := tx.Model(&DesignFile{}).
			Where("id = ?", fileID).
			Update("is_active", true).Error; err != nil {
			return fmt.Errorf("activate new version: %w", err)
		}
		return tx.Model(&Design{}).
			Where("id = ?", designID).
			Updates(map[string]any{
				"current_version_id": fileID,
				"updated_at":         time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "set current version")
	}
	return nil
}

// GetOrCreateTag returns the tag named name, creating it on first use. Names
// are normalized to lowercase and trimmed; an empty normalized name is
// rejected.
func (s *Store) GetOrCreateTag(ctx context.Context, name string) (*Tag, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, errors.Validation("empty tag name")
	}

	var tag Tag
	err := s.db.WithContext(ctx).
		Where(Tag{Name: normalized}).
		FirstOrCreate(&tag).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "get or create tag")
	}
	return &tag, nil
}

// LinkTag attaches a tag to a design. Linking an already-linked pair is a
// no-op rather than an error.
func (s *Store) LinkTag(ctx context.Context, designID, tagID string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&DesignTag{DesignID: designID, TagID: tagID}).Error
	if err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "link tag")
	}
	return nil
}
