// Package catalog persists designs, their file versions, and tags.
package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/psykeus/designloft/internal/id"
)

// StringList stores a []string as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// JSONMap stores a free-form object as a JSON text column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// Design is one catalog entry. Its file history lives in DesignFile rows;
// CurrentVersionID points at the single active one.
type Design struct {
	ID               string     `gorm:"type:text;primaryKey" json:"id"`
	Slug             string     `gorm:"not null;uniqueIndex" json:"slug"`
	Title            string     `gorm:"not null" json:"title"`
	Description      string     `gorm:"type:text" json:"description,omitempty"`
	PreviewPath      string     `json:"preview_path,omitempty"`
	ProjectType      string     `json:"project_type,omitempty"`
	Difficulty       string     `json:"difficulty,omitempty"`
	Materials        StringList `gorm:"type:text" json:"materials,omitempty"`
	Categories       StringList `gorm:"type:text" json:"categories,omitempty"`
	Style            string     `json:"style,omitempty"`
	ApproxDimensions string     `json:"approx_dimensions,omitempty"`
	Metadata         JSONMap    `gorm:"type:text" json:"metadata,omitempty"`
	IsPublic         bool       `gorm:"not null;default:true" json:"is_public"`
	CurrentVersionID *string    `gorm:"type:text" json:"current_version_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Design) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		generated, err := id.Generate(id.PrefixDesign)
		if err != nil {
			return err
		}
		d.ID = generated
	}
	return nil
}

// DesignFile is one uploaded revision of a design's source asset. Rows are
// never deleted; superseded versions are deactivated.
type DesignFile struct {
	ID            string  `gorm:"type:text;primaryKey" json:"id"`
	DesignID      string  `gorm:"type:text;not null;index" json:"design_id"`
	Design        *Design `gorm:"foreignKey:DesignID" json:"design,omitempty"`
	StoragePath   string  `gorm:"not null" json:"storage_path"`
	FileType      string  `gorm:"not null" json:"file_type"`
	SizeBytes     int64   `gorm:"not null" json:"size_bytes"`
	ContentHash   string  `gorm:"not null;index" json:"content_hash"`
	PreviewPHash  *string `json:"preview_phash,omitempty"`
	SourcePath    string  `gorm:"not null;index" json:"source_path"`
	VersionNumber int     `gorm:"not null" json:"version_number"`
	IsActive      bool    `gorm:"not null;default:false" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}

func (f *DesignFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		generated, err := id.Generate(id.PrefixDesignFile)
		if err != nil {
			return err
		}
		f.ID = generated
	}
	return nil
}

// Tag is a normalized (lowercased, trimmed) label shared across designs.
type Tag struct {
	ID   string `gorm:"type:text;primaryKey" json:"id"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		generated, err := id.Generate(id.PrefixTag)
		if err != nil {
			return err
		}
		t.ID = generated
	}
	return nil
}

// DesignTag links a design to a tag. The composite primary key makes the
// link insert idempotent under ON CONFLICT DO NOTHING.
type DesignTag struct {
	DesignID string `gorm:"type:text;primaryKey" json:"design_id"`
	TagID    string `gorm:"type:text;primaryKey" json:"tag_id"`

	CreatedAt time.Time `json:"created_at"`
}
