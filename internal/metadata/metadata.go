// Package metadata derives catalog metadata for design files, either from an
// AI vision model looking at a preview image or from the filename alone.
package metadata

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/psykeus/designloft/internal/errors"
)

// MaxTags caps how many tags a single design may carry.
const MaxTags = 10

var (
	projectTypes = []string{"coaster", "sign", "ornament", "box", "puzzle", "jig", "art", "other"}
	difficulties = []string{"easy", "medium", "hard"}
)

// Metadata describes a design for catalog purposes.
type Metadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ProjectType      string   `json:"project_type"`
	Difficulty       string   `json:"difficulty"`
	Materials        []string `json:"materials"`
	Categories       []string `json:"categories"`
	Style            string   `json:"style"`
	Tags             []string `json:"tags"`
	ApproxDimensions string   `json:"approx_dimensions"`
}

// Validate checks that a title is present and that enum fields, when set,
// hold allowed values. project_type and difficulty are optional; an absent
// or null value is kept empty rather than rejecting the whole answer. Tags
// beyond MaxTags are truncated rather than rejected.
func (m *Metadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.Validation("missing title")
	}
	if m.ProjectType != "" && !slices.Contains(projectTypes, m.ProjectType) {
		return errors.Validationf("invalid project_type %q", m.ProjectType)
	}
	if m.Difficulty != "" && !slices.Contains(difficulties, m.Difficulty) {
		return errors.Validationf("invalid difficulty %q", m.Difficulty)
	}
	if len(m.Tags) > MaxTags {
		m.Tags = m.Tags[:MaxTags]
	}
	return nil
}

// Basic builds fallback metadata from a design filename. "cool_box_v2.dxf"
// becomes the title "Cool Box V2"; every other field is left empty.
func Basic(filename string) Metadata {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")

	return Metadata{Title: titleCase(stem)}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
