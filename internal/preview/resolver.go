// Package preview locates or synthesizes preview images for design files.
package preview

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Bounded canvas for generated previews.
const (
	MaxWidth  = 800
	MaxHeight = 800
)

// previewExtensions are the image extensions tried when looking for a
// sibling preview, in preference order.
var previewExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Preview is a displayable preview image for a design file.
type Preview struct {
	// Path is the on-disk location of the image.
	Path string
	// Generated is true when the image was synthesized into a temporary
	// file rather than found next to the design. Generated previews are
	// removed by Cleanup.
	Generated bool
}

// Resolver finds or generates preview images for design files.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a new resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve returns a preview for the design file at designPath, or nil when
// none is available. Sibling images are preferred; generation from vector or
// CAD sources is attempted as a fallback. Generation is best-effort: any
// failure is logged and reported as "no preview".
func (r *Resolver) Resolve(ctx context.Context, designPath string) *Preview {
	if sibling := findSibling(designPath); sibling != "" {
		return &Preview{Path: sibling}
	}

	select {
	case <-ctx.Done():
		return nil
	default:
	}

	out, err := os.CreateTemp("", "designloft-preview-*.png")
	if err != nil {
		r.logger.Warn("could not create temp preview file", "error", err)
		return nil
	}
	outPath := out.Name()
	out.Close()

	var genErr error
	switch strings.ToLower(filepath.Ext(designPath)) {
	case ".svg":
		genErr = renderSVG(designPath, outPath, MaxWidth, MaxHeight)
	case ".dxf":
		genErr = renderDXF(designPath, outPath, MaxWidth, MaxHeight)
	default:
		// Generation for AI/EPS/PDF/CDR would need Ghostscript-class
		// tooling; the pipeline proceeds without a preview.
		r.logger.Debug("preview generation not implemented",
			"ext", filepath.Ext(designPath),
		)
		os.Remove(outPath)
		return nil
	}

	if genErr != nil {
		r.logger.Warn("preview generation failed",
			"path", designPath,
			"error", genErr,
		)
		os.Remove(outPath)
		return nil
	}

	return &Preview{Path: outPath, Generated: true}
}

// Cleanup removes a generated preview's temporary file. Sibling previews are
// left untouched. Safe to call with nil.
func (r *Resolver) Cleanup(p *Preview) {
	if p == nil || !p.Generated {
		return
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("could not remove temp preview", "path", p.Path, "error", err)
	}
}

// findSibling looks for an existing preview image next to the design file.
// Naming conventions tried for each image extension: same stem, `_preview`
// suffix, `-preview` suffix, and the stem inside a previews/ subdirectory.
func findSibling(designPath string) string {
	ext := filepath.Ext(designPath)
	stem := strings.TrimSuffix(filepath.Base(designPath), ext)
	parent := filepath.Dir(designPath)

	for _, imgExt := range previewExtensions {
		candidates := []string{
			filepath.Join(parent, stem+imgExt),
			filepath.Join(parent, stem+"_preview"+imgExt),
			filepath.Join(parent, stem+"-preview"+imgExt),
			filepath.Join(parent, "previews", stem+imgExt),
		}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}

	return ""
}
