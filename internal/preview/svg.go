package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// renderSVG rasterizes an SVG file to a PNG, fitted inside maxW x maxH.
// Transparency is flattened onto a white background so downstream encoders
// without alpha support get a usable image.
func renderSVG(svgPath, outPath string, maxW, maxH int) error {
	icon, err := oksvg.ReadIcon(svgPath, oksvg.WarnErrorMode)
	if err != nil {
		return fmt.Errorf("parse svg: %w", err)
	}

	vbW, vbH := icon.ViewBox.W, icon.ViewBox.H
	if vbW <= 0 || vbH <= 0 {
		// No usable viewBox; rasterize at the full canvas size.
		vbW, vbH = float64(maxW), float64(maxH)
	}

	scale := math.Min(float64(maxW)/vbW, float64(maxH)/vbH)
	w := max(1, int(math.Round(vbW*scale)))
	h := max(1, int(math.Round(vbH*scale)))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
