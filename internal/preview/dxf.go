package preview

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

// arcSegments is the polyline resolution used when sampling arcs.
const arcSegments = 32

// supersample renders at 2x and downscales for smoother line work.
const supersample = 2

// dxfPoint is a 2D modelspace coordinate.
type dxfPoint struct {
	X, Y float64
}

// dxfEntity is a drawable modelspace entity.
type dxfEntity interface {
	// extend grows the bounding box to include this entity.
	extend(b *dxfBounds)
	// render draws the entity; tr maps modelspace to canvas coordinates.
	render(dc *gg.Context, tr func(dxfPoint) (float64, float64), scale float64)
}

type dxfLine struct {
	From, To dxfPoint
}

func (l dxfLine) extend(b *dxfBounds) {
	b.add(l.From)
	b.add(l.To)
}

func (l dxfLine) render(dc *gg.Context, tr func(dxfPoint) (float64, float64), _ float64) {
	x1, y1 := tr(l.From)
	x2, y2 := tr(l.To)
	dc.DrawLine(x1, y1, x2, y2)
	dc.Stroke()
}

type dxfCircle struct {
	Center dxfPoint
	Radius float64
}

func (c dxfCircle) extend(b *dxfBounds) {
	b.add(dxfPoint{c.Center.X - c.Radius, c.Center.Y - c.Radius})
	b.add(dxfPoint{c.Center.X + c.Radius, c.Center.Y + c.Radius})
}

func (c dxfCircle) render(dc *gg.Context, tr func(dxfPoint) (float64, float64), scale float64) {
	cx, cy := tr(c.Center)
	dc.DrawCircle(cx, cy, c.Radius*scale)
	dc.Stroke()
}

// dxfArc is a circular arc; angles are in degrees, counter-clockwise from
// the positive X axis as DXF defines them.
type dxfArc struct {
	Center     dxfPoint
	Radius     float64
	Start, End float64
}

func (a dxfArc) extend(b *dxfBounds) {
	// Conservative: use the full circle's box. Good enough for fitting a
	// preview canvas.
	dxfCircle{Center: a.Center, Radius: a.Radius}.extend(b)
}

func (a dxfArc) render(dc *gg.Context, tr func(dxfPoint) (float64, float64), _ float64) {
	start := a.Start
	end := a.End
	if end < start {
		end += 360
	}
	// Sample the arc in modelspace and let tr handle the Y flip, which keeps
	// the sweep direction correct without reasoning about canvas orientation.
	for i := 0; i <= arcSegments; i++ {
		angle := (start + (end-start)*float64(i)/arcSegments) * math.Pi / 180
		p := dxfPoint{
			X: a.Center.X + a.Radius*math.Cos(angle),
			Y: a.Center.Y + a.Radius*math.Sin(angle),
		}
		x, y := tr(p)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}

type dxfPolyline struct {
	Points []dxfPoint
	Closed bool
}

func (p dxfPolyline) extend(b *dxfBounds) {
	for _, pt := range p.Points {
		b.add(pt)
	}
}

func (p dxfPolyline) render(dc *gg.Context, tr func(dxfPoint) (float64, float64), _ float64) {
	if len(p.Points) < 2 {
		return
	}
	for i, pt := range p.Points {
		x, y := tr(pt)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	if p.Closed {
		dc.ClosePath()
	}
	dc.Stroke()
}

// dxfBounds tracks the modelspace extent of parsed entities.
type dxfBounds struct {
	minX, minY, maxX, maxY float64
	valid                  bool
}

func (b *dxfBounds) add(p dxfPoint) {
	if !b.valid {
		b.minX, b.maxX = p.X, p.X
		b.minY, b.maxY = p.Y, p.Y
		b.valid = true
		return
	}
	b.minX = math.Min(b.minX, p.X)
	b.maxX = math.Max(b.maxX, p.X)
	b.minY = math.Min(b.minY, p.Y)
	b.maxY = math.Max(b.maxY, p.Y)
}

// renderDXF renders a DXF file's modelspace geometry to a PNG trimmed to
// content bounds and fitted inside maxW x maxH.
//
// Only the 2D entity types relevant for flat cutting designs are understood:
// LINE, CIRCLE, ARC, LWPOLYLINE and classic POLYLINE/VERTEX chains.
func renderDXF(dxfPath, outPath string, maxW, maxH int) error {
	f, err := os.Open(dxfPath)
	if err != nil {
		return fmt.Errorf("open dxf: %w", err)
	}
	defer f.Close()

	entities, err := parseDXFEntities(f)
	if err != nil {
		return fmt.Errorf("parse dxf: %w", err)
	}
	if len(entities) == 0 {
		return fmt.Errorf("no drawable entities in modelspace")
	}

	var bounds dxfBounds
	for _, e := range entities {
		e.extend(&bounds)
	}
	if !bounds.valid {
		return fmt.Errorf("no drawable entities in modelspace")
	}

	spanX := bounds.maxX - bounds.minX
	spanY := bounds.maxY - bounds.minY
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}

	// Pad content bounds slightly, then fit inside the canvas.
	pad := 0.05 * math.Max(spanX, spanY)
	spanX += 2 * pad
	spanY += 2 * pad
	scale := math.Min(float64(maxW)/spanX, float64(maxH)/spanY)

	w := max(1, int(math.Round(spanX*scale)))
	h := max(1, int(math.Round(spanY*scale)))

	// Render supersampled, then downscale for smoother strokes.
	ssScale := scale * supersample
	dc := gg.NewContext(w*supersample, h*supersample)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(2)

	tr := func(p dxfPoint) (float64, float64) {
		// DXF Y points up; the canvas Y points down.
		x := (p.X - bounds.minX + pad) * ssScale
		y := (bounds.maxY - p.Y + pad) * ssScale
		return x, y
	}

	for _, e := range entities {
		e.render(dc, tr, ssScale)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), dc.Image(), dc.Image().Bounds(), xdraw.Src, nil)

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, dst); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// parseDXFEntities reads the ENTITIES section of a DXF file. DXF is a flat
// stream of (group code, value) line pairs; entity records start at group
// code 0.
func parseDXFEntities(f *os.File) ([]dxfEntity, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entities []dxfEntity
	inEntities := false

	// Current entity accumulation state.
	var entityType string
	codes := map[int][]float64{}
	var polyline *dxfPolyline // open POLYLINE awaiting VERTEX records

	flush := func() {
		switch entityType {
		case "LINE":
			entities = append(entities, dxfLine{
				From: dxfPoint{firstOr(codes[10], 0), firstOr(codes[20], 0)},
				To:   dxfPoint{firstOr(codes[11], 0), firstOr(codes[21], 0)},
			})
		case "CIRCLE":
			if r := firstOr(codes[40], 0); r > 0 {
				entities = append(entities, dxfCircle{
					Center: dxfPoint{firstOr(codes[10], 0), firstOr(codes[20], 0)},
					Radius: r,
				})
			}
		case "ARC":
			if r := firstOr(codes[40], 0); r > 0 {
				entities = append(entities, dxfArc{
					Center: dxfPoint{firstOr(codes[10], 0), firstOr(codes[20], 0)},
					Radius: r,
					Start:  firstOr(codes[50], 0),
					End:    firstOr(codes[51], 360),
				})
			}
		case "LWPOLYLINE":
			xs, ys := codes[10], codes[20]
			n := min(len(xs), len(ys))
			if n >= 2 {
				pl := dxfPolyline{Closed: int(firstOr(codes[70], 0))&1 != 0}
				for i := 0; i < n; i++ {
					pl.Points = append(pl.Points, dxfPoint{xs[i], ys[i]})
				}
				entities = append(entities, pl)
			}
		case "POLYLINE":
			polyline = &dxfPolyline{Closed: int(firstOr(codes[70], 0))&1 != 0}
		case "VERTEX":
			if polyline != nil {
				polyline.Points = append(polyline.Points, dxfPoint{
					firstOr(codes[10], 0), firstOr(codes[20], 0),
				})
			}
		case "SEQEND":
			if polyline != nil {
				if len(polyline.Points) >= 2 {
					entities = append(entities, *polyline)
				}
				polyline = nil
			}
		}
		entityType = ""
		codes = map[int][]float64{}
	}

	for scanner.Scan() {
		codeLine := strings.TrimSpace(scanner.Text())
		if !scanner.Scan() {
			break
		}
		valueLine := strings.TrimSpace(scanner.Text())

		code, err := strconv.Atoi(codeLine)
		if err != nil {
			continue
		}

		if code == 0 {
			flush()
			switch valueLine {
			case "SECTION", "ENDSEC", "EOF":
				entityType = ""
				if valueLine == "ENDSEC" {
					inEntities = false
				}
			default:
				if inEntities {
					entityType = valueLine
				}
			}
			continue
		}

		// Section name follows the SECTION marker at group code 2.
		if code == 2 && valueLine == "ENTITIES" {
			inEntities = true
			continue
		}

		if entityType == "" {
			continue
		}
		if v, err := strconv.ParseFloat(valueLine, 64); err == nil {
			codes[code] = append(codes[code], v)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entities, nil
}

func firstOr(vals []float64, fallback float64) float64 {
	if len(vals) == 0 {
		return fallback
	}
	return vals[0]
}
