package variation

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/srwiley/rasterx"
)

// RenderSurface is the drawing capability the composer and compositor need.
type RenderSurface interface {
	Bounds() image.Rectangle
	// Fill paints the whole surface.
	Fill(p Paint)
	// StrokeRect strokes the rectangle outline with the given width, centered
	// on the outline.
	StrokeRect(minX, minY, maxX, maxY, width float64, p Paint)
	// StrokeLine draws a butt-capped straight segment.
	StrokeLine(x0, y0, x1, y1, width float64, p Paint)
	// DrawImage composites img over the surface with its origin at `at`.
	DrawImage(img image.Image, at image.Point)
	// Pixels exposes the pixel buffer for direct manipulation.
	Pixels() *image.RGBA
	Encode(w io.Writer) error
}

// Paint is a fill or stroke style.
type Paint interface {
	source(bounds image.Rectangle) interface{}
}

// Solid paints a single color.
type Solid struct {
	Color color.Color
}

func (s Solid) source(image.Rectangle) interface{} { return s.Color }

// LinearGradient paints an evenly spaced gradient from (X0,Y0) to (X1,Y1)
// in surface coordinates. Colors beyond the endpoints are padded.
type LinearGradient struct {
	X0, Y0, X1, Y1 float64
	Colors         []color.Color
}

func (g LinearGradient) source(bounds image.Rectangle) interface{} {
	if len(g.Colors) == 1 {
		return g.Colors[0]
	}
	stops := make([]rasterx.GradStop, len(g.Colors))
	for i, c := range g.Colors {
		stops[i] = rasterx.GradStop{
			StopColor: c,
			Offset:    float64(i) / float64(len(g.Colors)-1),
			Opacity:   1,
		}
	}
	grad := rasterx.Gradient{
		Points: [5]float64{g.X0, g.Y0, g.X1, g.Y1},
		Stops:  stops,
		Matrix: rasterx.Identity,
		Units:  rasterx.UserSpaceOnUse,
	}
	grad.Bounds.W = math.Max(1, float64(bounds.Dx()))
	grad.Bounds.H = math.Max(1, float64(bounds.Dy()))
	return grad.GetColorFunction(1)
}

// AngledGradient returns a gradient through the center of bounds whose axis
// points along angleDeg and whose endpoints touch the surface corners.
func AngledGradient(bounds image.Rectangle, angleDeg float64, colors ...color.Color) LinearGradient {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	rad := angleDeg * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)
	half := (math.Abs(dx)*w + math.Abs(dy)*h) / 2
	cx, cy := float64(bounds.Min.X)+w/2, float64(bounds.Min.Y)+h/2
	return LinearGradient{
		X0: cx - dx*half, Y0: cy - dy*half,
		X1: cx + dx*half, Y1: cy + dy*half,
		Colors: colors,
	}
}

// DiagonalGradient spans bounds from the top-left to the bottom-right corner.
func DiagonalGradient(bounds image.Rectangle, colors ...color.Color) LinearGradient {
	return LinearGradient{
		X0: float64(bounds.Min.X), Y0: float64(bounds.Min.Y),
		X1: float64(bounds.Max.X), Y1: float64(bounds.Max.Y),
		Colors: colors,
	}
}

// Pattern repeats Tile across the surface, anchored at the origin.
type Pattern struct {
	Tile image.Image
}

func (p Pattern) source(image.Rectangle) interface{} {
	tb := p.Tile.Bounds()
	tw, th := tb.Dx(), tb.Dy()
	return rasterx.ColorFunc(func(x, y int) color.Color {
		return p.Tile.At(tb.Min.X+mod(x, tw), tb.Min.Y+mod(y, th))
	})
}

func mod(a, n int) int {
	if n <= 0 {
		return 0
	}
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
