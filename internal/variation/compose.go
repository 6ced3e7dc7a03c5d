package variation

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
)

// grainAmplitude bounds the per-channel noise delta.
const grainAmplitude = 3

// composer draws decorations. Placement jitter (random line positions, grain,
// glyph placement) comes from rng and is not part of the style key.
type composer struct {
	rng *rand.Rand
}

// decorate draws the ground of d onto s. It runs before the base image is
// composited.
func (c *composer) decorate(s RenderSurface, d StyleDescriptor) error {
	if d.Family == FamilyFrame && !d.Core.FrameCapable() {
		return fmt.Errorf("%s cannot decorate a frame", d.Core)
	}
	b := s.Bounds()
	switch d.Core {
	case CorePlain:
		if d.Family == FamilyFrame {
			c.strokeFrame(s, d.Thickness, Solid{Color: d.ColorAt(0)})
			return nil
		}
		s.Fill(Solid{Color: d.ColorAt(0)})
	case CoreMixed:
		if d.Family == FamilyFrame {
			c.strokeFrame(s, d.Thickness, DiagonalGradient(b, colors(d.Colors)...))
			return nil
		}
		s.Fill(AngledGradient(b, float64(d.Angle), colors(d.Colors)...))
	case CoreStriped:
		p := Pattern{Tile: stripeTile(d)}
		if d.Family == FamilyFrame {
			c.strokeFrame(s, d.Thickness, p)
			return nil
		}
		s.Fill(p)
	case CoreNoise:
		s.Fill(AngledGradient(b, float64(d.Angle), colors(d.Colors)...))
		c.grain(s.Pixels())
	case CoreEmoji:
		s.Fill(Solid{Color: d.ColorAt(0)})
	case CoreLinesVertical, CoreLinesHorizontal, CoreLinesGrid, CoreLinesRandom:
		s.Fill(Solid{Color: White})
		c.lines(s, d)
	default:
		return fmt.Errorf("no decoration for %s", d.Core)
	}
	return nil
}

// strokeFrame paints a white ground and strokes a border of width t
// centered on the rectangle inset by t/2, so it covers exactly the padding.
func (c *composer) strokeFrame(s RenderSurface, t int, p Paint) {
	b := s.Bounds()
	s.Fill(Solid{Color: White})
	half := float64(t) / 2
	s.StrokeRect(
		float64(b.Min.X)+half, float64(b.Min.Y)+half,
		float64(b.Max.X)-half, float64(b.Max.Y)-half,
		float64(t), p,
	)
}

func (c *composer) lines(s RenderSurface, d StyleDescriptor) {
	b := s.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	width := float64(d.LineWidth)
	i := 0
	stroke := func(x0, y0, x1, y1 float64) {
		s.StrokeLine(x0, y0, x1, y1, width, Solid{Color: d.ColorAt(i)})
		i++
	}

	switch d.Core {
	case CoreLinesVertical:
		for _, x := range linePositions(b.Dx(), d.Spacing) {
			stroke(x, 0, x, h)
		}
	case CoreLinesHorizontal:
		for _, y := range linePositions(b.Dy(), d.Spacing) {
			stroke(0, y, w, y)
		}
	case CoreLinesGrid:
		for _, x := range linePositions(b.Dx(), d.Spacing) {
			stroke(x, 0, x, h)
		}
		for _, y := range linePositions(b.Dy(), d.Spacing) {
			stroke(0, y, w, y)
		}
	case CoreLinesRandom:
		reach := math.Hypot(w, h)
		for range randomLineCount(b.Dx(), b.Dy(), d.Spacing) {
			mx, my := c.rng.Float64()*w, c.rng.Float64()*h
			theta := c.rng.Float64() * math.Pi
			dx, dy := math.Cos(theta)*reach, math.Sin(theta)*reach
			stroke(mx-dx, my-dy, mx+dx, my+dy)
		}
	}
}

// grain perturbs every color channel by a uniform delta in
// [-grainAmplitude, grainAmplitude].
func (c *composer) grain(img *image.RGBA) {
	span := 2*grainAmplitude + 1
	for i := 0; i+3 < len(img.Pix); i += 4 {
		for ch := range 3 {
			v := int(img.Pix[i+ch]) + c.rng.IntN(span) - grainAmplitude
			img.Pix[i+ch] = uint8(min(255, max(0, v)))
		}
	}
}

// overlay draws the emoji glyph on top of the composited image.
func (c *composer) overlay(s RenderSurface, d StyleDescriptor) error {
	if d.Core != CoreEmoji {
		return nil
	}
	b := s.Bounds()
	short := min(b.Dx(), b.Dy())
	size := max(8, round(float64(short)*0.05))
	margin := min(30, short/4)

	x := float64(margin) + c.rng.Float64()*float64(max(0, b.Dx()-2*margin))
	y := float64(margin) + c.rng.Float64()*float64(max(0, b.Dy()-2*margin))
	angle := c.rng.Float64()*60 - 30

	g, err := rotatedGlyph(d.Glyph, size, angle)
	if err != nil {
		return err
	}
	gb := g.Bounds()
	s.DrawImage(g, image.Pt(round(x)-gb.Dx()/2, round(y)-gb.Dy()/2))
	return nil
}

// linePositions returns stroke centers spaced evenly across extent, starting
// half a spacing in.
func linePositions(extent, spacing int) []float64 {
	if spacing < 1 {
		spacing = 1
	}
	var out []float64
	for p := spacing / 2; p < extent; p += spacing {
		out = append(out, float64(p))
	}
	return out
}

// strokeCount is how many strokes the line strategy draws on a w×h surface.
func strokeCount(core CoreType, w, h, spacing int) int {
	switch core {
	case CoreLinesVertical:
		return len(linePositions(w, spacing))
	case CoreLinesHorizontal:
		return len(linePositions(h, spacing))
	case CoreLinesGrid:
		return len(linePositions(w, spacing)) + len(linePositions(h, spacing))
	case CoreLinesRandom:
		return randomLineCount(w, h, spacing)
	}
	return 0
}

// stripeTile builds one seamless repeat of the striped pattern.
func stripeTile(d StyleDescriptor) *image.NRGBA {
	n := max(1, len(d.Colors))
	band := max(2, d.Spacing/n)
	size := band * n
	tile := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			var k int
			switch d.Stripe {
			case StripeBlock:
				k = (x/band + y/band) % n
			default:
				k = ((x + y) / band) % n
			}
			tile.SetNRGBA(x, y, d.Colors[k].NRGBA())
		}
	}
	return tile
}

func colors(cs []ColorValue) []color.Color {
	out := make([]color.Color, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}
