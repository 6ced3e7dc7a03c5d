package variation

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

// Canvas is a RenderSurface backed by an RGBA buffer and the rasterx
// anti-aliasing scanner.
type Canvas struct {
	img     *image.RGBA
	scanner *rasterx.ScannerGV
	filler  *rasterx.Filler
	dasher  *rasterx.Dasher
	encoder png.Encoder
}

var _ RenderSurface = (*Canvas)(nil)

// NewCanvas allocates a transparent w×h canvas.
func NewCanvas(w, h int, level png.CompressionLevel) *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	return &Canvas{
		img:     img,
		scanner: scanner,
		filler:  rasterx.NewFiller(w, h, scanner),
		dasher:  rasterx.NewDasher(w, h, scanner),
		encoder: png.Encoder{CompressionLevel: level},
	}
}

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

func (c *Canvas) Pixels() *image.RGBA { return c.img }

func (c *Canvas) Fill(p Paint) {
	b := c.img.Bounds()
	c.scanner.SetColor(p.source(b))
	rasterx.AddRect(float64(b.Min.X), float64(b.Min.Y), float64(b.Max.X), float64(b.Max.Y), 0, c.filler)
	c.filler.Draw()
	c.filler.Clear()
}

func (c *Canvas) StrokeRect(minX, minY, maxX, maxY, width float64, p Paint) {
	c.setStroke(width, rasterx.Miter)
	c.scanner.SetColor(p.source(c.img.Bounds()))
	rasterx.AddRect(minX, minY, maxX, maxY, 0, c.dasher)
	c.dasher.Draw()
	c.dasher.Clear()
}

func (c *Canvas) StrokeLine(x0, y0, x1, y1, width float64, p Paint) {
	c.setStroke(width, rasterx.Round)
	c.scanner.SetColor(p.source(c.img.Bounds()))
	c.dasher.Start(rasterx.ToFixedP(x0, y0))
	c.dasher.Line(rasterx.ToFixedP(x1, y1))
	c.dasher.Stop(false)
	c.dasher.Draw()
	c.dasher.Clear()
}

func (c *Canvas) DrawImage(img image.Image, at image.Point) {
	r := img.Bounds().Sub(img.Bounds().Min).Add(at)
	draw.Draw(c.img, r, img, img.Bounds().Min, draw.Over)
}

// Encode writes the canvas as PNG.
func (c *Canvas) Encode(w io.Writer) error {
	if err := c.encoder.Encode(w, c.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (c *Canvas) setStroke(width float64, join rasterx.JoinMode) {
	c.dasher.SetStroke(
		fixed.Int26_6(width*64),
		fixed.Int26_6(4*64),
		rasterx.ButtCap, rasterx.ButtCap,
		rasterx.FlatGap, join,
		nil, 0,
	)
}
