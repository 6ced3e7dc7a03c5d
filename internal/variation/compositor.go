package variation

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

const (
	// shadowAlpha is the mask opacity before blurring, 35% of 255.
	shadowAlpha   = 89
	shadowMaxBlur = 12.5
	// shadowWorkSize caps the long side of the mask the blur runs on.
	shadowWorkSize = 400
)

// compositor lays out the surface, runs the composer and encodes the result.
type compositor struct {
	composer *composer
	level    png.CompressionLevel
}

// render produces the encoded variation of src for d. The source pixels are
// composited last (before any overlay) and never modified.
func (c *compositor) render(src image.Image, d StyleDescriptor) (data []byte, w, h int, err error) {
	sb := src.Bounds()
	w, h = sb.Dx(), sb.Dy()
	offset := image.Point{}
	if d.Family == FamilyFrame {
		w += 2 * d.Thickness
		h += 2 * d.Thickness
		offset = image.Pt(d.Thickness, d.Thickness)
	}

	canvas := NewCanvas(w, h, c.level)
	if err := c.composer.decorate(canvas, d); err != nil {
		return nil, 0, 0, err
	}
	footprint := image.Rectangle{Min: offset, Max: offset.Add(sb.Size())}
	// Background variations get no shadow: the source covers the whole surface.
	if d.Family == FamilyFrame {
		dropShadow(canvas.Pixels(), footprint, float64(d.Thickness))
	}
	canvas.DrawImage(src, offset)
	if err := c.composer.overlay(canvas, d); err != nil {
		return nil, 0, 0, err
	}

	var buf bytes.Buffer
	if err := canvas.Encode(&buf); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), w, h, nil
}

// dropShadow darkens a soft halo around footprint. The mask is blurred at
// reduced resolution and scaled back up over dst.
func dropShadow(dst *image.RGBA, footprint image.Rectangle, spread float64) {
	db := dst.Bounds()
	scale := max(1, float64(max(db.Dx(), db.Dy()))/shadowWorkSize)
	mw := max(1, int(float64(db.Dx())/scale))
	mh := max(1, int(float64(db.Dy())/scale))

	sigma := min(shadowMaxBlur, spread/2) / scale
	if sigma < 0.5 {
		return
	}

	mask := imaging.New(mw, mh, color.Transparent)
	inner := image.Rect(
		int(float64(footprint.Min.X)/scale), int(float64(footprint.Min.Y)/scale),
		int(float64(footprint.Max.X)/scale), int(float64(footprint.Max.Y)/scale),
	)
	shade := color.NRGBA{A: shadowAlpha}
	draw.Draw(mask, inner, &image.Uniform{C: shade}, image.Point{}, draw.Src)

	blurred := imaging.Blur(mask, sigma)
	xdraw.ApproxBiLinear.Scale(dst, db, blurred, blurred.Bounds(), xdraw.Over, nil)
}

func encodeLevel(level png.CompressionLevel) png.CompressionLevel {
	switch level {
	case png.DefaultCompression, png.NoCompression, png.BestSpeed, png.BestCompression:
		return level
	}
	return png.BestSpeed
}
