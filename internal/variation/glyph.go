package variation

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// glyphs is the emoji overlay set, cycled by output position:
// fire, heart eyes, sunglasses, heart, sparkles, collision, star, party.
var glyphs = []string{
	`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<path fill="#ff5a00" d="M32 4 C40 18 52 26 50 42 C48 54 40 60 32 60 C24 60 14 54 14 42 C14 30 24 24 26 14 C30 22 34 24 32 4 Z"/>
<path fill="#ffd000" d="M32 30 C38 38 42 44 40 50 C38 56 26 56 24 50 C22 44 28 40 32 30 Z"/>
</svg>`,
	`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<circle cx="32" cy="32" r="28" fill="#ffcc33"/>
<path fill="#e8184a" d="M22 32 L13 23 A5 5 0 0 1 22 18 A5 5 0 0 1 31 23 Z"/>
<path fill="#e8184a" d="M42 32 L33 23 A5 5 0 0 1 42 18 A5 5 0 0 1 51 23 Z"/>
<path fill="#7a3b00" d="M18 40 Q32 56 46 40 Z"/>
</svg>`,
	`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<circle cx="32" cy="32" r="28" fill="#ffcc33"/>
<rect x="10" y="22" width="20" height="11" rx="3" fill="#222"/>
<rect x="34" y="22" width="20" height="11" rx="3" fill="#222"/>
<rect x="28" y="24" width="8" height="3" fill="#222"/>
<path fill="none" stroke="#7a3b00" stroke-width="3" d="M22 44 Q32 52 42 44"/>
</svg>`,
	`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<path fill="#e8184a" d="M32 56 L8 32 A12 12 0 0 1 32 14 A12 12 0 0 1 56 32 Z"/>
</svg>`,
	`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<path fill="#ffc400" d="M28 8 L33 27 L52 32 L33 37 L28 56 L23 37 L4 32 L23 27 Z"/>
<path fill="#ffe066" d="M50 4 L52 11 L59 13 L52 15 L50 22 L48 15 L41 13 L48 11 Z"/>
<path fill="#ffe066" d="M50 42 L51.5 47.5 L57 49 L51.5 50.5 L50 56 L48.5 50.5 L43 49 L48.5 47.5 Z"/>
</svg>`,
	`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<polygon fill="#ff6b1a" points="62,32 44.9,37.4 53.2,53.2 37.4,44.9 32,62 26.6,44.9 10.8,53.2 19.1,37.4 2,32 19.1,26.6 10.8,10.8 26.6,19.1 32,2 37.4,19.1 53.2,10.8 44.9,26.6"/>
<circle cx="32" cy="32" r="9" fill="#ffd23f"/>
</svg>`,
	`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<polygon fill="#ffbf00" points="32,4 39.05,22.29 58.63,23.35 43.41,35.71 48.46,54.65 32,44 15.54,54.65 20.59,35.71 5.37,23.35 24.95,22.29"/>
</svg>`,
	`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<polygon fill="#f4a300" points="6,58 20,18 46,44"/>
<polygon fill="#c1440e" points="6,58 13,38 26,51"/>
<circle cx="40" cy="12" r="4" fill="#e8184a"/>
<circle cx="54" cy="22" r="3" fill="#2f9be8"/>
<circle cx="50" cy="8" r="3" fill="#3cc26b"/>
<rect x="30" y="26" width="6" height="3" fill="#8e44ad"/>
<rect x="52" y="36" width="6" height="3" fill="#ffcc33"/>
</svg>`,
}

// GlyphCount is the size of the overlay glyph set.
func GlyphCount() int { return len(glyphs) }

// renderGlyph rasterizes glyph idx into a size×size transparent image.
// Icons are parsed per call because SetTarget mutates them.
func renderGlyph(idx, size int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(glyphs[mod(idx, len(glyphs))]))
	if err != nil {
		return nil, fmt.Errorf("parse glyph %d: %w", idx, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

// rotatedGlyph renders the glyph and rotates it counter-clockwise by
// angleDeg, growing the bounds to fit.
func rotatedGlyph(idx, size int, angleDeg float64) (*image.NRGBA, error) {
	g, err := renderGlyph(idx, size)
	if err != nil {
		return nil, err
	}
	return imaging.Rotate(g, angleDeg, color.Transparent), nil
}
