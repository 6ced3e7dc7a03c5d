package variation

import (
	"image/color"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

// HSV sampling window for allocated colors.
const (
	minSaturation = 0.55
	maxSaturation = 0.95
	minValue      = 0.60
	maxValue      = 0.90
)

// DefaultColorAttempts bounds rejection sampling inside Allocate.
const DefaultColorAttempts = 500

// ColorValue is an 8-bit sRGB color.
type ColorValue struct {
	R, G, B uint8
}

// White is the ground of padded frames.
var White = ColorValue{R: 0xff, G: 0xff, B: 0xff}

// Hex returns the lowercase #rrggbb form.
func (c ColorValue) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

// RGBA implements color.Color as an opaque color.
func (c ColorValue) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// NRGBA returns the opaque image/color form.
func (c ColorValue) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Allocator issues colors for one batch and remembers what it issued.
// It is not safe for concurrent use; each batch owns its own Allocator.
type Allocator struct {
	rng         *rand.Rand
	maxAttempts int
	used        map[ColorValue]struct{}
	fallbacks   int
}

// NewAllocator returns an Allocator that rejects previously issued colors up
// to maxAttempts times before accepting a collision.
func NewAllocator(rng *rand.Rand, maxAttempts int) *Allocator {
	if maxAttempts < 1 {
		maxAttempts = DefaultColorAttempts
	}
	return &Allocator{
		rng:         rng,
		maxAttempts: maxAttempts,
		used:        make(map[ColorValue]struct{}),
	}
}

// Allocate returns a color not issued before in this batch. When the attempt
// budget runs out it returns a fresh sample that may collide.
func (a *Allocator) Allocate() ColorValue {
	c, ok := tryGenerate(a.maxAttempts, a.sample, func(c ColorValue) bool {
		_, taken := a.used[c]
		return !taken
	})
	if !ok {
		a.fallbacks++
		c = a.sample()
	}
	a.used[c] = struct{}{}
	return c
}

// AllocateN allocates n colors in order.
func (a *Allocator) AllocateN(n int) []ColorValue {
	out := make([]ColorValue, n)
	for i := range out {
		out[i] = a.Allocate()
	}
	return out
}

// Issued reports how many distinct colors have been handed out.
func (a *Allocator) Issued() int { return len(a.used) }

// Fallbacks reports how many allocations exhausted the attempt budget.
func (a *Allocator) Fallbacks() int { return a.fallbacks }

func (a *Allocator) sample() ColorValue {
	h := a.rng.Float64() * 360
	s := minSaturation + a.rng.Float64()*(maxSaturation-minSaturation)
	v := minValue + a.rng.Float64()*(maxValue-minValue)
	r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
	return ColorValue{R: r, G: g, B: b}
}
