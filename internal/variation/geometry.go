package variation

import (
	"math"
	"math/rand/v2"
)

// Range is an inclusive integer interval.
type Range struct {
	Min, Max int
}

// Draw returns a value uniformly distributed over [Min, Max].
func (r Range) Draw(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.IntN(r.Max-r.Min+1)
}

// Geometry holds the size-dependent bounds for one source image.
type Geometry struct {
	Thickness Range
	Spacing   Range
	LineWidth Range
}

// PlanGeometry derives decoration bounds from the source dimensions.
func PlanGeometry(w, h int) Geometry {
	short := float64(min(w, h))

	minT := max(4, round(short*0.02))
	maxT := max(minT+1, round(short*0.12))

	minS := max(8, round(short*0.03))
	maxS := max(minS+1, round(short*0.10))

	minW := max(1, round(short*0.004))
	maxW := max(minW+1, round(short*0.02))
	// Strokes never fill their whole slot.
	maxW = min(maxW, max(minW, minS/2))

	return Geometry{
		Thickness: Range{Min: minT, Max: maxT},
		Spacing:   Range{Min: minS, Max: maxS},
		LineWidth: Range{Min: minW, Max: maxW},
	}
}

// randomLineCount is how many strokes the random-lines strategy draws.
func randomLineCount(w, h, spacing int) int {
	if spacing < 1 {
		spacing = 1
	}
	return max(10, round(float64(w+h)/float64(spacing)))
}

func round(f float64) int { return int(math.Round(f)) }
