package variation

import (
	"fmt"
	"strconv"
	"strings"
)

// Family is the layout family of a variation.
type Family int

const (
	// FamilyFrame pads the source image with a decorated border.
	FamilyFrame Family = iota
	// FamilyBackground draws the decoration behind the source image at its
	// original dimensions.
	FamilyBackground
)

func (f Family) String() string {
	switch f {
	case FamilyFrame:
		return "frame"
	case FamilyBackground:
		return "background"
	default:
		return "family(" + strconv.Itoa(int(f)) + ")"
	}
}

// CoreType is the decoration strategy, independent of the family.
type CoreType int

const (
	CorePlain CoreType = iota
	CoreMixed
	CoreLinesVertical
	CoreLinesHorizontal
	CoreLinesGrid
	CoreLinesRandom
	CoreStriped
	CoreNoise
	CoreEmoji
)

var coreNames = map[CoreType]string{
	CorePlain:           "plain",
	CoreMixed:           "mixed",
	CoreLinesVertical:   "lines-vertical",
	CoreLinesHorizontal: "lines-horizontal",
	CoreLinesGrid:       "lines-grid",
	CoreLinesRandom:     "lines-random",
	CoreStriped:         "striped",
	CoreNoise:           "noise",
	CoreEmoji:           "emoji",
}

func (c CoreType) String() string {
	if name, ok := coreNames[c]; ok {
		return name
	}
	return "core(" + strconv.Itoa(int(c)) + ")"
}

// IsLines reports whether the strategy draws straight strokes.
func (c CoreType) IsLines() bool {
	switch c {
	case CoreLinesVertical, CoreLinesHorizontal, CoreLinesGrid, CoreLinesRandom:
		return true
	}
	return false
}

// frameCores are the strategies a "frame" request may resolve to.
var frameCores = []CoreType{
	CorePlain,
	CoreMixed,
	CoreStriped,
	CoreLinesVertical,
	CoreLinesHorizontal,
	CoreLinesGrid,
	CoreLinesRandom,
}

// FrameCapable reports whether the strategy can decorate a frame border.
func (c CoreType) FrameCapable() bool {
	for _, fc := range frameCores {
		if fc == c {
			return true
		}
	}
	return false
}

// ColorMode controls how the descriptor's colors map onto strokes.
type ColorMode int

const (
	// ColorSingle uses one color for everything.
	ColorSingle ColorMode = iota
	// ColorAlternate alternates two colors by stroke index.
	ColorAlternate
	// ColorMulti uses a distinct color per stroke or stop.
	ColorMulti
)

func (m ColorMode) String() string {
	switch m {
	case ColorSingle:
		return "single"
	case ColorAlternate:
		return "alternate"
	case ColorMulti:
		return "multi"
	default:
		return "colormode(" + strconv.Itoa(int(m)) + ")"
	}
}

// StripeKind is the tile layout of the striped strategy.
type StripeKind int

const (
	StripeNone StripeKind = iota
	StripeDiagonal
	StripeBlock
)

func (k StripeKind) String() string {
	switch k {
	case StripeDiagonal:
		return "diagonal"
	case StripeBlock:
		return "block"
	default:
		return "none"
	}
}

// StyleKey is the canonical deduplication identity of a StyleDescriptor.
type StyleKey string

// StyleDescriptor holds every structural parameter of one variation.
// Fields that a strategy does not use stay at their zero value.
type StyleDescriptor struct {
	Family    Family
	Core      CoreType
	ColorMode ColorMode
	Colors    []ColorValue

	// Thickness is the frame border width in pixels (frame family only).
	Thickness int
	// Angle is the gradient direction in degrees (mixed and noise).
	Angle int
	// Stripe is the tile layout (striped only).
	Stripe StripeKind
	// Spacing and LineWidth shape the line strategies.
	Spacing   int
	LineWidth int
	// Glyph indexes the emoji glyph set; -1 when unused.
	Glyph int
}

// Key canonicalizes the descriptor. Two descriptors that differ in any
// field produce different keys.
func (d StyleDescriptor) Key() StyleKey {
	var sb strings.Builder
	sb.Grow(64 + 8*len(d.Colors))
	sb.WriteString(d.Family.String())
	sb.WriteByte('/')
	sb.WriteString(d.Core.String())
	sb.WriteByte('/')
	sb.WriteString(d.ColorMode.String())
	sb.WriteByte('/')
	for i, c := range d.Colors {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c.Hex())
	}
	fmt.Fprintf(&sb, "/t%d/a%d/%s/s%d/w%d/g%d",
		d.Thickness, d.Angle, d.Stripe, d.Spacing, d.LineWidth, d.Glyph)
	return StyleKey(sb.String())
}

// ColorAt returns the stroke color for the i-th stroke according to the
// descriptor's color mode.
func (d StyleDescriptor) ColorAt(i int) ColorValue {
	if len(d.Colors) == 0 {
		return White
	}
	switch d.ColorMode {
	case ColorAlternate:
		return d.Colors[i%2%len(d.Colors)]
	case ColorMulti:
		return d.Colors[i%len(d.Colors)]
	default:
		return d.Colors[0]
	}
}
