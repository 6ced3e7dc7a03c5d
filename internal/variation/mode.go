package variation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// ErrUnknownMode is returned by ParseMode for unrecognized values, and by
// Generate when strict mode validation is enabled.
var ErrUnknownMode = errors.New("unknown mode")

// Mode selects what a batch produces. ModeFrame resolves to a random frame
// strategy per item; every other mode pins a single strategy.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeFrame
	ModePlain
	ModeMixed
	ModeStriped
	ModeNoise
	ModeLinesVertical
	ModeLinesHorizontal
	ModeLinesGrid
	ModeLinesRandom
	ModeEmoji
	ModeFramePlain
	ModeFrameMixed
	ModeFrameStriped
	ModeFrameLinesVertical
	ModeFrameLinesHorizontal
	ModeFrameLinesGrid
	ModeFrameLinesRandom
)

// FallbackMode is what ModeUnknown renders as in permissive mode.
const FallbackMode = ModeMixed

type modeSpec struct {
	name   string
	family Family
	core   CoreType
}

var modeSpecs = map[Mode]modeSpec{
	ModeFrame:                {"frame", FamilyFrame, -1},
	ModePlain:                {"plain", FamilyBackground, CorePlain},
	ModeMixed:                {"mixed", FamilyBackground, CoreMixed},
	ModeStriped:              {"striped", FamilyBackground, CoreStriped},
	ModeNoise:                {"noise", FamilyBackground, CoreNoise},
	ModeLinesVertical:        {"lines-vertical", FamilyBackground, CoreLinesVertical},
	ModeLinesHorizontal:      {"lines-horizontal", FamilyBackground, CoreLinesHorizontal},
	ModeLinesGrid:            {"lines-grid", FamilyBackground, CoreLinesGrid},
	ModeLinesRandom:          {"lines-random", FamilyBackground, CoreLinesRandom},
	ModeEmoji:                {"emoji", FamilyBackground, CoreEmoji},
	ModeFramePlain:           {"frame-plain", FamilyFrame, CorePlain},
	ModeFrameMixed:           {"frame-mixed", FamilyFrame, CoreMixed},
	ModeFrameStriped:         {"frame-striped", FamilyFrame, CoreStriped},
	ModeFrameLinesVertical:   {"frame-lines-vertical", FamilyFrame, CoreLinesVertical},
	ModeFrameLinesHorizontal: {"frame-lines-horizontal", FamilyFrame, CoreLinesHorizontal},
	ModeFrameLinesGrid:       {"frame-lines-grid", FamilyFrame, CoreLinesGrid},
	ModeFrameLinesRandom:     {"frame-lines-random", FamilyFrame, CoreLinesRandom},
}

var modeAliases = map[string]Mode{
	"bg": ModeMixed,
}

// Modes lists every recognized mode in declaration order.
func Modes() []Mode {
	out := make([]Mode, 0, len(modeSpecs))
	for m := ModeFrame; m <= ModeFrameLinesRandom; m++ {
		out = append(out, m)
	}
	return out
}

func (m Mode) String() string {
	if s, ok := modeSpecs[m]; ok {
		return s.name
	}
	return "unknown"
}

// ParseMode maps a mode name to a Mode. Case and surrounding whitespace are
// ignored. Unrecognized names return ModeUnknown and an error wrapping
// ErrUnknownMode; permissive callers may keep the ModeUnknown value and let
// the generator fall back to FallbackMode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if m, ok := modeAliases[name]; ok {
		return m, nil
	}
	for m, spec := range modeSpecs {
		if spec.name == name {
			return m, nil
		}
	}
	return ModeUnknown, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Family reports the layout family the mode renders in.
func (m Mode) Family() Family {
	if s, ok := modeSpecs[m]; ok {
		return s.family
	}
	return modeSpecs[FallbackMode].family
}

// resolve picks the concrete family and strategy for one item.
func (m Mode) resolve(rng *rand.Rand) (Family, CoreType) {
	switch m {
	case ModeUnknown:
		return FallbackMode.resolve(rng)
	case ModeFrame:
		return FamilyFrame, frameCores[rng.IntN(len(frameCores))]
	}
	s, ok := modeSpecs[m]
	if !ok {
		return FallbackMode.resolve(rng)
	}
	return s.family, s.core
}
