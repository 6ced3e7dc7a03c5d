package variation

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"frame", ModeFrame, false},
		{" Plain ", ModePlain, false},
		{"MIXED", ModeMixed, false},
		{"bg", ModeMixed, false},
		{"striped", ModeStriped, false},
		{"noise", ModeNoise, false},
		{"lines-vertical", ModeLinesVertical, false},
		{"lines-horizontal", ModeLinesHorizontal, false},
		{"lines-grid", ModeLinesGrid, false},
		{"lines-random", ModeLinesRandom, false},
		{"emoji", ModeEmoji, false},
		{"frame-plain", ModeFramePlain, false},
		{"frame-lines-random", ModeFrameLinesRandom, false},
		{"", ModeUnknown, true},
		{"lines", ModeUnknown, true},
		{"frame-emoji", ModeUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownMode) {
				t.Errorf("error %v does not wrap ErrUnknownMode", err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMode_StringRoundTrip(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", m.String(), got, err, m)
		}
	}
	if ModeUnknown.String() != "unknown" {
		t.Errorf("ModeUnknown.String() = %q", ModeUnknown.String())
	}
}

func TestMode_Resolve(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))

	seen := make(map[CoreType]bool)
	for range 500 {
		fam, core := ModeFrame.resolve(rng)
		if fam != FamilyFrame {
			t.Fatalf("frame resolved to family %v", fam)
		}
		if !core.FrameCapable() {
			t.Fatalf("frame resolved to non-frame strategy %v", core)
		}
		seen[core] = true
	}
	for _, c := range frameCores {
		if !seen[c] {
			t.Errorf("frame never resolved to %v in 500 draws", c)
		}
	}

	tests := []struct {
		mode Mode
		fam  Family
		core CoreType
	}{
		{ModeUnknown, FamilyBackground, CoreMixed},
		{Mode(999), FamilyBackground, CoreMixed},
		{ModePlain, FamilyBackground, CorePlain},
		{ModeEmoji, FamilyBackground, CoreEmoji},
		{ModeLinesGrid, FamilyBackground, CoreLinesGrid},
		{ModeFrameStriped, FamilyFrame, CoreStriped},
	}
	for _, tt := range tests {
		fam, core := tt.mode.resolve(rng)
		if fam != tt.fam || core != tt.core {
			t.Errorf("%v.resolve() = (%v, %v), want (%v, %v)", tt.mode, fam, core, tt.fam, tt.core)
		}
	}
}

func TestFrameCapable(t *testing.T) {
	if CoreEmoji.FrameCapable() || CoreNoise.FrameCapable() {
		t.Error("emoji and noise must be background-only")
	}
	if !CoreLinesRandom.FrameCapable() {
		t.Error("lines-random should be frame capable")
	}
}
