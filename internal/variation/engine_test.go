package variation

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testSource(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func seed(v uint64) *uint64 { return &v }

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	return img
}

// assertSourceIntact checks that src appears unmodified in out at offset.
func assertSourceIntact(t *testing.T, src *image.RGBA, out image.Image, offset image.Point) {
	t.Helper()
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			want := src.RGBAAt(x, y)
			r, g, bl, a := out.At(x+offset.X, y+offset.Y).RGBA()
			got := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: uint8(a >> 8)}
			if got != want {
				t.Fatalf("source pixel (%d,%d) altered: got %v want %v", x, y, got, want)
			}
		}
	}
}

func TestGenerate_PlainScenario(t *testing.T) {
	src := testSource(800, 600)
	g := NewGenerator(DefaultOptions())

	batch, err := g.Generate(context.Background(), Request{Source: src, Mode: ModePlain, Count: 5, Seed: seed(1)}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(batch.Variations) != 5 {
		t.Fatalf("got %d variations, want 5", len(batch.Variations))
	}

	keys := make(map[StyleKey]bool)
	fills := make(map[ColorValue]bool)
	for i, v := range batch.Variations {
		if v.Index != i+1 {
			t.Errorf("variation %d has Index %d", i, v.Index)
		}
		if keys[v.Key] {
			t.Errorf("duplicate key %s", v.Key)
		}
		keys[v.Key] = true
		if v.Style.Core != CorePlain || len(v.Style.Colors) != 1 {
			t.Errorf("variation %d style = %+v, want single-color plain", i, v.Style)
		}
		fills[v.Style.Colors[0]] = true

		img := decodePNG(t, v.Image)
		if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
			t.Errorf("variation %d is %v, want 800x600", i, img.Bounds().Size())
		}
		assertSourceIntact(t, src, img, image.Point{})
	}
	if len(fills) != 5 {
		t.Errorf("got %d distinct fill colors, want 5", len(fills))
	}
	if batch.Stats.Colors < len(fills) {
		t.Errorf("Stats.Colors = %d, want at least %d", batch.Stats.Colors, len(fills))
	}
}

func TestGenerate_FrameScenario(t *testing.T) {
	src := testSource(400, 400)
	g := NewGenerator(DefaultOptions())

	batch, err := g.Generate(context.Background(), Request{Source: src, Mode: ModeFrame, Count: 3, Seed: seed(2)}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(batch.Variations) != 3 {
		t.Fatalf("got %d variations, want 3", len(batch.Variations))
	}
	for i, v := range batch.Variations {
		th := v.Style.Thickness
		if th < 8 || th > 48 {
			t.Errorf("variation %d thickness %d outside [8, 48]", i, th)
		}
		if v.Style.Family != FamilyFrame || !v.Style.Core.FrameCapable() {
			t.Errorf("variation %d style %s/%s is not a frame", i, v.Style.Family, v.Style.Core)
		}
		img := decodePNG(t, v.Image)
		want := image.Pt(400+2*th, 400+2*th)
		if img.Bounds().Size() != want || v.Width != want.X || v.Height != want.Y {
			t.Errorf("variation %d is %v (reported %dx%d), want %v", i, img.Bounds().Size(), v.Width, v.Height, want)
		}
		assertSourceIntact(t, src, img, image.Pt(th, th))
	}
}

func TestGenerate_EveryMode(t *testing.T) {
	src := testSource(64, 48)
	g := NewGenerator(DefaultOptions())

	for _, m := range Modes() {
		t.Run(m.String(), func(t *testing.T) {
			batch, err := g.Generate(context.Background(), Request{Source: src, Mode: m, Count: 4, Seed: seed(3)}, nil)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if len(batch.Variations) != 4 {
				t.Fatalf("got %d variations, want 4", len(batch.Variations))
			}
			seen := make(map[StyleKey]bool)
			for _, v := range batch.Variations {
				if seen[v.Key] && !v.Duplicate {
					t.Errorf("key %s repeated without being flagged", v.Key)
				}
				seen[v.Key] = true

				img := decodePNG(t, v.Image)
				want := image.Pt(64, 48)
				if m.Family() == FamilyFrame {
					want = want.Add(image.Pt(2*v.Style.Thickness, 2*v.Style.Thickness))
				}
				if img.Bounds().Size() != want {
					t.Errorf("size %v, want %v", img.Bounds().Size(), want)
				}
			}
		})
	}
}

func TestGenerate_Progress(t *testing.T) {
	src := testSource(40, 30)
	g := NewGenerator(DefaultOptions())

	var got []Progress
	batch, err := g.Generate(context.Background(), Request{Source: src, Mode: ModeMixed, Count: 4, Seed: seed(4)},
		func(p Progress) { got = append(got, p) })
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d progress events, want 4", len(got))
	}
	for i, p := range got {
		if p.Index != i+1 || p.Total != 4 {
			t.Errorf("event %d = {Index:%d Total:%d}", i, p.Index, p.Total)
		}
		if want := float64(i+1) * 25; p.Percent != want {
			t.Errorf("event %d percent = %v, want %v", i, p.Percent, want)
		}
		if p.Variation == nil || p.Variation.Key != batch.Variations[i].Key {
			t.Errorf("event %d does not carry variation %d", i, i+1)
		}
	}
}

func TestGenerate_Cancellation(t *testing.T) {
	src := testSource(40, 30)
	g := NewGenerator(DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batch, err := g.Generate(ctx, Request{Source: src, Mode: ModePlain, Count: 50, Seed: seed(5)},
		func(p Progress) {
			if p.Index == 2 {
				cancel()
			}
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if batch == nil || len(batch.Variations) != 2 {
		t.Fatalf("partial batch = %v, want 2 variations", batch)
	}
	if batch.Stats.Accepted != 2 {
		t.Errorf("Stats.Accepted = %d, want 2", batch.Stats.Accepted)
	}
}

func TestGenerate_UnknownMode(t *testing.T) {
	src := testSource(20, 20)

	t.Run("permissive falls back to mixed", func(t *testing.T) {
		g := NewGenerator(DefaultOptions())
		batch, err := g.Generate(context.Background(), Request{Source: src, Mode: ModeUnknown, Count: 2, Seed: seed(6)}, nil)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if batch.Mode != ModeMixed {
			t.Errorf("batch mode = %v, want mixed", batch.Mode)
		}
		for _, v := range batch.Variations {
			if v.Style.Core != CoreMixed || v.Style.Family != FamilyBackground {
				t.Errorf("style = %s/%s, want background/mixed", v.Style.Family, v.Style.Core)
			}
		}
	})

	t.Run("strict rejects", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Strict = true
		_, err := NewGenerator(opts).Generate(context.Background(), Request{Source: src, Mode: ModeUnknown, Count: 2}, nil)
		if !errors.Is(err, ErrUnknownMode) {
			t.Errorf("err = %v, want ErrUnknownMode", err)
		}
	})
}

func TestGenerate_InvalidRequest(t *testing.T) {
	g := NewGenerator(Options{})
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"zero count", Request{Source: testSource(4, 4), Mode: ModePlain, Count: 0}, ErrInvalidCount},
		{"negative count", Request{Source: testSource(4, 4), Mode: ModePlain, Count: -3}, ErrInvalidCount},
		{"nil source", Request{Mode: ModePlain, Count: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Generate(context.Background(), tt.req, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerate_SeedIsReproducible(t *testing.T) {
	src := testSource(32, 32)
	g := NewGenerator(DefaultOptions())
	run := func() []StyleKey {
		b, err := g.Generate(context.Background(), Request{Source: src, Mode: ModeFrame, Count: 6, Seed: seed(42)}, nil)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		keys := make([]StyleKey, len(b.Variations))
		for i, v := range b.Variations {
			keys[i] = v.Key
		}
		return keys
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("key %d differs between seeded runs: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestGenerate_ExhaustionAcceptsDuplicate(t *testing.T) {
	// With one style attempt per item every candidate is taken as drawn; the
	// duplicate flags must agree with the stats either way.
	opts := DefaultOptions()
	opts.StyleAttempts = 1
	g := NewGenerator(opts)

	batch, err := g.Generate(context.Background(), Request{Source: testSource(8, 8), Mode: ModePlain, Count: 30, Seed: seed(8)}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(batch.Variations) != 30 {
		t.Fatalf("got %d variations, want 30", len(batch.Variations))
	}
	dups := 0
	for _, v := range batch.Variations {
		if v.Duplicate {
			dups++
		}
	}
	if dups != batch.Stats.Duplicates {
		t.Errorf("flagged %d duplicates, stats report %d", dups, batch.Stats.Duplicates)
	}
}

func TestGenerate_EmojiGlyphCycles(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	batch, err := g.Generate(context.Background(), Request{Source: testSource(80, 80), Mode: ModeEmoji, Count: GlyphCount() + 2, Seed: seed(9)}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, v := range batch.Variations {
		if v.Style.Glyph != i%GlyphCount() {
			t.Errorf("variation %d glyph = %d, want %d", i, v.Style.Glyph, i%GlyphCount())
		}
	}
}

func TestPlanner_LinesDescriptors(t *testing.T) {
	rng := newRand(seed(21))
	p := &planner{rng: rng, alloc: NewAllocator(rng, DefaultColorAttempts), geo: PlanGeometry(300, 200), w: 300, h: 200}

	for i := range 30 {
		d := p.next(ModeLinesVertical, i)
		if !d.Core.IsLines() || d.Spacing < 1 || d.LineWidth < 1 || d.Glyph != -1 {
			t.Fatalf("item %d descriptor = %+v", i, d)
		}
		want := 1
		switch d.ColorMode {
		case ColorAlternate:
			want = 2
		case ColorMulti:
			want = max(1, strokeCount(CoreLinesVertical, 300, 200, d.Spacing))
		}
		if len(d.Colors) != want {
			t.Errorf("item %d: %s mode got %d colors, want %d", i, d.ColorMode, len(d.Colors), want)
		}
	}
	if CorePlain.IsLines() || CoreStriped.IsLines() {
		t.Error("plain and striped are not line strategies")
	}
}
