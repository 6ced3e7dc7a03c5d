// Package variation generates batches of uniquely styled decorated renderings
// of a single source photo.
package variation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultStyleAttempts bounds the per-item search for an unused style.
const DefaultStyleAttempts = 200

// ErrInvalidCount is returned when a request asks for fewer than one item.
var ErrInvalidCount = errors.New("count must be at least 1")

// Options tune a Generator. The zero value is usable.
type Options struct {
	StyleAttempts int
	ColorAttempts int
	// Strict rejects ModeUnknown with ErrUnknownMode instead of falling back.
	Strict      bool
	Compression png.CompressionLevel
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		StyleAttempts: DefaultStyleAttempts,
		ColorAttempts: DefaultColorAttempts,
		Compression:   png.BestSpeed,
	}
}

// Request describes one batch.
type Request struct {
	// ID labels the batch in logs; a random one is assigned when empty.
	ID     string
	Source image.Image
	Mode   Mode
	Count  int
	// Seed makes the batch reproducible when set.
	Seed *uint64
}

// Variation is one accepted output. Index is 1-based generation order.
type Variation struct {
	Index  int
	Image  []byte
	Key    StyleKey
	Style  StyleDescriptor
	Width  int
	Height int
	// Duplicate is set when the style search was exhausted and the item
	// reuses a key already present in the batch.
	Duplicate bool
}

// Progress is reported after every accepted variation.
type Progress struct {
	Index     int
	Total     int
	Percent   float64
	Variation *Variation
}

// Stats summarizes a batch run.
type Stats struct {
	Accepted       int           `json:"accepted"`
	Rejected       int           `json:"rejected"`
	Duplicates     int           `json:"duplicates"`
	ColorFallbacks int           `json:"colorFallbacks"`
	Colors         int           `json:"colors"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Batch is the result of Generate.
type Batch struct {
	ID         string
	Mode       Mode
	Variations []Variation
	Stats      Stats
}

// Generator runs batches. It holds no per-batch state and is safe for
// concurrent use; each Generate call owns its own dedup sets.
type Generator struct {
	opts Options
}

// NewGenerator returns a Generator, filling unset attempt bounds with
// defaults.
func NewGenerator(opts Options) *Generator {
	if opts.StyleAttempts < 1 {
		opts.StyleAttempts = DefaultStyleAttempts
	}
	if opts.ColorAttempts < 1 {
		opts.ColorAttempts = DefaultColorAttempts
	}
	opts.Compression = encodeLevel(opts.Compression)
	return &Generator{opts: opts}
}

// Generate produces req.Count variations of req.Source. onProgress, when
// non-nil, is called synchronously after each accepted item.
//
// The context is checked once per item. On cancellation the variations
// accepted so far are returned together with ctx.Err().
func (g *Generator) Generate(ctx context.Context, req Request, onProgress func(Progress)) (*Batch, error) {
	if req.Count < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, req.Count)
	}
	if req.Source == nil || req.Source.Bounds().Empty() {
		return nil, errors.New("source image is empty")
	}

	mode := req.Mode
	if _, known := modeSpecs[mode]; !known {
		if g.opts.Strict {
			return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
		}
		log.Warn().Str("mode", mode.String()).Str("fallback", FallbackMode.String()).
			Msg("Unknown mode, falling back")
		mode = FallbackMode
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	rng := newRand(req.Seed)
	sb := req.Source.Bounds()
	p := &planner{
		rng:   rng,
		alloc: NewAllocator(rng, g.opts.ColorAttempts),
		geo:   PlanGeometry(sb.Dx(), sb.Dy()),
		w:     sb.Dx(),
		h:     sb.Dy(),
	}
	comp := &compositor{composer: &composer{rng: rng}, level: g.opts.Compression}

	batch := &Batch{ID: id, Mode: mode, Variations: make([]Variation, 0, req.Count)}
	used := make(map[StyleKey]struct{}, req.Count)
	start := time.Now()

	log.Debug().Str("batch", id).Str("mode", mode.String()).Str("family", mode.Family().String()).
		Int("count", req.Count).Int("width", sb.Dx()).Int("height", sb.Dy()).Msg("Batch started")

	finish := func() {
		batch.Stats.Accepted = len(batch.Variations)
		batch.Stats.ColorFallbacks = p.alloc.Fallbacks()
		batch.Stats.Colors = p.alloc.Issued()
		batch.Stats.Elapsed = time.Since(start)
	}

	for len(batch.Variations) < req.Count {
		if err := ctx.Err(); err != nil {
			finish()
			log.Info().Str("batch", id).Int("accepted", batch.Stats.Accepted).Int("count", req.Count).
				Err(err).Msg("Batch cancelled")
			return batch, err
		}

		index := len(batch.Variations)
		attempts := 0
		var key StyleKey
		desc, unique := tryGenerate(g.opts.StyleAttempts,
			func() StyleDescriptor {
				attempts++
				return p.next(mode, index)
			},
			func(d StyleDescriptor) bool {
				key = d.Key()
				_, taken := used[key]
				return !taken
			},
		)
		batch.Stats.Rejected += attempts - 1
		if !unique {
			batch.Stats.Duplicates++
			log.Warn().Str("batch", id).Int("index", index+1).Str("key", string(key)).
				Int("attempts", attempts).Msg("Style search exhausted, accepting duplicate")
		}
		used[key] = struct{}{}

		data, w, h, err := comp.render(req.Source, desc)
		if err != nil {
			finish()
			return batch, fmt.Errorf("render variation %d: %w", index+1, err)
		}

		batch.Variations = append(batch.Variations, Variation{
			Index:     index + 1,
			Image:     data,
			Key:       key,
			Style:     desc,
			Width:     w,
			Height:    h,
			Duplicate: !unique,
		})
		v := &batch.Variations[len(batch.Variations)-1]

		log.Debug().Str("batch", id).Str("mode", mode.String()).Int("index", v.Index).
			Str("key", string(key)).Int("attempts", attempts).Msg("Variation accepted")

		if onProgress != nil {
			onProgress(Progress{
				Index:     v.Index,
				Total:     req.Count,
				Percent:   float64(v.Index) * 100 / float64(req.Count),
				Variation: v,
			})
		}
	}

	finish()
	log.Info().
		Str("batch", id).
		Str("mode", mode.String()).
		Int("accepted", batch.Stats.Accepted).
		Int("rejected", batch.Stats.Rejected).
		Int("duplicates", batch.Stats.Duplicates).
		Int("colorFallbacks", batch.Stats.ColorFallbacks).
		Int("colors", batch.Stats.Colors).
		Dur("elapsed", batch.Stats.Elapsed).
		Msg("Batch complete")
	return batch, nil
}

// planner draws candidate descriptors for one batch.
type planner struct {
	rng   *rand.Rand
	alloc *Allocator
	geo   Geometry
	w, h  int
}

func (p *planner) next(mode Mode, index int) StyleDescriptor {
	family, core := mode.resolve(p.rng)
	d := StyleDescriptor{Family: family, Core: core, Glyph: -1}

	sw, sh := p.w, p.h
	if family == FamilyFrame {
		d.Thickness = p.geo.Thickness.Draw(p.rng)
		sw += 2 * d.Thickness
		sh += 2 * d.Thickness
	}

	if core.IsLines() {
		d.ColorMode = ColorMode(p.rng.IntN(3))
		d.Spacing = p.geo.Spacing.Draw(p.rng)
		d.LineWidth = p.geo.LineWidth.Draw(p.rng)
		switch d.ColorMode {
		case ColorSingle:
			d.Colors = p.alloc.AllocateN(1)
		case ColorAlternate:
			d.Colors = p.alloc.AllocateN(2)
		default:
			d.Colors = p.alloc.AllocateN(max(1, strokeCount(core, sw, sh, d.Spacing)))
		}
		return d
	}

	switch core {
	case CorePlain:
		d.ColorMode = ColorSingle
		d.Colors = p.alloc.AllocateN(1)
	case CoreMixed:
		d.ColorMode = ColorMulti
		d.Colors = p.alloc.AllocateN(2)
		if family == FamilyBackground {
			d.Angle = p.rng.IntN(360)
		}
	case CoreNoise:
		d.ColorMode = ColorMulti
		d.Colors = p.alloc.AllocateN(2)
		d.Angle = p.rng.IntN(360)
	case CoreStriped:
		d.ColorMode = ColorMulti
		d.Colors = p.alloc.AllocateN(2 + p.rng.IntN(3))
		d.Stripe = StripeDiagonal
		if p.rng.IntN(2) == 1 {
			d.Stripe = StripeBlock
		}
		if family == FamilyFrame {
			d.Spacing = max(4, d.Thickness)
		} else {
			d.Spacing = p.geo.Spacing.Draw(p.rng)
		}
	case CoreEmoji:
		d.ColorMode = ColorSingle
		d.Colors = p.alloc.AllocateN(1)
		d.Glyph = index % GlyphCount()
	}
	return d
}

func newRand(seed *uint64) *rand.Rand {
	var s uint64
	if seed != nil {
		s = *seed
	} else {
		s = rand.Uint64()
	}
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
