package jobs

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fpang/photo-variator/internal/archive"
	"github.com/fpang/photo-variator/internal/imageio"
	"github.com/fpang/photo-variator/internal/variation"
)

func testSource(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	return img
}

func wait(t *testing.T, job *Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(30 * time.Second):
		t.Fatalf("job %s did not finish", job.ID())
	}
}

// blockingGenerator accepts one variation then waits for cancellation.
type blockingGenerator struct {
	started chan struct{}
}

func (g *blockingGenerator) Generate(ctx context.Context, req variation.Request, onProgress func(variation.Progress)) (*variation.Batch, error) {
	b := &variation.Batch{ID: req.ID, Mode: req.Mode, Variations: make([]variation.Variation, 0, req.Count)}
	b.Variations = append(b.Variations, variation.Variation{Index: 1, Image: []byte("png-1")})
	onProgress(variation.Progress{Index: 1, Total: req.Count, Percent: 100 / float64(req.Count), Variation: &b.Variations[0]})
	close(g.started)
	<-ctx.Done()
	b.Stats.Accepted = 1
	return b, ctx.Err()
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, variation.Request, func(variation.Progress)) (*variation.Batch, error) {
	return nil, errors.New("render exploded")
}

func TestManager_Complete(t *testing.T) {
	var metricsOut bytes.Buffer
	seed := uint64(7)
	m := NewManager(variation.NewGenerator(variation.DefaultOptions()), Options{Surface: "test", MetricsOut: &metricsOut})

	job := m.Start(testSource(40, 30), variation.ModeFramePlain, 3, &seed)
	if !strings.HasPrefix(job.ID(), IDPrefix) {
		t.Errorf("job ID %q lacks prefix %q", job.ID(), IDPrefix)
	}
	wait(t, job)

	snap := job.Snapshot()
	if snap.Status != StatusComplete || snap.Done != 3 || snap.Percent != 100 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Stats == nil || snap.Stats.Accepted != 3 {
		t.Errorf("stats = %+v", snap.Stats)
	}
	if snap.Mode != "frame-plain" {
		t.Errorf("mode = %q", snap.Mode)
	}

	for n := 1; n <= 3; n++ {
		data, err := job.Image(n)
		if err != nil {
			t.Fatalf("Image(%d): %v", n, err)
		}
		if !imageio.IsPNG(data) {
			t.Errorf("Image(%d) is not a PNG", n)
		}
	}
	if _, err := job.Image(4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Image(4) err = %v, want ErrOutOfRange", err)
	}

	thumb, err := job.Thumbnail(1, 16)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	size, err := imageio.ValidatePNG(thumb)
	if err != nil || size.X > 16 || size.Y > 16 {
		t.Errorf("thumbnail size = %v, err = %v", size, err)
	}

	zipData, err := job.Archive(archive.Options{})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	zr, err := archive.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(zr.File) != 3 || zr.File[0].Name != "1.png" {
		t.Errorf("archive entries = %d, first %q", len(zr.File), zr.File[0].Name)
	}

	if !strings.Contains(metricsOut.String(), `"Surface":"test"`) {
		t.Errorf("metrics line missing surface: %s", metricsOut.String())
	}

	got, err := m.Get(strings.TrimPrefix(job.ID(), IDPrefix))
	if err != nil || got != job {
		t.Errorf("Get(bare id) = %v, %v", got, err)
	}
}

func TestManager_Cancel(t *testing.T) {
	gen := &blockingGenerator{started: make(chan struct{})}
	m := NewManager(gen, Options{MetricsOut: io.Discard})

	job := m.Start(testSource(10, 10), variation.ModePlain, 5, nil)
	<-gen.started

	if _, err := job.Image(1); err != nil {
		t.Errorf("partial output should be readable while generating: %v", err)
	}
	if _, err := job.Image(2); !errors.Is(err, ErrNotReady) {
		t.Errorf("Image(2) err = %v, want ErrNotReady", err)
	}
	if _, err := job.Archive(archive.Options{}); !errors.Is(err, ErrNotReady) {
		t.Errorf("Archive err = %v, want ErrNotReady", err)
	}

	if _, err := m.Cancel(job.ID()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	wait(t, job)

	snap := job.Snapshot()
	if snap.Status != StatusCancelled || snap.Done != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if _, err := job.Image(2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Image(2) after cancel err = %v, want ErrOutOfRange", err)
	}
}

func TestManager_Error(t *testing.T) {
	m := NewManager(failingGenerator{}, Options{MetricsOut: io.Discard})
	job := m.Start(testSource(10, 10), variation.ModePlain, 2, nil)
	wait(t, job)

	snap := job.Snapshot()
	if snap.Status != StatusError || snap.Error != "render exploded" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestManager_GetUnknown(t *testing.T) {
	m := NewManager(failingGenerator{}, Options{})
	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v", err)
	}
	if _, err := m.Cancel("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel err = %v", err)
	}
}

func TestManager_Sweep(t *testing.T) {
	m := NewManager(failingGenerator{}, Options{TTL: time.Minute, MetricsOut: io.Discard})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	job := m.Start(testSource(10, 10), variation.ModePlain, 1, nil)
	wait(t, job)

	if n := m.Sweep(); n != 0 {
		t.Errorf("fresh job swept: %d", n)
	}
	now = now.Add(2 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after sweep", m.Len())
	}
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"200", 200, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIndex(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseIndex(%q) = %d, %v", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ParseIndex(%q) err should wrap ErrOutOfRange", tt.in)
		}
	}
}

func TestNormalizeID(t *testing.T) {
	if got := NormalizeID("abc"); got != IDPrefix+"abc" {
		t.Errorf("NormalizeID(abc) = %q", got)
	}
	if got := NormalizeID(IDPrefix + "abc"); got != IDPrefix+"abc" {
		t.Errorf("NormalizeID(prefixed) = %q", got)
	}
}
