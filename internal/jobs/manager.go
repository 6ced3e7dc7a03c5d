package jobs

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-variator/internal/metrics"
	"github.com/fpang/photo-variator/internal/variation"
)

// Generator is the engine surface the manager drives.
type Generator interface {
	Generate(ctx context.Context, req variation.Request, onProgress func(variation.Progress)) (*variation.Batch, error)
}

// Options configures a Manager.
type Options struct {
	// TTL is how long a job is kept after it finishes.
	TTL time.Duration
	// Surface is the metrics dimension naming the caller (web, lambda).
	Surface string
	// MetricsOut receives the per-batch EMF line; nil means stdout.
	MetricsOut io.Writer
}

// Manager owns the in-memory job registry.
type Manager struct {
	gen  Generator
	opts Options
	now  func() time.Time

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager creates an empty registry.
func NewManager(gen Generator, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	return &Manager{
		gen:  gen,
		opts: opts,
		now:  time.Now,
		jobs: make(map[string]*Job),
	}
}

// Start registers a job and generates it in the background. The job does
// not inherit a request context; use Cancel to stop it.
func (m *Manager) Start(src image.Image, mode variation.Mode, count int, seed *uint64) *Job {
	job := newJob(GenerateID(), mode, count, m.now())

	m.mu.Lock()
	m.jobs[job.id] = job
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	job.start(cancel)

	req := variation.Request{ID: job.id, Source: src, Mode: mode, Count: count, Seed: seed}
	go m.run(ctx, cancel, job, req)

	log.Info().Str("job", job.id).Str("mode", mode.String()).Int("count", count).Msg("Variation job started")
	return job
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, job *Job, req variation.Request) {
	defer cancel()

	batch, err := m.gen.Generate(ctx, req, job.progress)

	var stats *variation.Stats
	if batch != nil {
		stats = &batch.Stats
	}

	switch {
	case err == nil:
		job.finish(StatusComplete, stats, nil, m.now())
		log.Info().Str("job", job.id).Int("accepted", batch.Stats.Accepted).Msg("Variation job complete")
	case errors.Is(err, context.Canceled):
		job.finish(StatusCancelled, stats, nil, m.now())
		log.Info().Str("job", job.id).Msg("Variation job cancelled")
	default:
		job.finish(StatusError, stats, err, m.now())
		log.Error().Err(err).Str("job", job.id).Msg("Variation job failed")
	}

	if batch != nil {
		rec := metrics.ForBatch(batch, m.opts.Surface)
		if m.opts.MetricsOut != nil {
			rec.To(m.opts.MetricsOut)
		}
		rec.Flush()
	}
}

// Get returns the job with the given ID; the IDPrefix may be omitted.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[NormalizeID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return job, nil
}

// Cancel stops the job with the given ID.
func (m *Manager) Cancel(id string) (*Job, error) {
	job, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	job.Cancel()
	return job, nil
}

// Len returns the number of registered jobs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Sweep removes jobs past the TTL, cancelling any still running, and
// returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	var expired []*Job

	m.mu.Lock()
	for id, job := range m.jobs {
		if job.expired(now, m.opts.TTL) {
			expired = append(expired, job)
			delete(m.jobs, id)
		}
	}
	m.mu.Unlock()

	for _, job := range expired {
		job.Cancel()
	}
	if len(expired) > 0 {
		log.Debug().Int("swept", len(expired)).Msg("Expired variation jobs removed")
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
