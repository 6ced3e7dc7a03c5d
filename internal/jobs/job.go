// Package jobs tracks variation batches generated in the background for the
// web API. A job moves pending → generating → complete | cancelled | error;
// accepted outputs become readable as soon as they are produced.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fpang/photo-variator/internal/archive"
	"github.com/fpang/photo-variator/internal/imageio"
	"github.com/fpang/photo-variator/internal/variation"
)

var (
	// ErrNotFound is returned for unknown or swept job IDs.
	ErrNotFound = errors.New("job not found")
	// ErrNotReady is returned when a result is requested before it exists.
	ErrNotReady = errors.New("job result not ready")
	// ErrOutOfRange is returned for an output index outside [1, count].
	ErrOutOfRange = errors.New("output index out of range")
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled || s == StatusError
}

// Job is one background batch.
type Job struct {
	mu         sync.Mutex
	id         string
	label      string
	mode       variation.Mode
	count      int
	status     Status
	variations []variation.Variation
	percent    float64
	stats      *variation.Stats
	errMsg     string
	created    time.Time
	finished   time.Time
	cancel     context.CancelFunc
	done       chan struct{}

	thumbs     map[int][]byte
	archive    []byte
	archiveURL string
}

// Snapshot is the JSON view of a job.
type Snapshot struct {
	ID         string           `json:"id"`
	Status     Status           `json:"status"`
	Mode       string           `json:"mode"`
	Count      int              `json:"count"`
	Done       int              `json:"done"`
	Percent    float64          `json:"percent"`
	Stats      *variation.Stats `json:"stats,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	ArchiveURL string           `json:"archiveUrl,omitempty"`
}

func newJob(id string, mode variation.Mode, count int, now time.Time) *Job {
	return &Job{
		id:      id,
		mode:    mode,
		count:   count,
		status:  StatusPending,
		created: now,
		done:    make(chan struct{}),
		thumbs:  make(map[int][]byte),
	}
}

// ID returns the job ID.
func (j *Job) ID() string { return j.id }

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} { return j.done }

// Status returns the current status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Snapshot returns a consistent copy of the job's public state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Snapshot{
		ID:         j.id,
		Status:     j.status,
		Mode:       j.mode.String(),
		Count:      j.count,
		Done:       len(j.variations),
		Percent:    j.percent,
		Error:      j.errMsg,
		CreatedAt:  j.created,
		ArchiveURL: j.archiveURL,
	}
	if j.stats != nil {
		st := *j.stats
		s.Stats = &st
	}
	return s
}

// Cancel stops a running job. It is a no-op once the job has finished.
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Image returns the PNG of the n-th (1-based) output. Outputs are available
// while the batch is still generating.
func (j *Job) Image(n int) ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, err := j.variationLocked(n)
	if err != nil {
		return nil, err
	}
	return v.Image, nil
}

// Thumbnail returns a scaled preview of the n-th output, computed once.
func (j *Job) Thumbnail(n, maxDimension int) ([]byte, error) {
	j.mu.Lock()
	if t, ok := j.thumbs[n]; ok {
		j.mu.Unlock()
		return t, nil
	}
	v, err := j.variationLocked(n)
	j.mu.Unlock()
	if err != nil {
		return nil, err
	}

	thumb, err := imageio.Thumbnail(v.Image, maxDimension)
	if err != nil {
		return nil, fmt.Errorf("thumbnail %d: %w", n, err)
	}
	j.mu.Lock()
	j.thumbs[n] = thumb
	j.mu.Unlock()
	return thumb, nil
}

func (j *Job) variationLocked(n int) (variation.Variation, error) {
	if n < 1 || n > j.count {
		return variation.Variation{}, fmt.Errorf("%w: %d not in [1, %d]", ErrOutOfRange, n, j.count)
	}
	if n > len(j.variations) {
		if j.status.Terminal() {
			return variation.Variation{}, fmt.Errorf("%w: output %d was never generated (%s)", ErrOutOfRange, n, j.status)
		}
		return variation.Variation{}, fmt.Errorf("%w: output %d", ErrNotReady, n)
	}
	return j.variations[n-1], nil
}

// Archive bundles every output into a zip. The archive is built once and
// only after the batch has completed.
func (j *Job) Archive(opts archive.Options) ([]byte, error) {
	j.mu.Lock()
	if j.status != StatusComplete {
		status := j.status
		j.mu.Unlock()
		return nil, fmt.Errorf("%w: job is %s", ErrNotReady, status)
	}
	if j.archive != nil {
		data := j.archive
		j.mu.Unlock()
		return data, nil
	}
	images := make([][]byte, len(j.variations))
	for i, v := range j.variations {
		images[i] = v.Image
	}
	j.mu.Unlock()

	data, err := archive.Bytes(images, opts)
	if err != nil {
		return nil, err
	}
	j.mu.Lock()
	j.archive = data
	j.mu.Unlock()
	return data, nil
}

// SetLabel names the source the job was made from; it drives the archive
// file name.
func (j *Job) SetLabel(label string) {
	j.mu.Lock()
	j.label = label
	j.mu.Unlock()
}

// ArchiveName is the download file name for the job's archive.
func (j *Job) ArchiveName() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return archive.FileName(j.label)
}

// SetArchiveURL records where the archive was published.
func (j *Job) SetArchiveURL(url string) {
	j.mu.Lock()
	j.archiveURL = url
	j.mu.Unlock()
}

// ArchiveURL returns the published archive URL, if any.
func (j *Job) ArchiveURL() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.archiveURL
}

func (j *Job) start(cancel context.CancelFunc) {
	j.mu.Lock()
	j.status = StatusGenerating
	j.cancel = cancel
	j.mu.Unlock()
}

func (j *Job) progress(p variation.Progress) {
	j.mu.Lock()
	j.variations = append(j.variations, *p.Variation)
	j.percent = p.Percent
	j.mu.Unlock()
}

func (j *Job) finish(status Status, stats *variation.Stats, err error, now time.Time) {
	j.mu.Lock()
	j.status = status
	j.stats = stats
	if err != nil {
		j.errMsg = err.Error()
	}
	j.finished = now
	j.cancel = nil
	j.mu.Unlock()
	close(j.done)
}

// expired reports whether the job outlived ttl. Running jobs age from
// creation, finished ones from completion.
func (j *Job) expired(now time.Time, ttl time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	ref := j.created
	if !j.finished.IsZero() {
		ref = j.finished
	}
	return now.Sub(ref) > ttl
}
