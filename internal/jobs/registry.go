package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mock-test/backend/internal/models"
	"go.uber.org/zap"
)

// Registry holds job state in memory. Each job has a single writer (the
// worker that owns it); every read returns a copy.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
	now  func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*models.Job), now: time.Now}
}

func (r *Registry) Create(kind models.JobKind) models.Job {
	job := &models.Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    models.JobPending,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return job.Clone()
}

func (r *Registry) Get(id string) (models.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return job.Clone(), true
}

// List returns snapshots of every job, newest first.
func (r *Registry) List() []models.Job {
	r.mu.RLock()
	out := make([]models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Update applies mutate to a copy of the job and stores the result if it is a
// legal successor: status only moves forward, terminal jobs are frozen, and
// the generated/processed counters never decrease or exceed total.
func (r *Registry) Update(id string, mutate func(*models.Job)) (models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.jobs[id]
	if !ok {
		return models.Job{}, ErrJobNotFound
	}
	if cur.Status.Terminal() {
		return cur.Clone(), ErrJobTerminal
	}

	next := cur.Clone()
	mutate(&next)
	next.ID, next.Kind, next.CreatedAt = cur.ID, cur.Kind, cur.CreatedAt

	if !cur.Status.CanAdvanceTo(next.Status) {
		return cur.Clone(), ErrInvalidTransition
	}
	if next.Generated < cur.Generated || next.Processed < cur.Processed {
		return cur.Clone(), ErrInvalidTransition
	}
	if next.Generated > next.Total || next.Processed > next.Total {
		return cur.Clone(), ErrInvalidTransition
	}

	next.Progress = clampProgress(next.Progress)
	if next.Progress < cur.Progress {
		next.Progress = cur.Progress
	}
	if next.Status != models.JobFailed {
		next.Error = ""
	}

	now := r.now()
	if next.Status != models.JobPending && next.StartedAt == nil {
		next.StartedAt = &now
	}
	if next.Status.Terminal() && next.FinishedAt == nil {
		next.FinishedAt = &now
	}

	*cur = next
	return next.Clone(), nil
}

func (r *Registry) Start(id string, total int) (models.Job, error) {
	return r.Update(id, func(j *models.Job) {
		j.Status = models.JobProcessing
		j.Total = total
	})
}

func (r *Registry) Complete(id string) (models.Job, error) {
	job, err := r.Update(id, func(j *models.Job) {
		j.Status = models.JobCompleted
		j.Progress = 100
	})
	if err == nil {
		observeJobFinished(string(job.Kind), string(job.Status))
	}
	return job, err
}

func (r *Registry) Fail(id string, cause error) (models.Job, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	job, err := r.Update(id, func(j *models.Job) {
		j.Status = models.JobFailed
		j.Error = msg
	})
	if err == nil {
		observeJobFinished(string(job.Kind), string(job.Status))
	}
	return job, err
}

// Evict removes terminal jobs that finished more than ttl ago.
func (r *Registry) Evict(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, job := range r.jobs {
		if job.Status.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}

// RunJanitor evicts expired jobs every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval, ttl time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(ttl); n > 0 {
				log.Debug("evicted finished jobs", zap.Int("count", n))
			}
		}
	}
}

// progressOf returns round(done/total*100) clamped to [0,100].
func progressOf(done, total int) int {
	if total <= 0 {
		return 100
	}
	p := (done*100 + total/2) / total
	return clampProgress(p)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
