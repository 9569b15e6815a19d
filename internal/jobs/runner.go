package jobs

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Runner starts detached job goroutines and turns their errors and panics
// into failed jobs.
type Runner struct {
	ctx      context.Context
	registry *Registry
	log      *zap.Logger
	wg       sync.WaitGroup
}

// NewRunner binds jobs to ctx, which should live as long as the server.
func NewRunner(ctx context.Context, registry *Registry, log *zap.Logger) *Runner {
	return &Runner{ctx: ctx, registry: registry, log: log.Named("runner")}
}

func (r *Runner) Go(jobID string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(jobID, fn)
	}()
}

func (r *Runner) run(jobID string, fn func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("job panic", zap.String("job_id", jobID), zap.Any("panic", rec), zap.Stack("stack"))
			r.fail(jobID, &PanicError{Value: rec})
		}
	}()

	if err := fn(r.ctx); err != nil {
		r.fail(jobID, err)
	}
}

func (r *Runner) fail(jobID string, cause error) {
	r.log.Error("job failed", zap.String("job_id", jobID), zap.Error(cause))
	if _, err := r.registry.Fail(jobID, cause); err != nil && !errors.Is(err, ErrJobTerminal) {
		r.log.Warn("could not mark job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// Wait blocks until every started job returns or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
