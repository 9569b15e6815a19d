package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mock-test/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// QuestionGenerator produces up to count candidates. offset is the index of
// the first candidate within the job.
type QuestionGenerator interface {
	GenerateAt(ctx context.Context, req models.GenerationRequest, offset, count int) ([]models.CandidateQuestion, error)
}

type StagingWriter interface {
	InsertStaged(ctx context.Context, questions []models.CandidateQuestion) error
}

type GenerationConfig struct {
	BatchSize   int
	Concurrency int
	CallTimeout time.Duration
}

type GenerationWorker struct {
	registry *Registry
	runner   *Runner
	gen      QuestionGenerator
	staging  StagingWriter
	cfg      GenerationConfig
	log      *zap.Logger
}

func NewGenerationWorker(registry *Registry, runner *Runner, gen QuestionGenerator, staging StagingWriter, cfg GenerationConfig, log *zap.Logger) *GenerationWorker {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 5
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 3
	}
	return &GenerationWorker{
		registry: registry,
		runner:   runner,
		gen:      gen,
		staging:  staging,
		cfg:      cfg,
		log:      log.Named("generation"),
	}
}

// Submit registers a generation job and starts it in the background.
func (w *GenerationWorker) Submit(req models.GenerationRequest) string {
	job := w.registry.Create(models.JobGeneration)
	w.runner.Go(job.ID, func(ctx context.Context) error {
		return w.run(ctx, job.ID, req)
	})
	return job.ID
}

type batch struct {
	index  int
	offset int
	size   int
}

type batchResult struct {
	batch      batch
	candidates []models.CandidateQuestion
	err        error
}

func (w *GenerationWorker) run(ctx context.Context, jobID string, req models.GenerationRequest) error {
	defer trackInFlight(string(models.JobGeneration))()
	log := w.log.With(zap.String("job_id", jobID), zap.String("topic", req.Topic))

	if _, err := w.registry.Start(jobID, req.Count); err != nil {
		return fmt.Errorf("start job: %w", err)
	}

	batches := planBatches(req.Count, w.cfg.BatchSize)
	waves := planWaves(batches, w.cfg.Concurrency)
	log.Info("generation started",
		zap.Int("total", req.Count),
		zap.Int("batches", len(batches)),
		zap.Int("waves", len(waves)))

	var accepted []models.CandidateQuestion
	for waveIdx, wave := range waves {
		results := w.runWave(ctx, req, wave)

		var added []models.CandidateQuestion
		for _, res := range results {
			switch {
			case res.err != nil:
				observeBatch("failed")
				log.Warn("batch failed",
					zap.Int("wave", waveIdx+1),
					zap.Int("batch", res.batch.index+1),
					zap.Error(res.err))
			case len(res.candidates) == 0:
				observeBatch("empty")
				log.Warn("batch returned no questions",
					zap.Int("wave", waveIdx+1),
					zap.Int("batch", res.batch.index+1))
			default:
				observeBatch("ok")
				added = append(added, res.candidates...)
			}
		}
		accepted = append(accepted, added...)

		if _, err := w.registry.Update(jobID, func(j *models.Job) {
			j.Generated += len(added)
			j.Progress = progressOf(j.Generated, j.Total)
			j.Questions = append(j.Questions, added...)
		}); err != nil {
			return fmt.Errorf("record wave progress: %w", err)
		}
	}

	if len(accepted) > 0 {
		if err := w.staging.InsertStaged(ctx, accepted); err != nil {
			return fmt.Errorf("save generated questions: %w", err)
		}
	}

	if _, err := w.registry.Complete(jobID); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	log.Info("generation completed", zap.Int("generated", len(accepted)), zap.Int("requested", req.Count))
	return nil
}

// runWave issues every batch of the wave concurrently and waits for all of
// them. Batch failures are carried in the results, never returned to the
// group, so one failure does not cancel its siblings.
func (w *GenerationWorker) runWave(ctx context.Context, req models.GenerationRequest, wave []batch) []batchResult {
	results := make([]batchResult, len(wave))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i, b := range wave {
		g.Go(func() error {
			results[i] = w.runBatch(gctx, req, b)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (w *GenerationWorker) runBatch(ctx context.Context, req models.GenerationRequest, b batch) (res batchResult) {
	res.batch = b
	defer func() {
		if rec := recover(); rec != nil {
			res.candidates = nil
			res.err = &PanicError{Value: rec}
		}
	}()

	if w.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.CallTimeout)
		defer cancel()
	}

	res.candidates, res.err = w.gen.GenerateAt(ctx, req, b.offset, b.size)
	if len(res.candidates) > b.size {
		res.candidates = res.candidates[:b.size]
	}
	return res
}

// planBatches splits total into batches of size; the last holds the remainder.
func planBatches(total, size int) []batch {
	if total <= 0 || size <= 0 {
		return nil
	}
	out := make([]batch, 0, (total+size-1)/size)
	for offset := 0; offset < total; offset += size {
		n := size
		if total-offset < n {
			n = total - offset
		}
		out = append(out, batch{index: len(out), offset: offset, size: n})
	}
	return out
}

// planWaves groups consecutive batches into waves of at most width.
func planWaves(batches []batch, width int) [][]batch {
	if width <= 0 {
		width = 1
	}
	var waves [][]batch
	for start := 0; start < len(batches); start += width {
		end := start + width
		if end > len(batches) {
			end = len(batches)
		}
		waves = append(waves, batches[start:end])
	}
	return waves
}
