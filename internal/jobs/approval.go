package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mock-test/backend/internal/models"
	"go.uber.org/zap"
)

type ApprovalStore interface {
	// ReadStaged returns staged rows for topic at level in id order.
	// includeUntagged also returns rows with no difficulty level.
	ReadStaged(ctx context.Context, topic string, level int, includeUntagged bool) ([]models.CandidateQuestion, error)
	// WithTx runs fn in one transaction, committing only if fn returns nil.
	WithTx(ctx context.Context, fn func(tx ApprovalTx) error) error
}

type ApprovalTx interface {
	// InsertQuestions inserts rows and returns the new ids keyed by NewQuestion.Seq.
	InsertQuestions(ctx context.Context, jobID string, rows []models.NewQuestion) (map[int]int64, error)
	InsertOptions(ctx context.Context, options []models.AnswerOption) error
	DeleteStagedByTopic(ctx context.Context, topic string) (int64, error)
	RecountQuestions(ctx context.Context, testID int64) error
}

type ApprovalConfig struct {
	ChunkSize  int
	ChunkPause time.Duration
}

type ApprovalWorker struct {
	registry *Registry
	runner   *Runner
	store    ApprovalStore
	cfg      ApprovalConfig
	log      *zap.Logger
}

func NewApprovalWorker(registry *Registry, runner *Runner, store ApprovalStore, cfg ApprovalConfig, log *zap.Logger) *ApprovalWorker {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 20
	}
	return &ApprovalWorker{
		registry: registry,
		runner:   runner,
		store:    store,
		cfg:      cfg,
		log:      log.Named("approval"),
	}
}

// Submit registers an approval job and starts it in the background.
func (w *ApprovalWorker) Submit(req models.ApprovalRequest) string {
	job := w.registry.Create(models.JobApproval)
	w.runner.Go(job.ID, func(ctx context.Context) error {
		return w.run(ctx, job.ID, req)
	})
	return job.ID
}

// Run executes an approval inline and returns the finished job.
func (w *ApprovalWorker) Run(ctx context.Context, req models.ApprovalRequest) (models.Job, error) {
	job := w.registry.Create(models.JobApproval)
	if err := w.run(ctx, job.ID, req); err != nil {
		w.registry.Fail(job.ID, err)
		failed, _ := w.registry.Get(job.ID)
		return failed, err
	}
	done, _ := w.registry.Get(job.ID)
	return done, nil
}

func (w *ApprovalWorker) run(ctx context.Context, jobID string, req models.ApprovalRequest) error {
	defer trackInFlight(string(models.JobApproval))()
	log := w.log.With(zap.String("job_id", jobID), zap.String("topic", req.Topic), zap.Int64("test_id", req.TestID))

	candidates, err := w.resolve(ctx, req)
	if err != nil {
		return fmt.Errorf("load questions to approve: %w", err)
	}

	if _, err := w.registry.Start(jobID, len(candidates)); err != nil {
		return fmt.Errorf("start job: %w", err)
	}

	if len(candidates) == 0 {
		log.Info("nothing to approve")
		if _, err := w.registry.Complete(jobID); err != nil {
			return fmt.Errorf("complete job: %w", err)
		}
		return nil
	}

	chunks := chunk(candidates, w.cfg.ChunkSize)
	log.Info("approval started", zap.Int("total", len(candidates)), zap.Int("chunks", len(chunks)))

	var deleted int64
	err = w.store.WithTx(ctx, func(tx ApprovalTx) error {
		seq := 0
		for ci, part := range chunks {
			rows, err := buildRows(req.TestID, part, seq)
			if err != nil {
				return err
			}
			seq += len(part)

			ids, err := tx.InsertQuestions(ctx, jobID, rows)
			if err != nil {
				return fmt.Errorf("chunk %d: insert questions: %w", ci+1, err)
			}

			options, err := bindOptions(rows, ids)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", ci+1, err)
			}
			if err := tx.InsertOptions(ctx, options); err != nil {
				return fmt.Errorf("chunk %d: insert options: %w", ci+1, err)
			}

			if _, err := w.registry.Update(jobID, func(j *models.Job) {
				j.Processed += len(part)
				j.Progress = progressOf(j.Processed, j.Total)
			}); err != nil {
				return fmt.Errorf("record chunk progress: %w", err)
			}
			log.Debug("chunk written", zap.Int("chunk", ci+1), zap.Int("size", len(part)))

			if ci < len(chunks)-1 {
				if err := pause(ctx, w.cfg.ChunkPause); err != nil {
					return err
				}
			}
		}

		n, err := tx.DeleteStagedByTopic(ctx, req.Topic)
		if err != nil {
			return fmt.Errorf("clear staged questions: %w", err)
		}
		deleted = n

		if err := tx.RecountQuestions(ctx, req.TestID); err != nil {
			return fmt.Errorf("recount test questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("approve questions: %w", err)
	}

	approvedQuestionsMetric.Add(float64(len(candidates)))
	if _, err := w.registry.Complete(jobID); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	log.Info("approval committed", zap.Int("approved", len(candidates)), zap.Int64("staging_cleared", deleted))
	return nil
}

// resolve picks the questions to approve: edited questions from the request,
// else every staged level for the topic, else one staged level plus untagged rows.
func (w *ApprovalWorker) resolve(ctx context.Context, req models.ApprovalRequest) ([]models.CandidateQuestion, error) {
	if len(req.Questions) > 0 {
		out := make([]models.CandidateQuestion, len(req.Questions))
		for i, q := range req.Questions {
			q.DifficultyLevel = req.DifficultyID
			out[i] = q
		}
		return out, nil
	}

	if req.ApproveAllDifficulties {
		var out []models.CandidateQuestion
		for level := models.MinDifficulty; level <= models.MaxDifficulty; level++ {
			rows, err := w.store.ReadStaged(ctx, req.Topic, level, false)
			if err != nil {
				return nil, fmt.Errorf("level %d: %w", level, err)
			}
			for _, q := range rows {
				q.DifficultyLevel = level
				out = append(out, q)
			}
		}
		return out, nil
	}

	rows, err := w.store.ReadStaged(ctx, req.Topic, req.DifficultyID, true)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].DifficultyLevel = req.DifficultyID
	}
	return rows, nil
}

// buildRows maps candidates to normalized rows, numbering them from seq.
func buildRows(testID int64, part []models.CandidateQuestion, seq int) ([]models.NewQuestion, error) {
	rows := make([]models.NewQuestion, len(part))
	for i, q := range part {
		correct, ok := q.CorrectIndex()
		if !ok {
			return nil, fmt.Errorf("question %d: invalid correct_option %q", seq+i+1, q.CorrectOption)
		}

		row := models.NewQuestion{
			Seq:          seq + i,
			TestID:       testID,
			DifficultyID: q.DifficultyLevel,
			QuestionText: q.QuestionText,
			Marks:        1,
		}
		for k, text := range q.Options() {
			row.Options[k] = models.AnswerOption{
				Text:      text,
				IsCorrect: k == correct,
				Order:     k + 1,
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// bindOptions attaches returned question ids to each row's options.
func bindOptions(rows []models.NewQuestion, ids map[int]int64) ([]models.AnswerOption, error) {
	out := make([]models.AnswerOption, 0, len(rows)*4)
	for _, row := range rows {
		id, ok := ids[row.Seq]
		if !ok {
			return nil, fmt.Errorf("no id returned for question seq %d", row.Seq)
		}
		for _, opt := range row.Options {
			opt.QuestionID = id
			out = append(out, opt)
		}
	}
	return out, nil
}

func chunk(qs []models.CandidateQuestion, size int) [][]models.CandidateQuestion {
	var out [][]models.CandidateQuestion
	for start := 0; start < len(qs); start += size {
		end := start + size
		if end > len(qs) {
			end = len(qs)
		}
		out = append(out, qs[start:end])
	}
	return out
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
