package questions

import (
	"context"
	"fmt"

	"github.com/mock-test/backend/internal/jobs"
	"github.com/mock-test/backend/internal/models"
	"go.uber.org/zap"
)

// Previewer generates candidates synchronously for the preview endpoints.
type Previewer interface {
	Generate(ctx context.Context, req models.GenerationRequest, count int) ([]models.CandidateQuestion, error)
}

type Service struct {
	store      *Store
	previewer  Previewer
	registry   *jobs.Registry
	generation *jobs.GenerationWorker
	approval   *jobs.ApprovalWorker
	log        *zap.Logger
}

func NewService(store *Store, previewer Previewer, registry *jobs.Registry, generation *jobs.GenerationWorker, approval *jobs.ApprovalWorker, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		previewer:  previewer,
		registry:   registry,
		generation: generation,
		approval:   approval,
		log:        log.Named("questions"),
	}
}

// ── Background jobs ─────────────────────────────────────

func (s *Service) StartGeneration(req models.GenerationRequest) string {
	id := s.generation.Submit(req)
	s.log.Info("generation job queued",
		zap.String("job_id", id),
		zap.String("topic", req.Topic),
		zap.Int("count", req.Count),
		zap.Int("difficulty", req.DifficultyLevel),
		zap.String("provider", req.AIProvider))
	return id
}

func (s *Service) StartApproval(req models.ApprovalRequest) string {
	id := s.approval.Submit(req)
	s.log.Info("approval job queued",
		zap.String("job_id", id),
		zap.String("topic", req.Topic),
		zap.Int64("test_id", req.TestID),
		zap.Bool("all_difficulties", req.ApproveAllDifficulties),
		zap.Int("edited", len(req.Questions)))
	return id
}

func (s *Service) JobStatus(id string) (models.Job, bool) {
	return s.registry.Get(id)
}

func (s *Service) ListJobs() []models.Job {
	return s.registry.List()
}

// ── Synchronous endpoints ───────────────────────────────

// Preview generates candidates inline, stages them and returns them.
func (s *Service) Preview(ctx context.Context, req models.GenerationRequest) (*models.PreviewResponse, error) {
	questions, err := s.previewer.Generate(ctx, req, req.Count)
	if err != nil {
		return nil, fmt.Errorf("generate preview: %w", err)
	}

	if err := s.store.InsertStaged(ctx, questions); err != nil {
		return nil, err
	}

	if questions == nil {
		questions = []models.CandidateQuestion{}
	}
	return &models.PreviewResponse{
		Message:   "Preview generated",
		Topic:     req.Topic,
		Count:     len(questions),
		Questions: questions,
	}, nil
}

const defaultPerDifficulty = 30

// PreviewAllDifficulties runs Preview once per level. A failing level is
// logged and left out of the response.
func (s *Service) PreviewAllDifficulties(ctx context.Context, req models.GenerateAllRequest) (*models.GenerateAllResponse, error) {
	per := req.QuestionsPerDifficulty
	if per == 0 {
		per = defaultPerDifficulty
	}

	resp := &models.GenerateAllResponse{Topic: req.Topic, Levels: []models.LevelPreview{}}
	for level := models.MinDifficulty; level <= models.MaxDifficulty; level++ {
		levelReq := models.GenerationRequest{
			Topic:           req.Topic,
			CompanyName:     req.CompanyName,
			RolePosition:    req.RolePosition,
			Description:     req.Description,
			AIProvider:      req.AIProvider,
			DifficultyLevel: level,
			Count:           per,
		}
		levelReq.ApplyDefaults()

		preview, err := s.Preview(ctx, levelReq)
		if err != nil {
			s.log.Warn("difficulty level preview failed", zap.Int("difficulty", level), zap.Error(err))
			continue
		}

		resp.Levels = append(resp.Levels, models.LevelPreview{
			DifficultyLevel: level,
			Difficulty:      models.DifficultyName(level),
			Count:           preview.Count,
			Questions:       preview.Questions,
		})
		resp.Total += preview.Count
	}

	if len(resp.Levels) == 0 {
		return nil, fmt.Errorf("every difficulty level failed for topic %q", req.Topic)
	}
	resp.Message = fmt.Sprintf("Generated %d questions across %d difficulty levels", resp.Total, len(resp.Levels))
	return resp, nil
}

// Approve runs an approval inline.
func (s *Service) Approve(ctx context.Context, req models.ApprovalRequest) (models.Job, error) {
	return s.approval.Run(ctx, req)
}

func (s *Service) ListDifficulties(ctx context.Context) ([]models.DifficultyLevel, error) {
	return s.store.ListDifficulties(ctx)
}
