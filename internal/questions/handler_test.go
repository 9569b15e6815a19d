package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mock-test/backend/internal/generator"
	"github.com/mock-test/backend/internal/jobs"
	"github.com/mock-test/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router   *mux.Router
	mock     sqlmock.Sqlmock
	registry *jobs.Registry
	runner   *jobs.Runner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, mock := newMockStore(t)
	log := zap.NewNop()

	registry := jobs.NewRegistry()
	runner := jobs.NewRunner(context.Background(), registry, log)
	gen := generator.NewWithClients(nil, log)
	genWorker := jobs.NewGenerationWorker(registry, runner, gen, store, jobs.GenerationConfig{BatchSize: 5, Concurrency: 3}, log)
	approver := jobs.NewApprovalWorker(registry, runner, store, jobs.ApprovalConfig{ChunkSize: 20}, log)

	svc := NewService(store, gen.WithFallbackOnError(), registry, genWorker, approver, log)
	router := mux.NewRouter()
	NewHandler(svc, log).RegisterRoutes(router)

	return &testServer{router: router, mock: mock, registry: registry, runner: runner}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.runner.Wait(ctx))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGetJobStatus_UnknownID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/ai/status/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", decode[models.ErrorResponse](t, rec).Error)
}

func TestStartGenerationJob_Validation(t *testing.T) {
	cases := []struct {
		name string
		body any
		want string
	}{
		{"missing topic", map[string]any{"count": 10}, "topic is required"},
		{"difficulty out of range", map[string]any{"topic": "T", "difficulty_level": 9}, "difficulty_level must be at most 5"},
		{"negative count", map[string]any{"topic": "T", "count": -1}, "count must be at least 1"},
		{"count too large", map[string]any{"topic": "T", "count": 501}, "count must be at most 500"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/ai/generate-job", c.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[models.ErrorResponse](t, rec).Error, c.want)
			assert.Empty(t, s.registry.List(), "no job is created for invalid input")
		})
	}
}

func TestStartGenerationJob_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/ai/generate-job", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartGenerationJob_FallbackCompletes(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectExec(`INSERT INTO ai_generated_questions`).
		WillReturnResult(sqlmock.NewResult(0, 7))

	rec := s.do(t, http.MethodPost, "/ai/generate-job", map[string]any{"topic": "Data Structures", "count": 7})
	require.Equal(t, http.StatusAccepted, rec.Code)

	accepted := decode[models.JobAccepted](t, rec)
	require.NotEmpty(t, accepted.JobID)
	s.wait(t)

	rec = s.do(t, http.MethodGet, "/ai/status/"+accepted.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	job := decode[models.Job](t, rec)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 7, job.Total)
	assert.Equal(t, 7, job.Generated)
	assert.Equal(t, 100, job.Progress)
	require.Len(t, job.Questions, 7)
	for _, q := range job.Questions {
		assert.Equal(t, generator.FallbackSource, q.Source)
		assert.Equal(t, models.DefaultDifficulty, q.DifficultyLevel)
	}
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestStartApprovalJob_Validation(t *testing.T) {
	cases := []struct {
		name string
		body any
		want string
	}{
		{"missing test", map[string]any{"topic": "T", "difficulty_id": 1}, "test_id is required"},
		{"missing difficulty", map[string]any{"topic": "T", "test_id": 1}, "difficulty_id is required unless approve_all_difficulties is set"},
		{"edited without difficulty", map[string]any{
			"topic": "T", "test_id": 1, "approve_all_difficulties": true,
			"questions": []map[string]any{{"question_text": "q", "option_a": "a", "option_b": "b", "option_c": "c", "option_d": "d", "correct_option": "A"}},
		}, "difficulty_id is required"},
		{"edited with bad marker", map[string]any{
			"topic": "T", "test_id": 1, "difficulty_id": 2,
			"questions": []map[string]any{{"question_text": "q", "option_a": "a", "option_b": "b", "option_c": "c", "option_d": "d", "correct_option": "F"}},
		}, "correct_option must be one of A B C D"},
		{"edited missing option", map[string]any{
			"topic": "T", "test_id": 1, "difficulty_id": 2,
			"questions": []map[string]any{{"question_text": "q", "option_a": "a", "option_b": "b", "option_c": "c", "correct_option": "A"}},
		}, "option_d is required"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/ai/approve-job", c.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[models.ErrorResponse](t, rec).Error, c.want)
			assert.Empty(t, s.registry.List())
		})
	}
}

func TestStartApprovalJob_NothingStaged(t *testing.T) {
	s := newTestServer(t)
	for level := 1; level <= 5; level++ {
		s.mock.ExpectQuery(`FROM ai_generated_questions`).
			WithArgs("Empty", level).
			WillReturnRows(sqlmock.NewRows(stagedCols))
	}

	rec := s.do(t, http.MethodPost, "/ai/approve-job", map[string]any{"topic": "Empty", "test_id": 3, "approve_all_difficulties": true})
	require.Equal(t, http.StatusAccepted, rec.Code)
	s.wait(t)

	job := decode[models.Job](t, s.do(t, http.MethodGet, "/ai/status/"+decode[models.JobAccepted](t, rec).JobID, nil))
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 0, job.Total)
	assert.Equal(t, 100, job.Progress)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestGeneratePreview(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectExec(`INSERT INTO ai_generated_questions`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	rec := s.do(t, http.MethodPost, "/ai/generate", map[string]any{"topic": "Computer Network", "count": 3, "difficulty_level": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.PreviewResponse](t, rec)
	assert.Equal(t, 3, resp.Count)
	require.Len(t, resp.Questions, 3)
	assert.Equal(t, 5, resp.Questions[0].DifficultyLevel)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestGenerateAllDifficulties_SkipsFailingLevel(t *testing.T) {
	s := newTestServer(t)
	for level := 1; level <= 5; level++ {
		exp := s.mock.ExpectExec(`INSERT INTO ai_generated_questions`)
		if level == 3 {
			exp.WillReturnError(assert.AnError)
			continue
		}
		exp.WillReturnResult(sqlmock.NewResult(0, 2))
	}

	rec := s.do(t, http.MethodPost, "/ai/generate-all-difficulties", map[string]any{"topic": "T", "questions_per_difficulty": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.GenerateAllResponse](t, rec)
	assert.Equal(t, 8, resp.Total)
	require.Len(t, resp.Levels, 4)
	for _, l := range resp.Levels {
		assert.NotEqual(t, 3, l.DifficultyLevel)
	}
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestListDifficultiesHandler(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectQuery(`FROM difficulty_levels`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "level"}).AddRow(1, "Novice", 1))

	rec := s.do(t, http.MethodGet, "/difficulties", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	levels := decode[[]models.DifficultyLevel](t, rec)
	assert.Equal(t, []models.DifficultyLevel{{ID: 1, Name: "Novice", Level: 1}}, levels)
}
