package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mock-test/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type generatorCall struct {
	offset         int
	size           int
	finishedBefore int
}

type fakeGenerator struct {
	mu          sync.Mutex
	calls       []generatorCall
	inFlight    int
	maxInFlight int
	finished    int

	delay   time.Duration
	failAt  map[int]error
	panicAt map[int]bool
	short   map[int]int
}

func (f *fakeGenerator) GenerateAt(ctx context.Context, req models.GenerationRequest, offset, count int) ([]models.CandidateQuestion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generatorCall{offset: offset, size: count, finishedBefore: f.finished})
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.finished++
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicAt[offset] {
		panic("provider exploded")
	}
	if err := f.failAt[offset]; err != nil {
		return nil, err
	}
	if n, ok := f.short[offset]; ok {
		count = n
	}

	out := make([]models.CandidateQuestion, count)
	for i := range out {
		out[i] = models.CandidateQuestion{
			Topic:           req.Topic,
			QuestionText:    fmt.Sprintf("q%d", offset+i),
			OptionA:         "a",
			OptionB:         "b",
			OptionC:         "c",
			OptionD:         "d",
			CorrectOption:   "A",
			Source:          "fake",
			DifficultyLevel: req.DifficultyLevel,
		}
	}
	return out, nil
}

type fakeStaging struct {
	mu       sync.Mutex
	inserted [][]models.CandidateQuestion
	err      error
}

func (s *fakeStaging) InsertStaged(ctx context.Context, qs []models.CandidateQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, qs)
	return nil
}

func (s *fakeStaging) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.inserted {
		n += len(b)
	}
	return n
}

type generationHarness struct {
	registry *Registry
	runner   *Runner
	worker   *GenerationWorker
	gen      *fakeGenerator
	staging  *fakeStaging
}

func newGenerationHarness(gen *fakeGenerator, staging *fakeStaging, batchSize, concurrency int) *generationHarness {
	registry := NewRegistry()
	runner := NewRunner(context.Background(), registry, zap.NewNop())
	worker := NewGenerationWorker(registry, runner, gen, staging, GenerationConfig{
		BatchSize:   batchSize,
		Concurrency: concurrency,
		CallTimeout: time.Second,
	}, zap.NewNop())
	return &generationHarness{registry: registry, runner: runner, worker: worker, gen: gen, staging: staging}
}

func (h *generationHarness) submitAndWait(t *testing.T, count int) models.Job {
	t.Helper()
	id := h.worker.Submit(models.GenerationRequest{Topic: "Data Structures", DifficultyLevel: 3, Count: count})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.runner.Wait(ctx))

	job, ok := h.registry.Get(id)
	require.True(t, ok)
	return job
}

func TestPlanBatches(t *testing.T) {
	sizes := func(bs []batch) []int {
		out := make([]int, len(bs))
		for i, b := range bs {
			out[i] = b.size
		}
		return out
	}

	assert.Equal(t, []int{5, 5, 2}, sizes(planBatches(12, 5)))
	assert.Equal(t, []int{5}, sizes(planBatches(5, 5)))
	assert.Equal(t, []int{3}, sizes(planBatches(3, 5)))
	assert.Empty(t, planBatches(0, 5))

	bs := planBatches(12, 5)
	assert.Equal(t, []int{0, 5, 10}, []int{bs[0].offset, bs[1].offset, bs[2].offset})
}

func TestPlanWaves(t *testing.T) {
	for _, c := range []struct {
		count, size, width int
		waves              []int
	}{
		{12, 5, 3, []int{3}},
		{40, 5, 3, []int{3, 3, 2}},
		{30, 5, 3, []int{3, 3}},
		{1, 5, 3, []int{1}},
	} {
		waves := planWaves(planBatches(c.count, c.size), c.width)
		widths := make([]int, len(waves))
		for i, w := range waves {
			widths[i] = len(w)
		}
		assert.Equal(t, c.waves, widths, "count=%d", c.count)
	}
}

func TestGeneration_SingleWaveOfThreeBatches(t *testing.T) {
	h := newGenerationHarness(&fakeGenerator{}, &fakeStaging{}, 5, 3)

	job := h.submitAndWait(t, 12)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 12, job.Total)
	assert.Equal(t, 12, job.Generated)
	assert.Equal(t, 100, job.Progress)
	assert.Len(t, job.Questions, 12)

	require.Len(t, h.gen.calls, 3)
	sizes := map[int]int{}
	for _, c := range h.gen.calls {
		sizes[c.offset] = c.size
	}
	assert.Equal(t, map[int]int{0: 5, 5: 5, 10: 2}, sizes)

	require.Len(t, h.staging.inserted, 1, "aggregate is written once")
	assert.Equal(t, 12, h.staging.total())
}

func TestGeneration_WavesAreSequentialAndBounded(t *testing.T) {
	gen := &fakeGenerator{delay: 20 * time.Millisecond}
	h := newGenerationHarness(gen, &fakeStaging{}, 5, 3)

	job := h.submitAndWait(t, 40)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 40, job.Generated)
	require.Len(t, gen.calls, 8)
	assert.LessOrEqual(t, gen.maxInFlight, 3)

	for _, c := range gen.calls {
		wave := (c.offset / 5) / 3
		assert.GreaterOrEqual(t, c.finishedBefore, wave*3,
			"batch at offset %d started before wave %d finished", c.offset, wave)
	}
}

func TestGeneration_FailedBatchesAreTolerated(t *testing.T) {
	gen := &fakeGenerator{
		failAt:  map[int]error{5: errors.New("rate limited")},
		panicAt: map[int]bool{10: true},
	}
	h := newGenerationHarness(gen, &fakeStaging{}, 5, 3)

	job := h.submitAndWait(t, 15)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 5, job.Generated)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 5, h.staging.total())
}

func TestGeneration_ShortBatchCountsOnlyAccepted(t *testing.T) {
	gen := &fakeGenerator{short: map[int]int{0: 3}}
	h := newGenerationHarness(gen, &fakeStaging{}, 5, 3)

	job := h.submitAndWait(t, 10)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 8, job.Generated)
	assert.LessOrEqual(t, job.Generated, job.Total)
}

func TestGeneration_AllBatchesFailSkipsStaging(t *testing.T) {
	gen := &fakeGenerator{failAt: map[int]error{0: errors.New("down"), 5: errors.New("down")}}
	h := newGenerationHarness(gen, &fakeStaging{}, 5, 3)

	job := h.submitAndWait(t, 10)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 0, job.Generated)
	assert.Empty(t, h.staging.inserted)
}

func TestGeneration_StagingFailureFailsJob(t *testing.T) {
	h := newGenerationHarness(&fakeGenerator{}, &fakeStaging{err: errors.New("connection reset")}, 5, 3)

	job := h.submitAndWait(t, 6)

	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Error, "connection reset")
	assert.Equal(t, 6, job.Generated)
}

func TestGeneration_ProgressAfterEachWave(t *testing.T) {
	gen := &fakeGenerator{delay: 30 * time.Millisecond}
	h := newGenerationHarness(gen, &fakeStaging{}, 5, 1)

	id := h.worker.Submit(models.GenerationRequest{Topic: "T", DifficultyLevel: 1, Count: 10})

	seen := map[int]bool{}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, _ := h.registry.Get(id)
		seen[job.Progress] = true
		if job.Status.Terminal() {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	assert.True(t, seen[50], "expected to observe 50%% after the first wave, saw %v", seen)
	assert.True(t, seen[100])
}
