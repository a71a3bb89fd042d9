package research

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// memJobStorage is an in-memory JobStorage for runner and service tests
type memJobStorage struct {
	mu        sync.Mutex
	jobs      map[string]models.ResearchJob
	updateErr error
}

func newMemJobStorage() *memJobStorage {
	return &memJobStorage{jobs: make(map[string]models.ResearchJob)}
}

func (m *memJobStorage) Create(ctx context.Context, job *models.ResearchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobStorage) Update(ctx context.Context, job *models.ResearchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobStorage) Get(ctx context.Context, id string) (*models.ResearchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("job not found: " + id)
	}
	copied := job
	return &copied, nil
}

func (m *memJobStorage) List(ctx context.Context, opts interfaces.JobListOptions) ([]*models.ResearchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ResearchJob, 0, len(m.jobs))
	for id := range m.jobs {
		job := m.jobs[id]
		if opts.Status != "" && string(job.Status) != opts.Status {
			continue
		}
		out = append(out, &job)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (m *memJobStorage) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *memJobStorage) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs), nil
}

func (m *memJobStorage) MarkRunningJobsFailed(ctx context.Context, code, message string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, job := range m.jobs {
		if job.Status == models.JobStatusRunning {
			job.Status = models.JobStatusFailed
			job.Error = &models.JobError{Code: code, Message: message}
			m.jobs[id] = job
			count++
		}
	}
	return count, nil
}

func (m *memJobStorage) DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, job := range m.jobs {
		if job.Status.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			count++
		}
	}
	return count, nil
}

func newTestRunner(storage interfaces.JobStorage, sum *fakeSummarizer, providers ...ProviderAllocation) *Runner {
	cfg := testResearchConfig()
	logger := arbor.NewLogger()
	orch := NewOrchestrator(providers, nil, nil, nil, sum, cfg, logger)
	return NewRunner(storage, orch, sum, cfg, logger)
}

func seedJob(t *testing.T, storage interfaces.JobStorage, options models.JobOptions) *models.ResearchJob {
	t.Helper()
	job := models.NewResearchJob("job_test", "solar panels", options)
	require.NoError(t, storage.Create(context.Background(), job))
	return job
}

func topicProvider() ProviderAllocation {
	return ProviderAllocation{
		Provider: &fakeProvider{
			name:   "google",
			source: models.SourceTypeGeneral,
			results: []models.SearchResult{
				{Provider: "google", Source: models.SourceTypeGeneral, Title: "solar panels", URL: "https://a.com"},
			},
		},
		Quota: 1.0,
	}
}

func TestRunner_CompletesWithAnalysisAndDocument(t *testing.T) {
	storage := newMemJobStorage()
	sum := &fakeSummarizer{nextQueries: map[int]*string{}} // nil next query ends after round 1
	runner := newTestRunner(storage, sum, topicProvider())
	seedJob(t, storage, models.JobOptions{})

	err := runner.Run(context.Background(), "job_test")
	require.NoError(t, err)

	job, err := storage.Get(context.Background(), "job_test")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Analysis)
	assert.NotEmpty(t, job.Document)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Nil(t, job.Error)
	assert.Equal(t, 1, job.RoundsCompleted())
}

func TestRunner_FollowsNextQueryAcrossRounds(t *testing.T) {
	storage := newMemJobStorage()
	sum := &fakeSummarizer{nextQueries: map[int]*string{
		1: strPtr("solar panels efficiency"),
		2: strPtr("solar panels cost"),
		// round 3 returns nil and ends the loop within budget
	}}
	provider := topicProvider()
	runner := newTestRunner(storage, sum, provider)
	seedJob(t, storage, models.JobOptions{MaxRounds: 5})

	// Budget is clamped by config in the service path; here options pass through
	require.NoError(t, runner.Run(context.Background(), "job_test"))

	job, _ := storage.Get(context.Background(), "job_test")
	require.Equal(t, 3, job.RoundsCompleted())

	assert.Equal(t, "solar panels", job.Rounds[0].Query)
	assert.Equal(t, "solar panels efficiency", job.Rounds[1].Query)
	assert.Equal(t, "solar panels cost", job.Rounds[2].Query)
	assert.Nil(t, job.Rounds[2].NextQuery)
}

// repeatingProvider returns the same URL on every call, with content
// that grows per call.
type repeatingProvider struct {
	calls int
}

func (p *repeatingProvider) Name() string              { return "google" }
func (p *repeatingProvider) Source() models.SourceType { return models.SourceTypeGeneral }
func (p *repeatingProvider) Search(ctx context.Context, query string, opts interfaces.SearchOptions) ([]models.SearchResult, error) {
	p.calls++
	return []models.SearchResult{
		{
			Provider: "google",
			Source:   models.SourceTypeGeneral,
			Title:    "solar panels",
			URL:      "https://a.com",
			Content:  strings.Repeat("detail ", p.calls),
		},
		{Provider: "google", Source: models.SourceTypeGeneral, Title: "solar panels", URL: "https://b.com"},
	}, nil
}

func TestRunner_SynthesisDedupesAcrossRounds(t *testing.T) {
	storage := newMemJobStorage()
	sum := &fakeSummarizer{nextQueries: map[int]*string{
		1: strPtr("solar panels efficiency"),
		2: strPtr("solar panels cost"),
	}}
	runner := newTestRunner(storage, sum, ProviderAllocation{Provider: &repeatingProvider{}, Quota: 1.0})
	seedJob(t, storage, models.JobOptions{MaxRounds: 3})

	require.NoError(t, runner.Run(context.Background(), "job_test"))

	job, _ := storage.Get(context.Background(), "job_test")
	require.Equal(t, 3, job.RoundsCompleted())

	// Every round saw the same two URLs; synthesis gets each URL once
	seen := map[string]int{}
	for _, result := range sum.synthesized {
		seen[result.URL]++
	}
	assert.Len(t, sum.synthesized, 2)
	assert.Equal(t, 1, seen["https://a.com"])
	assert.Equal(t, 1, seen["https://b.com"])

	// The richest content for the URL survives the collapse
	for _, result := range sum.synthesized {
		if result.URL == "https://a.com" {
			assert.Equal(t, strings.Repeat("detail ", 3), result.Content)
		}
	}
}

func TestRunner_StopsAtRoundBudget(t *testing.T) {
	storage := newMemJobStorage()
	// Always proposes another query; the budget must stop the loop
	sum := &fakeSummarizer{nextQueries: map[int]*string{
		1: strPtr("more"), 2: strPtr("more"), 3: strPtr("more"), 4: strPtr("more"),
	}}
	runner := newTestRunner(storage, sum, topicProvider())
	seedJob(t, storage, models.JobOptions{MaxRounds: 2})

	require.NoError(t, runner.Run(context.Background(), "job_test"))

	job, _ := storage.Get(context.Background(), "job_test")
	assert.Equal(t, 2, job.RoundsCompleted())
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestRunner_EmptyRoundStopPolicy(t *testing.T) {
	storage := newMemJobStorage()
	sum := &fakeSummarizer{nextQueries: map[int]*string{
		1: strPtr("keep going"), 2: strPtr("keep going"),
	}}

	cfg := testResearchConfig()
	cfg.EmptyRoundPolicy = "stop"
	logger := arbor.NewLogger()
	emptyProvider := ProviderAllocation{
		Provider: &fakeProvider{name: "google", source: models.SourceTypeGeneral},
		Quota:    1.0,
	}
	orch := NewOrchestrator([]ProviderAllocation{emptyProvider}, nil, nil, nil, sum, cfg, logger)
	runner := NewRunner(storage, orch, sum, cfg, logger)
	seedJob(t, storage, models.JobOptions{MaxRounds: 3})

	require.NoError(t, runner.Run(context.Background(), "job_test"))

	job, _ := storage.Get(context.Background(), "job_test")
	assert.Equal(t, 1, job.RoundsCompleted())
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestRunner_GeneratesMarkdownWhenRequested(t *testing.T) {
	storage := newMemJobStorage()
	sum := &fakeSummarizer{}
	runner := newTestRunner(storage, sum, topicProvider())
	seedJob(t, storage, models.JobOptions{GenerateMarkdown: true})

	require.NoError(t, runner.Run(context.Background(), "job_test"))

	job, _ := storage.Get(context.Background(), "job_test")
	assert.NotEmpty(t, job.Markdown)
	assert.Contains(t, job.Markdown, "solar panels")
}

func TestRunner_MissingJob(t *testing.T) {
	storage := newMemJobStorage()
	runner := newTestRunner(storage, &fakeSummarizer{}, topicProvider())

	err := runner.Run(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRunner_PersistFailureMarksJobFailed(t *testing.T) {
	storage := newMemJobStorage()
	runner := newTestRunner(storage, &fakeSummarizer{}, topicProvider())
	seedJob(t, storage, models.JobOptions{})

	storage.updateErr = errors.New("disk full")
	err := runner.Run(context.Background(), "job_test")
	assert.Error(t, err)
}

func TestRunner_CancelledContext(t *testing.T) {
	storage := newMemJobStorage()
	sum := &fakeSummarizer{nextQueries: map[int]*string{1: strPtr("again")}}
	runner := newTestRunner(storage, sum, topicProvider())
	seedJob(t, storage, models.JobOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, "job_test")
	assert.Error(t, err)

	job, _ := storage.Get(context.Background(), "job_test")
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, models.JobErrorCodeInternal, job.Error.Code)
}

func TestProcessor_RecoversInterruptedJobs(t *testing.T) {
	storage := newMemJobStorage()
	orphan := models.NewResearchJob("job_orphan", "left behind", models.JobOptions{})
	orphan.Status = models.JobStatusRunning
	require.NoError(t, storage.Create(context.Background(), orphan))

	runner := newTestRunner(storage, &fakeSummarizer{}, topicProvider())
	processor := NewProcessor(runner, storage, 1, arbor.NewLogger())

	require.NoError(t, processor.Start())
	defer processor.Stop()

	job, err := storage.Get(context.Background(), "job_orphan")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, models.JobErrorCodeInterrupted, job.Error.Code)
}

func TestProcessor_RequeuesPendingJobsOnStart(t *testing.T) {
	storage := newMemJobStorage()
	// Jobs accepted before the last shutdown: durable in the store but
	// absent from the in-memory queue
	for _, id := range []string{"job_stranded_1", "job_stranded_2"} {
		job := models.NewResearchJob(id, "stranded topic", models.JobOptions{})
		require.NoError(t, storage.Create(context.Background(), job))
	}

	runner := newTestRunner(storage, &fakeSummarizer{}, topicProvider())
	processor := NewProcessor(runner, storage, 1, arbor.NewLogger())

	require.NoError(t, processor.Start())
	defer processor.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		done := 0
		for _, id := range []string{"job_stranded_1", "job_stranded_2"} {
			job, err := storage.Get(context.Background(), id)
			require.NoError(t, err)
			if job.Status.IsTerminal() {
				assert.Equal(t, models.JobStatusCompleted, job.Status)
				done++
			}
		}
		if done == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("pending jobs were not picked up after restart")
}

func TestProcessor_RunsEnqueuedJob(t *testing.T) {
	storage := newMemJobStorage()
	runner := newTestRunner(storage, &fakeSummarizer{}, topicProvider())
	processor := NewProcessor(runner, storage, 2, arbor.NewLogger())

	require.NoError(t, processor.Start())
	defer processor.Stop()

	seedJob(t, storage, models.JobOptions{})
	require.NoError(t, processor.Enqueue("job_test"))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := storage.Get(context.Background(), "job_test")
		require.NoError(t, err)
		if job.Status.IsTerminal() {
			assert.Equal(t, models.JobStatusCompleted, job.Status)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
}
