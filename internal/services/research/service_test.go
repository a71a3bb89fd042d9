package research

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

func newTestService(storage interfaces.JobStorage) (*Service, *Processor) {
	runner := newTestRunner(storage, &fakeSummarizer{}, topicProvider())
	processor := NewProcessor(runner, storage, 1, arbor.NewLogger())
	return NewService(storage, processor, testResearchConfig(), arbor.NewLogger()), processor
}

func TestService_SubmitCreatesPendingJob(t *testing.T) {
	storage := newMemJobStorage()
	service, _ := newTestService(storage)

	jobID, err := service.Submit(context.Background(), interfaces.SubmitRequest{
		Topic: "renewable energy storage",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(jobID, "job_"))

	job, err := storage.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "renewable energy storage", job.Topic)
}

func TestService_SubmitValidation(t *testing.T) {
	storage := newMemJobStorage()
	service, _ := newTestService(storage)

	tests := []struct {
		name  string
		topic string
	}{
		{"Empty topic", ""},
		{"Single character", "a"},
		{"Over length limit", strings.Repeat("x", 501)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Submit(context.Background(), interfaces.SubmitRequest{Topic: tt.topic})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid research request")
		})
	}

	count, _ := storage.Count(context.Background())
	assert.Equal(t, 0, count)
}

func TestService_SubmitClampsOptions(t *testing.T) {
	storage := newMemJobStorage()
	service, _ := newTestService(storage)

	jobID, err := service.Submit(context.Background(), interfaces.SubmitRequest{
		Topic: "graph databases",
		Options: models.JobOptions{
			MaxRounds:          99,
			MaxResultsPerRound: 500,
		},
	})
	require.NoError(t, err)

	job, _ := storage.Get(context.Background(), jobID)
	assert.Equal(t, 3, job.Options.MaxRounds)
	assert.Equal(t, 8, job.Options.MaxResultsPerRound)
}

func TestService_StatusIsIdempotent(t *testing.T) {
	storage := newMemJobStorage()
	service, _ := newTestService(storage)

	jobID, err := service.Submit(context.Background(), interfaces.SubmitRequest{Topic: "container runtimes"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		progress, err := service.Status(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, jobID, progress.JobID)
		assert.Equal(t, models.JobStatusPending, progress.Status)
		assert.Equal(t, 0, progress.RoundsCompleted)
		assert.Equal(t, 3, progress.TotalRoundsBudget)
		assert.Nil(t, progress.Error)
	}
}

func TestService_StatusUnknownJob(t *testing.T) {
	storage := newMemJobStorage()
	service, _ := newTestService(storage)

	_, err := service.Status(context.Background(), "job_missing")
	assert.Error(t, err)
}

func TestService_ListFiltersByStatus(t *testing.T) {
	storage := newMemJobStorage()
	service, _ := newTestService(storage)

	completed := models.NewResearchJob("job_done", "done topic", models.JobOptions{})
	completed.Status = models.JobStatusCompleted
	require.NoError(t, storage.Create(context.Background(), completed))

	_, err := service.Submit(context.Background(), interfaces.SubmitRequest{Topic: "pending topic"})
	require.NoError(t, err)

	jobs, err := service.List(context.Background(), interfaces.JobListOptions{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job_done", jobs[0].ID)
}
