package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// ---- fakes shared by the research package tests ----

type fakeProvider struct {
	name    string
	source  models.SourceType
	results []models.SearchResult
	err     error

	mu          sync.Mutex
	gotQueries  []string
	gotMaxLimit int
}

func (f *fakeProvider) Name() string              { return f.name }
func (f *fakeProvider) Source() models.SourceType { return f.source }

func (f *fakeProvider) Search(ctx context.Context, query string, opts interfaces.SearchOptions) ([]models.SearchResult, error) {
	f.mu.Lock()
	f.gotQueries = append(f.gotQueries, query)
	f.gotMaxLimit = opts.MaxResults
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > opts.MaxResults {
		return f.results[:opts.MaxResults], nil
	}
	return f.results, nil
}

type fakeFetcher struct {
	content map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) string {
	return f.content[url]
}

type fakeCapturer struct {
	failing map[string]bool
}

func (f *fakeCapturer) Capture(ctx context.Context, url string, opts interfaces.CaptureOptions) ([]byte, error) {
	if f.failing[url] {
		return nil, errors.New("capture failed")
	}
	return []byte("image-bytes"), nil
}

func (f *fakeCapturer) CaptureMany(ctx context.Context, urls []string, opts interfaces.CaptureOptions) []interfaces.CaptureResult {
	results := make([]interfaces.CaptureResult, len(urls))
	for i, url := range urls {
		if f.failing[url] {
			results[i] = interfaces.CaptureResult{URL: url, Success: false, ErrorMessage: "capture failed"}
		} else {
			results[i] = interfaces.CaptureResult{URL: url, Success: true, Bytes: []byte("image-bytes")}
		}
	}
	return results
}

type fakeArtifacts struct {
	stored []string
	err    error
}

func (f *fakeArtifacts) Store(ctx context.Context, imageBytes []byte, nameHint, sourceURL string) (*models.ScreenshotRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.stored = append(f.stored, sourceURL)
	return &models.ScreenshotRef{
		SourceURL:  sourceURL,
		ImagePath:  "/screenshots/" + nameHint + ".jpg",
		ByteSize:   int64(len(imageBytes)),
		CapturedAt: time.Now(),
	}, nil
}

type fakeSummarizer struct {
	nextQueries map[int]*string // keyed by round number, missing = nil
	fallback    bool
	synthesized []models.SearchResult
}

func (f *fakeSummarizer) AnalyzeRoundResults(ctx context.Context, results []models.SearchResult, topic string, roundNumber int) models.RoundAnalysis {
	return models.RoundAnalysis{
		KeyFindings: fmt.Sprintf("findings for round %d", roundNumber),
		NextQuery:   f.nextQueries[roundNumber],
		Fallback:    f.fallback,
	}
}

func (f *fakeSummarizer) Synthesize(ctx context.Context, allResults []models.SearchResult, topic string) models.AnalysisResult {
	f.synthesized = allResults
	return models.AnalysisResult{
		Summary:    "synthesized summary of " + topic,
		KeyPoints:  []string{"point one"},
		Confidence: 0.8,
	}
}

func (f *fakeSummarizer) RenderDocument(ctx context.Context, analysis models.AnalysisResult, topic string, screenshots []models.ScreenshotRef) string {
	return "<!DOCTYPE html><html><body>" + analysis.Summary + "</body></html>"
}

func strPtr(s string) *string { return &s }

func testResearchConfig() *common.ResearchConfig {
	return &common.ResearchConfig{
		MaxRounds:          3,
		MaxResultsPerRound: 8,
		EnhanceContent:     false,
		ContentBatchSize:   5,
		ScreenshotTopN:     3,
		EmptyRoundPolicy:   common.EmptyRoundContinue,
		WorkerConcurrency:  1,
	}
}

func newTestOrchestrator(providers []ProviderAllocation, fetcher interfaces.ContentFetcher, capturer interfaces.ScreenshotCapturer, artifacts interfaces.ArtifactStore, cfg *common.ResearchConfig) *Orchestrator {
	return NewOrchestrator(
		providers,
		fetcher,
		capturer,
		artifacts,
		&fakeSummarizer{},
		cfg,
		arbor.NewLogger(),
	)
}

// ---- tests ----

func TestExecuteRound_MergesAndRanks(t *testing.T) {
	general := &fakeProvider{
		name:   "google",
		source: models.SourceTypeGeneral,
		results: []models.SearchResult{
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "solar panels", URL: "https://g1.com"},
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "unrelated", URL: "https://g2.com"},
		},
	}
	encyclopedic := &fakeProvider{
		name:   "wikipedia",
		source: models.SourceTypeEncyclopedic,
		results: []models.SearchResult{
			{Provider: "wikipedia", Source: models.SourceTypeEncyclopedic, Title: "solar panels", URL: "https://w1.com"},
		},
	}

	orch := newTestOrchestrator([]ProviderAllocation{
		{Provider: general, Quota: 0.7},
		{Provider: encyclopedic, Quota: 0.3},
	}, nil, nil, nil, testResearchConfig())

	round := orch.ExecuteRound(context.Background(), "solar panels", "solar panels", 1, models.JobOptions{MaxResultsPerRound: 8})

	require.Len(t, round.Results, 3)
	// Encyclopedic title match outranks general title match
	assert.Equal(t, "https://w1.com", round.Results[0].URL)
	assert.Equal(t, "https://g1.com", round.Results[1].URL)
	assert.Equal(t, 1, round.RoundNumber)
	assert.Equal(t, "solar panels", round.Query)
}

func TestExecuteRound_QuotaSplit(t *testing.T) {
	general := &fakeProvider{name: "google", source: models.SourceTypeGeneral}
	encyclopedic := &fakeProvider{name: "wikipedia", source: models.SourceTypeEncyclopedic}

	orch := newTestOrchestrator([]ProviderAllocation{
		{Provider: general, Quota: 0.7},
		{Provider: encyclopedic, Quota: 0.3},
	}, nil, nil, nil, testResearchConfig())

	orch.ExecuteRound(context.Background(), "t", "t", 1, models.JobOptions{MaxResultsPerRound: 10})

	assert.Equal(t, 7, general.gotMaxLimit)
	assert.Equal(t, 3, encyclopedic.gotMaxLimit)
}

func TestExecuteRound_ProviderFailureDegrades(t *testing.T) {
	failing := &fakeProvider{name: "google", source: models.SourceTypeGeneral, err: errors.New("quota exceeded")}
	working := &fakeProvider{
		name:   "wikipedia",
		source: models.SourceTypeEncyclopedic,
		results: []models.SearchResult{
			{Provider: "wikipedia", Source: models.SourceTypeEncyclopedic, Title: "topic", URL: "https://w1.com"},
		},
	}

	orch := newTestOrchestrator([]ProviderAllocation{
		{Provider: failing, Quota: 0.7},
		{Provider: working, Quota: 0.3},
	}, nil, nil, nil, testResearchConfig())

	round := orch.ExecuteRound(context.Background(), "topic", "topic", 1, models.JobOptions{})

	require.Len(t, round.Results, 1)
	assert.Equal(t, "https://w1.com", round.Results[0].URL)
}

func TestExecuteRound_AllProvidersFail(t *testing.T) {
	orch := newTestOrchestrator([]ProviderAllocation{
		{Provider: &fakeProvider{name: "google", source: models.SourceTypeGeneral, err: errors.New("down")}, Quota: 0.7},
		{Provider: &fakeProvider{name: "wikipedia", source: models.SourceTypeEncyclopedic, err: errors.New("down")}, Quota: 0.3},
	}, nil, nil, nil, testResearchConfig())

	round := orch.ExecuteRound(context.Background(), "topic", "topic", 1, models.JobOptions{})

	// The round completes with zero results and a usable analysis
	assert.Empty(t, round.Results)
	assert.NotEmpty(t, round.KeyFindings)
}

func TestExecuteRound_DuplicateURLsCollapsed(t *testing.T) {
	general := &fakeProvider{
		name:   "google",
		source: models.SourceTypeGeneral,
		results: []models.SearchResult{
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "shared", URL: "https://shared.com", Content: "short"},
		},
	}
	encyclopedic := &fakeProvider{
		name:   "wikipedia",
		source: models.SourceTypeEncyclopedic,
		results: []models.SearchResult{
			{Provider: "wikipedia", Source: models.SourceTypeEncyclopedic, Title: "shared", URL: "https://shared.com", Content: "longer page content"},
		},
	}

	orch := newTestOrchestrator([]ProviderAllocation{
		{Provider: general, Quota: 0.7},
		{Provider: encyclopedic, Quota: 0.3},
	}, nil, nil, nil, testResearchConfig())

	round := orch.ExecuteRound(context.Background(), "shared", "shared", 1, models.JobOptions{})

	require.Len(t, round.Results, 1)
	assert.Equal(t, "longer page content", round.Results[0].Content)
}

func TestExecuteRound_TruncatesToBudget(t *testing.T) {
	results := make([]models.SearchResult, 10)
	for i := range results {
		results[i] = models.SearchResult{
			Provider: "google",
			Source:   models.SourceTypeGeneral,
			Title:    "topic",
			URL:      fmt.Sprintf("https://r%d.com", i),
		}
	}
	provider := &fakeProvider{name: "google", source: models.SourceTypeGeneral, results: results}

	cfg := testResearchConfig()
	orch := newTestOrchestrator([]ProviderAllocation{{Provider: provider, Quota: 1.0}}, nil, nil, nil, cfg)

	round := orch.ExecuteRound(context.Background(), "topic", "topic", 1, models.JobOptions{MaxResultsPerRound: 4})

	assert.Len(t, round.Results, 4)
}

func TestExecuteRound_ContentEnhancement(t *testing.T) {
	provider := &fakeProvider{
		name:   "google",
		source: models.SourceTypeGeneral,
		results: []models.SearchResult{
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "topic", URL: "https://a.com"},
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "topic", URL: "https://b.com"},
		},
	}
	fetcher := &fakeFetcher{content: map[string]string{
		"https://a.com": "page text for a",
		// b.com fetch fails and yields empty content
	}}

	cfg := testResearchConfig()
	cfg.EnhanceContent = true

	orch := newTestOrchestrator([]ProviderAllocation{{Provider: provider, Quota: 1.0}}, fetcher, nil, nil, cfg)

	round := orch.ExecuteRound(context.Background(), "topic", "topic", 1, models.JobOptions{})

	require.Len(t, round.Results, 2)
	byURL := map[string]string{}
	for _, result := range round.Results {
		byURL[result.URL] = result.Content
	}
	assert.Equal(t, "page text for a", byURL["https://a.com"])
	assert.Empty(t, byURL["https://b.com"])
}

func TestExecuteRound_Screenshots(t *testing.T) {
	provider := &fakeProvider{
		name:   "google",
		source: models.SourceTypeGeneral,
		results: []models.SearchResult{
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "topic", URL: "https://a.com"},
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "topic", URL: "https://b.com"},
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "topic", URL: "https://c.com"},
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "topic", URL: "https://d.com"},
		},
	}
	capturer := &fakeCapturer{failing: map[string]bool{"https://b.com": true}}
	artifacts := &fakeArtifacts{}

	orch := newTestOrchestrator([]ProviderAllocation{{Provider: provider, Quota: 1.0}}, nil, capturer, artifacts, testResearchConfig())

	round := orch.ExecuteRound(context.Background(), "topic", "topic", 1, models.JobOptions{IncludeScreenshots: true})

	// Top 3 attempted, one failed, two stored
	assert.Len(t, round.Screenshots, 2)
	assert.Equal(t, []string{"https://a.com", "https://c.com"}, artifacts.stored)
	// Capture failures never touch the result list
	assert.Len(t, round.Results, 4)
}

func TestExecuteRound_ScreenshotsSkippedWhenDisabled(t *testing.T) {
	provider := &fakeProvider{
		name:   "google",
		source: models.SourceTypeGeneral,
		results: []models.SearchResult{
			{Provider: "google", Source: models.SourceTypeGeneral, Title: "topic", URL: "https://a.com"},
		},
	}
	capturer := &fakeCapturer{}
	artifacts := &fakeArtifacts{}

	orch := newTestOrchestrator([]ProviderAllocation{{Provider: provider, Quota: 1.0}}, nil, capturer, artifacts, testResearchConfig())

	round := orch.ExecuteRound(context.Background(), "topic", "topic", 1, models.JobOptions{IncludeScreenshots: false})

	assert.Empty(t, round.Screenshots)
	assert.Empty(t, artifacts.stored)
}
