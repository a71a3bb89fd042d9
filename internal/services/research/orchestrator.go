// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package research

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/ternarybob/indago/internal/services/artifacts"
)

// ProviderAllocation binds a search provider to its share of the
// per-round result budget.
type ProviderAllocation struct {
	Provider interfaces.SearchProvider
	Quota    float64
}

// Orchestrator runs a single research round: provider fan-out, merge,
// dedupe, rank, truncate, content enhancement, screenshots and round
// analysis. It never persists anything; the job runner owns storage.
type Orchestrator struct {
	providers  []ProviderAllocation
	fetcher    interfaces.ContentFetcher
	capturer   interfaces.ScreenshotCapturer
	artifacts  interfaces.ArtifactStore
	summarizer interfaces.Summarizer
	config     *common.ResearchConfig
	logger     arbor.ILogger
}

func NewOrchestrator(
	providers []ProviderAllocation,
	fetcher interfaces.ContentFetcher,
	capturer interfaces.ScreenshotCapturer,
	artifacts interfaces.ArtifactStore,
	summarizer interfaces.Summarizer,
	config *common.ResearchConfig,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		providers:  providers,
		fetcher:    fetcher,
		capturer:   capturer,
		artifacts:  artifacts,
		summarizer: summarizer,
		config:     config,
		logger:     logger,
	}
}

// ExecuteRound runs one complete round for the query. Provider and
// screenshot failures degrade the round but never fail it.
func (o *Orchestrator) ExecuteRound(ctx context.Context, topic, query string, roundNumber int, opts models.JobOptions) *models.SearchRound {
	startedAt := time.Now()

	round := &models.SearchRound{
		RoundNumber: roundNumber,
		Query:       query,
		StartedAt:   startedAt,
	}

	budget := opts.MaxResultsPerRound
	if budget <= 0 {
		budget = o.config.MaxResultsPerRound
	}

	merged := o.searchAll(ctx, query, budget, opts.Language)
	deduped := DedupeResults(merged)
	ranked := RankResults(deduped, query)
	if len(ranked) > budget {
		ranked = ranked[:budget]
	}

	if o.config.EnhanceContent && o.fetcher != nil {
		o.enhanceContent(ctx, ranked)
	}

	round.Results = ranked

	if opts.IncludeScreenshots && o.capturer != nil && o.artifacts != nil {
		round.Screenshots = o.captureScreenshots(ctx, ranked)
	}

	analysis := o.summarizer.AnalyzeRoundResults(ctx, ranked, topic, roundNumber)
	round.KeyFindings = analysis.KeyFindings
	round.NextQuery = analysis.NextQuery
	round.AnalysisFallback = analysis.Fallback

	round.ProcessingTimeMs = time.Since(startedAt).Milliseconds()

	o.logger.Info().
		Int("round", roundNumber).
		Str("query", query).
		Int("results", len(round.Results)).
		Int("screenshots", len(round.Screenshots)).
		Int64("duration_ms", round.ProcessingTimeMs).
		Msg("Research round completed")

	return round
}

// searchAll fans out to every enabled provider concurrently and merges
// results in provider registration order. A failing provider
// contributes zero results.
func (o *Orchestrator) searchAll(ctx context.Context, query string, budget int, language string) []models.SearchResult {
	perProvider := make([][]models.SearchResult, len(o.providers))

	var wg sync.WaitGroup
	for i, allocation := range o.providers {
		maxResults := quotaShare(budget, allocation.Quota)

		wg.Add(1)
		go func(idx int, provider interfaces.SearchProvider, limit int) {
			defer wg.Done()

			results, err := provider.Search(ctx, query, interfaces.SearchOptions{
				MaxResults: limit,
				Language:   language,
			})
			if err != nil {
				o.logger.Warn().
					Err(err).
					Str("provider", provider.Name()).
					Str("query", query).
					Msg("Provider search failed")
				return
			}
			perProvider[idx] = results
		}(i, allocation.Provider, maxResults)
	}
	wg.Wait()

	merged := make([]models.SearchResult, 0, budget)
	for _, results := range perProvider {
		merged = append(merged, results...)
	}
	return merged
}

// quotaShare converts a quota fraction into a result count, never
// below one.
func quotaShare(budget int, quota float64) int {
	share := int(float64(budget) * quota)
	if share < 1 {
		share = 1
	}
	return share
}

// enhanceContent fetches page content for results in fixed batches,
// pausing between batches to stay polite to origin servers.
func (o *Orchestrator) enhanceContent(ctx context.Context, results []models.SearchResult) {
	batchSize := o.config.ContentBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	for start := 0; start < len(results); start += batchSize {
		end := start + batchSize
		if end > len(results) {
			end = len(results)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				content := o.fetcher.Fetch(ctx, results[idx].URL)
				if content != "" {
					results[idx].Content = content
				}
			}(i)
		}
		wg.Wait()

		if end < len(results) && o.config.ContentBatchPause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.config.ContentBatchPause):
			}
		}
	}
}

// captureScreenshots captures the top ranked result pages and stores
// successful captures as artifacts. Failures are logged and skipped;
// the result list itself is never modified.
func (o *Orchestrator) captureScreenshots(ctx context.Context, results []models.SearchResult) []models.ScreenshotRef {
	topN := o.config.ScreenshotTopN
	if topN <= 0 {
		topN = 3
	}
	if topN > len(results) {
		topN = len(results)
	}
	if topN == 0 {
		return nil
	}

	urls := make([]string, 0, topN)
	for _, result := range results[:topN] {
		urls = append(urls, result.URL)
	}

	captures := o.capturer.CaptureMany(ctx, urls, interfaces.CaptureOptions{})

	refs := make([]models.ScreenshotRef, 0, len(captures))
	for _, capture := range captures {
		if !capture.Success {
			o.logger.Warn().
				Str("url", capture.URL).
				Str("error", capture.ErrorMessage).
				Msg("Screenshot capture failed")
			continue
		}

		ref, err := o.artifacts.Store(ctx, capture.Bytes, artifacts.NameHintFromURL(capture.URL), capture.URL)
		if err != nil {
			o.logger.Warn().
				Err(err).
				Str("url", capture.URL).
				Msg("Failed to store screenshot")
			continue
		}
		refs = append(refs, *ref)
	}

	return refs
}
