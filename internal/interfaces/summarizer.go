package interfaces

import (
	"context"

	"github.com/ternarybob/indago/internal/models"
)

// Summarizer wraps the completion model with a strict parse-or-fallback
// contract: every operation returns a usable value even when the model
// output is malformed. Callers never receive a hard failure from this
// component for bad model output.
type Summarizer interface {
	// AnalyzeRoundResults reviews one round's results against the topic
	// and proposes the next query. A nil NextQuery signals that no further
	// round is warranted.
	AnalyzeRoundResults(ctx context.Context, results []models.SearchResult, topic string, roundNumber int) models.RoundAnalysis

	// Synthesize produces the final cross-round analysis over the full
	// accumulated result set. All fields are populated, with conservative
	// defaults when parsing fails.
	Synthesize(ctx context.Context, allResults []models.SearchResult, topic string) models.AnalysisResult

	// RenderDocument produces a self-contained HTML report embedding
	// screenshot references by their public locators. Output always
	// begins with a document root marker.
	RenderDocument(ctx context.Context, analysis models.AnalysisResult, topic string, screenshots []models.ScreenshotRef) string
}
