package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// FallbackConfidence is recorded when model output cannot be parsed
const FallbackConfidence = 0.1

// maxContentChars bounds how much extracted page text goes into a prompt
const maxContentChars = 1500

// Service implements the Summarizer contract on top of a single
// text-completion primitive. Every operation follows parse-or-fallback:
// model transport errors and malformed output both degrade to a
// conservative flagged value, never a hard failure.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a summarizer backed by the given completion model
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llm:    llm,
		logger: logger,
	}
}

// AnalyzeRoundResults reviews one round's results and proposes the next
// query. On any model or parse failure it returns a canned finding with
// a deterministic follow-up query so the loop can still make progress.
func (s *Service) AnalyzeRoundResults(ctx context.Context, results []models.SearchResult, topic string, roundNumber int) models.RoundAnalysis {
	prompt := buildRoundPrompt(results, topic, roundNumber)

	response, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Int("round", roundNumber).Msg("Round analysis completion failed, using fallback")
		return roundFallback(topic)
	}

	analysis, err := parseRoundAnalysis(response)
	if err != nil {
		s.logger.Warn().Err(err).Int("round", roundNumber).Msg("Round analysis output unparseable, using fallback")
		return roundFallback(topic)
	}

	return analysis
}

// roundFallback is the canned per-round verdict: flag that more detail is
// needed and derive the next query by qualifying the topic.
func roundFallback(topic string) models.RoundAnalysis {
	next := topic + " detailed information"
	return models.RoundAnalysis{
		KeyFindings: "The results need more detailed analysis.",
		NextQuery:   &next,
		Fallback:    true,
	}
}

// Synthesize produces the final cross-round analysis. All fields are
// populated; parse failures yield a low-confidence flagged fallback.
func (s *Service) Synthesize(ctx context.Context, allResults []models.SearchResult, topic string) models.AnalysisResult {
	prompt := buildSynthesisPrompt(allResults, topic)

	response, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("Synthesis completion failed, using fallback")
		return synthesisFallback(topic, len(allResults))
	}

	result, err := parseAnalysisResult(response)
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("Synthesis output unparseable, using fallback")
		return synthesisFallback(topic, len(allResults))
	}

	return result
}

func synthesisFallback(topic string, resultCount int) models.AnalysisResult {
	return models.AnalysisResult{
		Summary:    fmt.Sprintf("Research on %q gathered %d results, but the analysis could not be completed reliably.", topic, resultCount),
		KeyPoints:  []string{"Automated analysis was unavailable; review the collected sources directly."},
		Confidence: FallbackConfidence,
		Fallback:   true,
	}
}

// RenderDocument produces a self-contained HTML report. When the model
// output is missing a document root marker it is wrapped in a minimal
// valid shell rather than failing.
func (s *Service) RenderDocument(ctx context.Context, analysis models.AnalysisResult, topic string, screenshots []models.ScreenshotRef) string {
	prompt := buildRenderPrompt(analysis, topic, screenshots)

	response, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("Document rendering completion failed, using template")
		return renderFallbackDocument(analysis, topic, screenshots)
	}

	document := cleanMarkdownFences(response)
	if !hasDocumentRoot(document) {
		s.logger.Debug().Str("topic", topic).Msg("Rendered document missing root marker, wrapping in shell")
		document = wrapInDocumentShell(document, topic)
	}

	return document
}

// buildRoundPrompt lists the round's results and asks for findings plus
// the next query as strict JSON.
func buildRoundPrompt(results []models.SearchResult, topic string, roundNumber int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a research assistant analyzing search results for the topic: %s\n", topic)
	fmt.Fprintf(&b, "This is search round %d.\n\n", roundNumber)

	if len(results) == 0 {
		b.WriteString("No results were found this round.\n")
	} else {
		fmt.Fprintf(&b, "Results (%d):\n", len(results))
		for i, r := range results {
			fmt.Fprintf(&b, "%d. %s\n   URL: %s\n", i+1, r.Title, r.URL)
			if r.Snippet != "" {
				fmt.Fprintf(&b, "   Snippet: %s\n", r.Snippet)
			}
			if r.Content != "" {
				fmt.Fprintf(&b, "   Content: %s\n", truncate(r.Content, maxContentChars))
			}
		}
	}

	b.WriteString(`
Respond with ONLY a JSON object, no prose, in this exact shape:
{
  "key_findings": "concise findings from this round",
  "next_query": "a refined search query for the next round, or null if the topic is sufficiently covered"
}
Set next_query to null when no further searching is warranted.`)

	return b.String()
}

// buildSynthesisPrompt asks for the full cross-round analysis as strict JSON
func buildSynthesisPrompt(allResults []models.SearchResult, topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a research assistant producing a final analysis of the topic: %s\n\n", topic)
	fmt.Fprintf(&b, "Accumulated results from all search rounds (%d):\n", len(allResults))
	for i, r := range allResults {
		fmt.Fprintf(&b, "%d. %s (%s)\n   URL: %s\n", i+1, r.Title, r.Provider, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   Snippet: %s\n", r.Snippet)
		}
		if r.Content != "" {
			fmt.Fprintf(&b, "   Content: %s\n", truncate(r.Content, maxContentChars))
		}
	}

	b.WriteString(`
Respond with ONLY a JSON object, no prose, in this exact shape:
{
  "summary": "a thorough summary of the research findings",
  "key_points": ["point 1", "point 2"],
  "categories": [{"name": "category name", "points": ["point"]}],
  "sources": [{"title": "source title", "url": "source url", "reliability": 0.8}],
  "confidence": 0.8
}
reliability and confidence are values between 0 and 1.`)

	return b.String()
}

// buildRenderPrompt asks for a self-contained HTML report
func buildRenderPrompt(analysis models.AnalysisResult, topic string, screenshots []models.ScreenshotRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce a polished, self-contained HTML research report on: %s\n\n", topic)
	fmt.Fprintf(&b, "Summary:\n%s\n\n", analysis.Summary)

	if len(analysis.KeyPoints) > 0 {
		b.WriteString("Key points:\n")
		for _, p := range analysis.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	for _, cat := range analysis.Categories {
		fmt.Fprintf(&b, "Category %s:\n", cat.Name)
		for _, p := range cat.Points {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}

	if len(analysis.Sources) > 0 {
		b.WriteString("\nSources:\n")
		for _, src := range analysis.Sources {
			fmt.Fprintf(&b, "- %s (%s)\n", src.Title, src.URL)
		}
	}

	if len(screenshots) > 0 {
		b.WriteString("\nEmbed these screenshots using img tags with the given src paths:\n")
		for _, shot := range screenshots {
			fmt.Fprintf(&b, "- %s (from %s)\n", shot.ImagePath, shot.SourceURL)
		}
	}

	fmt.Fprintf(&b, "\nConfidence: %.2f\n\n", analysis.Confidence)
	b.WriteString(`Requirements:
- Return ONLY the HTML document, starting with <!DOCTYPE html>.
- All styling must be inline or in a <style> block; no external assets other than the screenshot images.
- Include a sources section with clickable links.`)

	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
