package summarizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/indago/internal/models"
)

// fencePattern matches a whole response wrapped in a markdown code fence
var fencePattern = regexp.MustCompile("(?s)^\\s*```(?:json|JSON|html|HTML)?\\s*\n?(.*?)\n?\\s*```\\s*$")

// cleanMarkdownFences removes code fences that models often wrap output in
func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```html")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// parseRoundAnalysis validates the per-round model output.
// Required: key_findings. next_query is nullable; null or empty means
// the loop should stop.
func parseRoundAnalysis(response string) (models.RoundAnalysis, error) {
	var parsed struct {
		KeyFindings *string `json:"key_findings"`
		NextQuery   *string `json:"next_query"`
	}

	cleaned := cleanMarkdownFences(response)
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return models.RoundAnalysis{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if parsed.KeyFindings == nil || strings.TrimSpace(*parsed.KeyFindings) == "" {
		return models.RoundAnalysis{}, fmt.Errorf("missing required field key_findings")
	}

	analysis := models.RoundAnalysis{
		KeyFindings: strings.TrimSpace(*parsed.KeyFindings),
	}
	if parsed.NextQuery != nil && strings.TrimSpace(*parsed.NextQuery) != "" {
		next := strings.TrimSpace(*parsed.NextQuery)
		analysis.NextQuery = &next
	}

	return analysis, nil
}

// parseAnalysisResult validates the final synthesis output.
// Required: summary. Confidence is clamped into [0,1]; key points are
// never nil.
func parseAnalysisResult(response string) (models.AnalysisResult, error) {
	var parsed struct {
		Summary    *string  `json:"summary"`
		KeyPoints  []string `json:"key_points"`
		Categories []struct {
			Name   string   `json:"name"`
			Points []string `json:"points"`
		} `json:"categories"`
		Sources []struct {
			Title       string   `json:"title"`
			URL         string   `json:"url"`
			Reliability *float64 `json:"reliability"`
		} `json:"sources"`
		Confidence *float64 `json:"confidence"`
	}

	cleaned := cleanMarkdownFences(response)
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if parsed.Summary == nil || strings.TrimSpace(*parsed.Summary) == "" {
		return models.AnalysisResult{}, fmt.Errorf("missing required field summary")
	}

	result := models.AnalysisResult{
		Summary:    strings.TrimSpace(*parsed.Summary),
		KeyPoints:  parsed.KeyPoints,
		Confidence: 0.5,
	}
	if result.KeyPoints == nil {
		result.KeyPoints = []string{}
	}
	if parsed.Confidence != nil {
		result.Confidence = clamp01(*parsed.Confidence)
	}

	for _, cat := range parsed.Categories {
		if cat.Name == "" {
			continue
		}
		result.Categories = append(result.Categories, models.AnalysisCategory{
			Name:   cat.Name,
			Points: cat.Points,
		})
	}

	for _, src := range parsed.Sources {
		if src.URL == "" {
			continue
		}
		reliability := 0.5
		if src.Reliability != nil {
			reliability = clamp01(*src.Reliability)
		}
		result.Sources = append(result.Sources, models.AnalysisSource{
			Title:       src.Title,
			URL:         src.URL,
			Reliability: reliability,
		})
	}

	return result, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
