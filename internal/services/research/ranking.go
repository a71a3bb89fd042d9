// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package research

import (
	"sort"
	"strings"

	"github.com/ternarybob/indago/internal/models"
)

// DedupeResults removes duplicate URLs from merged provider results.
// When the same URL appears more than once, the entry with the longer
// Content wins; on equal length the first-seen entry is kept.
func DedupeResults(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]int, len(results))
	deduped := make([]models.SearchResult, 0, len(results))

	for _, result := range results {
		idx, ok := seen[result.URL]
		if !ok {
			seen[result.URL] = len(deduped)
			deduped = append(deduped, result)
			continue
		}
		if len(result.Content) > len(deduped[idx].Content) {
			deduped[idx] = result
		}
	}

	return deduped
}

// RankResults scores each result against the query and sorts by score
// descending. The sort is stable so equal scores keep provider order.
func RankResults(results []models.SearchResult, query string) []models.SearchResult {
	queryTerms := tokenize(query)

	ranked := make([]models.SearchResult, len(results))
	copy(ranked, results)

	for i := range ranked {
		ranked[i].RelevanceScore = scoreResult(&ranked[i], queryTerms)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].RelevanceScore > ranked[b].RelevanceScore
	})

	return ranked
}

// scoreResult weights title matches double, then scales by how much the
// source type is trusted.
func scoreResult(result *models.SearchResult, queryTerms []string) float64 {
	titleTerms := tokenize(result.Title)
	combinedTerms := tokenize(result.Title + " " + result.Snippet)

	score := overlap(queryTerms, titleTerms)*2.0 + overlap(queryTerms, combinedTerms)

	return score * result.Source.TrustMultiplier()
}

// overlap returns the fraction of query terms present in the candidate
// term set.
func overlap(queryTerms, candidateTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	candidates := make(map[string]struct{}, len(candidateTerms))
	for _, term := range candidateTerms {
		candidates[term] = struct{}{}
	}

	matched := 0
	for _, term := range queryTerms {
		if _, ok := candidates[term]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(queryTerms))
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		term := strings.Trim(field, ".,;:!?\"'()[]{}")
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
