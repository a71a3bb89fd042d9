package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/indago/internal/models"
)

func TestDedupeResults(t *testing.T) {
	tests := []struct {
		name     string
		input    []models.SearchResult
		wantURLs []string
		wantLen  int
	}{
		{
			name:     "No duplicates",
			input:    []models.SearchResult{{URL: "https://a.com"}, {URL: "https://b.com"}},
			wantURLs: []string{"https://a.com", "https://b.com"},
			wantLen:  2,
		},
		{
			name: "Duplicate keeps longer content",
			input: []models.SearchResult{
				{URL: "https://a.com", Content: "short"},
				{URL: "https://a.com", Content: "much longer content here"},
			},
			wantURLs: []string{"https://a.com"},
			wantLen:  1,
		},
		{
			name: "Tie keeps first seen",
			input: []models.SearchResult{
				{URL: "https://a.com", Title: "first", Content: "same"},
				{URL: "https://a.com", Title: "second", Content: "xame"},
			},
			wantURLs: []string{"https://a.com"},
			wantLen:  1,
		},
		{
			name:    "Empty input",
			input:   nil,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupeResults(tt.input)
			assert.Len(t, got, tt.wantLen)
			for i, url := range tt.wantURLs {
				assert.Equal(t, url, got[i].URL)
			}
		})
	}
}

func TestDedupeResults_LongerContentWins(t *testing.T) {
	input := []models.SearchResult{
		{URL: "https://a.com", Title: "thin", Content: ""},
		{URL: "https://b.com", Title: "other"},
		{URL: "https://a.com", Title: "rich", Content: "full page text"},
	}

	got := DedupeResults(input)

	assert.Len(t, got, 2)
	// Deduped entry keeps its original merge position
	assert.Equal(t, "https://a.com", got[0].URL)
	assert.Equal(t, "rich", got[0].Title)
	assert.Equal(t, "full page text", got[0].Content)
}

func TestDedupeResults_TieKeepsFirst(t *testing.T) {
	input := []models.SearchResult{
		{URL: "https://a.com", Title: "first", Content: "abcd"},
		{URL: "https://a.com", Title: "second", Content: "wxyz"},
	}

	got := DedupeResults(input)

	assert.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Title)
}

func TestRankResults_TitleWeightedDouble(t *testing.T) {
	results := []models.SearchResult{
		{URL: "https://snippet-only.com", Source: models.SourceTypeGeneral, Title: "unrelated", Snippet: "go concurrency patterns"},
		{URL: "https://title-match.com", Source: models.SourceTypeGeneral, Title: "go concurrency patterns", Snippet: "unrelated"},
	}

	ranked := RankResults(results, "go concurrency patterns")

	assert.Equal(t, "https://title-match.com", ranked[0].URL)
	assert.Greater(t, ranked[0].RelevanceScore, ranked[1].RelevanceScore)
}

func TestRankResults_TrustMultiplier(t *testing.T) {
	results := []models.SearchResult{
		{URL: "https://general.com", Source: models.SourceTypeGeneral, Title: "quantum computing overview"},
		{URL: "https://wiki.com", Source: models.SourceTypeEncyclopedic, Title: "quantum computing overview"},
		{URL: "https://other.com", Source: models.SourceTypeOther, Title: "quantum computing overview"},
	}

	ranked := RankResults(results, "quantum computing")

	assert.Equal(t, "https://wiki.com", ranked[0].URL)
	assert.Equal(t, "https://general.com", ranked[1].URL)
	assert.Equal(t, "https://other.com", ranked[2].URL)
}

func TestRankResults_StableOnTies(t *testing.T) {
	results := []models.SearchResult{
		{URL: "https://a.com", Source: models.SourceTypeGeneral, Title: "rust memory safety"},
		{URL: "https://b.com", Source: models.SourceTypeGeneral, Title: "rust memory safety"},
		{URL: "https://c.com", Source: models.SourceTypeGeneral, Title: "rust memory safety"},
	}

	ranked := RankResults(results, "rust memory safety")

	assert.Equal(t, "https://a.com", ranked[0].URL)
	assert.Equal(t, "https://b.com", ranked[1].URL)
	assert.Equal(t, "https://c.com", ranked[2].URL)
}

func TestRankResults_DoesNotMutateInput(t *testing.T) {
	results := []models.SearchResult{
		{URL: "https://low.com", Source: models.SourceTypeGeneral, Title: "nothing relevant"},
		{URL: "https://high.com", Source: models.SourceTypeGeneral, Title: "solar power storage"},
	}

	RankResults(results, "solar power storage")

	assert.Equal(t, "https://low.com", results[0].URL)
	assert.Equal(t, "https://high.com", results[1].URL)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, tokenize("Hello, World!"))
	assert.Equal(t, []string{"go's", "scheduler"}, tokenize("Go's scheduler"))
	assert.Empty(t, tokenize("   "))
}

func TestQuotaShare(t *testing.T) {
	assert.Equal(t, 5, quotaShare(8, 0.7))
	assert.Equal(t, 2, quotaShare(8, 0.3))
	// At least one result per provider regardless of quota
	assert.Equal(t, 1, quotaShare(2, 0.3))
	assert.Equal(t, 1, quotaShare(1, 0.1))
}
