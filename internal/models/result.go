package models

import "time"

// SourceType classifies a search provider for ranking purposes
type SourceType string

const (
	// SourceTypeGeneral is a general-purpose web search provider
	SourceTypeGeneral SourceType = "general"
	// SourceTypeEncyclopedic is a reference/encyclopedia provider
	SourceTypeEncyclopedic SourceType = "encyclopedic"
	// SourceTypeOther covers providers outside the known categories
	SourceTypeOther SourceType = "other"
)

// TrustMultiplier returns the ranking weight applied to results from this source.
// Encyclopedic sources rank above general web, both above unknown sources.
func (s SourceType) TrustMultiplier() float64 {
	switch s {
	case SourceTypeEncyclopedic:
		return 1.5
	case SourceTypeGeneral:
		return 1.0
	default:
		return 0.5
	}
}

// SearchResult represents a single normalized result from a search provider.
// Identity within a round is the URL; duplicates are collapsed during merging.
type SearchResult struct {
	Provider       string     `json:"provider"`    // Provider name that produced this result
	Source         SourceType `json:"source"`      // Provider category for trust weighting
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	Snippet        string     `json:"snippet"`
	Content        string     `json:"content,omitempty"` // Full-page text, populated by content enhancement
	RelevanceScore float64    `json:"relevance_score"`
}

// ScreenshotRef points at a stored screenshot and its thumbnail
type ScreenshotRef struct {
	SourceURL     string    `json:"source_url"`
	ImagePath     string    `json:"image_path"`     // Public locator for the full image
	ThumbnailPath string    `json:"thumbnail_path"` // Public locator for the thumbnail
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	ByteSize      int64     `json:"byte_size"`
	CapturedAt    time.Time `json:"captured_at"`
}
