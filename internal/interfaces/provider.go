package interfaces

import (
	"context"
	"fmt"

	"github.com/ternarybob/indago/internal/models"
)

// SearchOptions bounds a single provider call
type SearchOptions struct {
	MaxResults int
	Language   string
}

// ProviderError indicates a search provider failed (auth, quota, network).
// The orchestrator treats any provider failure as zero results from that
// provider; it never fails the round.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SearchProvider queries one external search source and returns
// normalized results. Implementations must respect opts.MaxResults.
type SearchProvider interface {
	// Name returns a stable identifier used in logs and result records
	Name() string

	// Source returns the provider's category for trust weighting
	Source() models.SourceType

	// Search runs one query against the provider
	Search(ctx context.Context, query string, opts SearchOptions) ([]models.SearchResult, error)
}
