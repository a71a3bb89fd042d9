package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// GoogleProvider implements SearchProvider using the Gemini SDK with
// GoogleSearch grounding. Each search issues one grounded generation
// call and converts the grounding chunks into normalized results.
type GoogleProvider struct {
	config  *common.GoogleProviderConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGoogleProvider creates a Gemini-grounded search provider
func NewGoogleProvider(config *common.GoogleProviderConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GoogleProvider, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", "")
	if err != nil {
		return nil, fmt.Errorf("Google API key is required for web search provider: %w", err)
	}

	timeout := 2 * time.Minute
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid provider timeout '%s': %w", config.Timeout, err)
		}
		timeout = parsed
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GoogleProvider{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// Name returns the provider identifier
func (p *GoogleProvider) Name() string {
	return "google"
}

// Source returns the provider category for trust weighting
func (p *GoogleProvider) Source() models.SourceType {
	return models.SourceTypeGeneral
}

// Search runs one grounded web search
func (p *GoogleProvider) Search(ctx context.Context, query string, opts interfaces.SearchOptions) ([]models.SearchResult, error) {
	searchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	searchTool := &genai.Tool{GoogleSearch: &genai.GoogleSearch{}}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{searchTool},
	}

	// Include current date so the model has temporal context for
	// "latest" or "recent" queries
	currentDate := time.Now().Format("January 2, 2006")
	prompt := fmt.Sprintf(`You are a research assistant. Today's date is %s.
Search the web to answer the following query comprehensively.
Provide detailed information with specific facts, data, and sources.
Include all relevant URLs from your search.

Query: %s`, currentDate, query)
	if opts.Language != "" {
		prompt = fmt.Sprintf("%s\n\nRespond in language: %s", prompt, opts.Language)
	}

	p.logger.Debug().
		Str("query", query).
		Int("max_results", opts.MaxResults).
		Msg("Executing Gemini grounded web search")

	resp, err := p.client.Models.GenerateContent(
		searchCtx,
		p.config.Model,
		[]*genai.Content{
			genai.NewContentFromText(prompt, genai.RoleUser),
		},
		config,
	)
	if err != nil {
		return nil, &interfaces.ProviderError{Provider: p.Name(), Err: err}
	}

	results := p.extractResults(resp, opts.MaxResults)

	p.logger.Debug().
		Str("query", query).
		Int("result_count", len(results)).
		Msg("Gemini web search completed")

	return results, nil
}

// extractResults converts grounding metadata into normalized results.
// Snippets come from the grounding supports that cite each chunk.
func (p *GoogleProvider) extractResults(resp *genai.GenerateContentResponse, maxResults int) []models.SearchResult {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm.GroundingChunks == nil {
		return nil
	}

	// Map chunk index to the segments that cite it
	snippets := make(map[int][]string)
	for _, support := range gm.GroundingSupports {
		if support.Segment == nil || support.Segment.Text == "" {
			continue
		}
		for _, idx := range support.GroundingChunkIndices {
			snippets[int(idx)] = append(snippets[int(idx)], support.Segment.Text)
		}
	}

	var results []models.SearchResult
	for i, chunk := range gm.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		snippet := ""
		if parts, ok := snippets[i]; ok && len(parts) > 0 {
			snippet = parts[0]
		}
		results = append(results, models.SearchResult{
			Provider: p.Name(),
			Source:   p.Source(),
			Title:    chunk.Web.Title,
			URL:      chunk.Web.URI,
			Snippet:  snippet,
		})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}

	return results
}
