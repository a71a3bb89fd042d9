package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// WikipediaProvider implements SearchProvider against the MediaWiki
// search API. An encyclopedic source, so its results carry a higher
// trust multiplier during ranking.
type WikipediaProvider struct {
	config     *common.WikipediaProviderConfig
	logger     arbor.ILogger
	httpClient *http.Client
}

// NewWikipediaProvider creates a MediaWiki search provider
func NewWikipediaProvider(config *common.WikipediaProviderConfig, httpClient *http.Client, logger arbor.ILogger) *WikipediaProvider {
	return &WikipediaProvider{
		config:     config,
		logger:     logger,
		httpClient: httpClient,
	}
}

// Name returns the provider identifier
func (p *WikipediaProvider) Name() string {
	return "wikipedia"
}

// Source returns the provider category for trust weighting
func (p *WikipediaProvider) Source() models.SourceType {
	return models.SourceTypeEncyclopedic
}

// wikiSearchResponse mirrors the MediaWiki list=search response shape
type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			PageID  int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

// Search runs one query against the MediaWiki search API
func (p *WikipediaProvider) Search(ctx context.Context, query string, opts interfaces.SearchOptions) ([]models.SearchResult, error) {
	language := opts.Language
	if language == "" {
		language = p.config.Language
	}
	if language == "" {
		language = "en"
	}

	baseURL := fmt.Sprintf(p.config.BaseURL, language)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("utf8", "1")
	if opts.MaxResults > 0 {
		params.Set("srlimit", strconv.Itoa(opts.MaxResults))
	}

	requestURL := baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &interfaces.ProviderError{Provider: p.Name(), Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &interfaces.ProviderError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &interfaces.ProviderError{
			Provider: p.Name(),
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var parsed wikiSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &interfaces.ProviderError{Provider: p.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]models.SearchResult, 0, len(parsed.Query.Search))
	for _, item := range parsed.Query.Search {
		pageURL := fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", language, url.PathEscape(strings.ReplaceAll(item.Title, " ", "_")))
		results = append(results, models.SearchResult{
			Provider: p.Name(),
			Source:   p.Source(),
			Title:    item.Title,
			URL:      pageURL,
			Snippet:  stripSearchMarkup(item.Snippet),
		})
	}

	p.logger.Debug().
		Str("query", query).
		Str("language", language).
		Int("result_count", len(results)).
		Msg("Wikipedia search completed")

	return results, nil
}

// stripSearchMarkup removes the highlight spans MediaWiki embeds in snippets
func stripSearchMarkup(snippet string) string {
	s := strings.ReplaceAll(snippet, `<span class="searchmatch">`, "")
	s = strings.ReplaceAll(s, "</span>", "")
	return s
}
