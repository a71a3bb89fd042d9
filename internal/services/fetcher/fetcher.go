package fetcher

import (
	"context"
	"io"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/indago/internal/common"
)

// Service extracts readable text from result URLs. Failures of any kind
// (network, status, parse, oversized body) degrade to an empty string;
// the caller never sees an error from Fetch.
type Service struct {
	config      *common.FetcherConfig
	logger      arbor.ILogger
	httpClient  *http.Client
	limiter     *rate.Limiter
	mdConverter *md.Converter
}

// NewService creates a content fetcher
func NewService(config *common.FetcherConfig, httpClient *http.Client, logger arbor.ILogger) *Service {
	ratePerSecond := config.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}

	converter := md.NewConverter("", true, nil)

	return &Service{
		config:      config,
		logger:      logger,
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1),
		mdConverter: converter,
	}
}

// Fetch downloads the URL and extracts readable text as markdown.
// Returns "" on any failure.
func (s *Service) Fetch(ctx context.Context, targetURL string) string {
	if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
		s.logger.Debug().Str("url", targetURL).Msg("Skipping fetch for non-http URL")
		return ""
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", targetURL).Msg("Failed to build fetch request")
		return ""
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", targetURL).Msg("Content fetch failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug().Int("status", resp.StatusCode).Str("url", targetURL).Msg("Content fetch returned non-200")
		return ""
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		s.logger.Debug().Str("content_type", contentType).Str("url", targetURL).Msg("Skipping non-HTML content")
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxBodySize))
	if err != nil {
		s.logger.Debug().Err(err).Str("url", targetURL).Msg("Failed to read response body")
		return ""
	}

	text := s.extractText(string(body))

	if s.config.MaxContentSize > 0 && len(text) > s.config.MaxContentSize {
		text = text[:s.config.MaxContentSize]
	}

	return text
}

// extractText strips boilerplate and converts the main content to markdown
func (s *Service) extractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Debug().Err(err).Msg("Failed to parse HTML")
		return ""
	}

	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()
	doc.Find("[class*=ad], [id*=ad], [class*=promo], [class*=sidebar]").Remove()

	// Prefer a main content container when one exists
	selection := doc.Find("main, article, [role=main]").First()
	if selection.Length() == 0 {
		selection = doc.Find("body").First()
	}
	if selection.Length() == 0 {
		return ""
	}

	contentHTML, err := selection.Html()
	if err != nil {
		return ""
	}

	markdown, err := s.mdConverter.ConvertString(contentHTML)
	if err != nil {
		// Fall back to plain text when conversion chokes
		return strings.TrimSpace(selection.Text())
	}

	return strings.TrimSpace(markdown)
}
