package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// GeminiService implements the LLMService interface using the Google
// Gemini API via the genai SDK.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
	retry   *GeminiRetryConfig
}

// NewGeminiService creates a new Gemini LLM service instance.
// The API key is resolved from environment variables first, then the KV
// store, then the config fallback.
func NewGeminiService(geminiConfig *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Google API key is required for Gemini service (set via GEMINI_API_KEY, INDAGO_GEMINI_API_KEY, or gemini.api_key in config): %w", err)
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-2.5-flash"
	}

	timeout, err := time.ParseDuration(geminiConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", geminiConfig.Timeout, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		timeout: timeout,
		retry:   NewDefaultRetryConfig(),
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Float32("temperature", geminiConfig.Temperature).
		Msg("Gemini LLM service initialized successfully")

	return service, nil
}

// Name returns the provider identifier
func (s *GeminiService) Name() string {
	return "gemini"
}

// Complete sends a prompt and returns the raw model text.
// Rate-limit errors are retried with API-suggested backoff; transport
// failures are wrapped in *interfaces.ModelError.
func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &interfaces.ModelError{Provider: s.Name(), Err: fmt.Errorf("prompt cannot be empty")}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	startTime := time.Now()

	var resp *genai.GenerateContentResponse
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		resp, apiErr = s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
		if apiErr == nil {
			break
		}

		// Hard quota exhaustion cannot be retried away
		if IsQuotaExhaustedError(apiErr) {
			s.logger.Error().Err(apiErr).Msg("Gemini quota exhausted (limit: 0) - check billing/plan for this model")
			return "", &interfaces.ModelError{Provider: s.Name(), Err: apiErr}
		}

		if attempt == s.retry.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			apiDelay := ExtractRetryDelay(apiErr)
			backoff = s.retry.CalculateBackoff(attempt, apiDelay)
			s.logger.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(apiErr).
				Msg("Gemini rate limit hit, waiting before retry")
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
			s.logger.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(apiErr).
				Msg("Retrying Gemini completion")
		}

		select {
		case <-timeoutCtx.Done():
			return "", &interfaces.ModelError{Provider: s.Name(), Err: timeoutCtx.Err()}
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		s.logger.Error().Err(apiErr).Msg("Gemini completion failed")
		return "", &interfaces.ModelError{Provider: s.Name(), Err: apiErr}
	}

	var response strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				response.WriteString(part.Text)
			}
		}
	}

	if response.Len() == 0 {
		return "", &interfaces.ModelError{Provider: s.Name(), Err: fmt.Errorf("no response generated")}
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini completion completed successfully")

	return response.String(), nil
}

// Close releases resources and performs cleanup operations
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini LLM service")
	// genai.Client doesn't require explicit cleanup
	s.client = nil
	return nil
}
