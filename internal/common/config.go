package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/indago/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Research    ResearchConfig   `toml:"research"`
	Fetcher     FetcherConfig    `toml:"fetcher"`
	Screenshot  ScreenshotConfig `toml:"screenshot"`
	Providers   ProvidersConfig  `toml:"providers"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	Screenshots string `toml:"screenshots"` // Directory for captured screenshots and thumbnails
	PublicPath  string `toml:"public_path"` // URL path prefix under which screenshots are served
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// ResearchConfig controls the multi-round research loop
type ResearchConfig struct {
	MaxRounds            int           `toml:"max_rounds"`             // Default round budget per job
	MaxResultsPerRound   int           `toml:"max_results_per_round"`  // Default results retained per round
	EnhanceContent       bool          `toml:"enhance_content"`        // Fetch full-page text for retained results
	ContentBatchSize     int           `toml:"content_batch_size"`     // Concurrent content fetches per batch
	ContentBatchPause    time.Duration `toml:"content_batch_pause"`    // Pause between content fetch batches
	ScreenshotTopN       int           `toml:"screenshot_top_n"`       // Number of top results to screenshot per round
	ScreenshotBatchSize  int           `toml:"screenshot_batch_size"`  // Concurrent captures per batch
	ScreenshotBatchPause time.Duration `toml:"screenshot_batch_pause"` // Pause between capture batches
	EmptyRoundPolicy     string        `toml:"empty_round_policy"`     // "continue" or "stop" when a round yields zero results
	WorkerConcurrency    int           `toml:"worker_concurrency"`     // Concurrent research jobs
	RetentionMaxAge      time.Duration `toml:"retention_max_age"`      // Terminal jobs older than this are swept
	RetentionSchedule    string        `toml:"retention_schedule"`     // Cron schedule for the retention sweep
}

// FetcherConfig controls readable-text extraction from result URLs
type FetcherConfig struct {
	UserAgent      string        `toml:"user_agent"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	MaxBodySize    int64         `toml:"max_body_size"`    // Maximum response body size in bytes
	MaxContentSize int           `toml:"max_content_size"` // Maximum extracted text length in bytes
	RatePerSecond  float64       `toml:"rate_per_second"`  // Outbound fetch pacing
}

// ScreenshotConfig controls headless browser capture
type ScreenshotConfig struct {
	Headless       bool          `toml:"headless"`
	DisableGPU     bool          `toml:"disable_gpu"`
	NoSandbox      bool          `toml:"no_sandbox"`
	Width          int           `toml:"width"`
	Height         int           `toml:"height"`
	FullPage       bool          `toml:"full_page"`
	Quality        int           `toml:"quality"`
	CaptureTimeout time.Duration `toml:"capture_timeout"`
	MaxAttempts    int           `toml:"max_attempts"`
	RetryBaseDelay time.Duration `toml:"retry_base_delay"` // Delay scales linearly with attempt number
	MaxImageBytes  int64         `toml:"max_image_bytes"`  // Artifact store byte budget per image
	ThumbnailWidth int           `toml:"thumbnail_width"`
	UserAgent      string        `toml:"user_agent"`
}

// ProvidersConfig holds per-provider search settings
type ProvidersConfig struct {
	Google    GoogleProviderConfig    `toml:"google"`
	Wikipedia WikipediaProviderConfig `toml:"wikipedia"`
}

// GoogleProviderConfig configures the Gemini-grounded web search provider
type GoogleProviderConfig struct {
	Enabled bool    `toml:"enabled"`
	Model   string  `toml:"model"`
	Quota   float64 `toml:"quota"` // Share of each round's result budget (0..1)
	Timeout string  `toml:"timeout"`
}

// WikipediaProviderConfig configures the MediaWiki search provider
type WikipediaProviderConfig struct {
	Enabled        bool          `toml:"enabled"`
	BaseURL        string        `toml:"base_url"` // %s is replaced with the language code
	Language       string        `toml:"language"`
	Quota          float64       `toml:"quota"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider backing the summarizer
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude"
}

// Empty-round policies (see ResearchConfig.EmptyRoundPolicy)
const (
	EmptyRoundContinue = "continue" // Re-run the next round with the same query
	EmptyRoundStop     = "stop"     // Break the loop and synthesize what was gathered
)

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in indago.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Filesystem: FilesystemConfig{
				Screenshots: "./data/screenshots",
				PublicPath:  "/data/screenshots",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Research: ResearchConfig{
			MaxRounds:            3,
			MaxResultsPerRound:   8,
			EnhanceContent:       true,
			ContentBatchSize:     5,
			ContentBatchPause:    500 * time.Millisecond,
			ScreenshotTopN:       3,
			ScreenshotBatchSize:  3,
			ScreenshotBatchPause: 2 * time.Second,
			EmptyRoundPolicy:     EmptyRoundContinue,
			WorkerConcurrency:    4,
			RetentionMaxAge:      7 * 24 * time.Hour,
			RetentionSchedule:    "0 */6 * * *",
		},
		Fetcher: FetcherConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
			MaxBodySize:    10 * 1024 * 1024,
			MaxContentSize: 20000,
			RatePerSecond:  2,
		},
		Screenshot: ScreenshotConfig{
			Headless:       true,
			DisableGPU:     true,
			NoSandbox:      false,
			Width:          1280,
			Height:         800,
			FullPage:       false,
			Quality:        80,
			CaptureTimeout: 30 * time.Second,
			MaxAttempts:    3,
			RetryBaseDelay: 1 * time.Second,
			MaxImageBytes:  10 * 1024 * 1024,
			ThumbnailWidth: 320,
			UserAgent:      "Indago-Research/1.0",
		},
		Providers: ProvidersConfig{
			Google: GoogleProviderConfig{
				Enabled: true,
				Model:   "gemini-2.5-flash",
				Quota:   0.7,
				Timeout: "2m",
			},
			Wikipedia: WikipediaProviderConfig{
				Enabled:        true,
				BaseURL:        "https://%s.wikipedia.org/w/api.php",
				Language:       "en",
				Quota:          0.3,
				RequestTimeout: 15 * time.Second,
			},
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.5-flash",
			Timeout:     "5m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-3-5-haiku-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INDAGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("INDAGO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("INDAGO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("INDAGO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if screenshotsDir := os.Getenv("INDAGO_SCREENSHOTS_DIR"); screenshotsDir != "" {
		config.Storage.Filesystem.Screenshots = screenshotsDir
	}

	if level := os.Getenv("INDAGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if maxRounds := os.Getenv("INDAGO_RESEARCH_MAX_ROUNDS"); maxRounds != "" {
		if n, err := strconv.Atoi(maxRounds); err == nil && n > 0 {
			config.Research.MaxRounds = n
		}
	}
	if concurrency := os.Getenv("INDAGO_RESEARCH_WORKER_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil && n > 0 {
			config.Research.WorkerConcurrency = n
		}
	}

	if apiKey := os.Getenv("INDAGO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("INDAGO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if provider := os.Getenv("INDAGO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables -> KV store -> config fallback -> error.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"INDAGO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"INDAGO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}
