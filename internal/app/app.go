// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/handlers"
	"github.com/ternarybob/indago/internal/httpclient"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/services/artifacts"
	"github.com/ternarybob/indago/internal/services/fetcher"
	"github.com/ternarybob/indago/internal/services/llm"
	"github.com/ternarybob/indago/internal/services/pdf"
	"github.com/ternarybob/indago/internal/services/providers"
	"github.com/ternarybob/indago/internal/services/research"
	"github.com/ternarybob/indago/internal/services/screenshot"
	"github.com/ternarybob/indago/internal/services/summarizer"
	"github.com/ternarybob/indago/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	LLMService        interfaces.LLMService
	SummarizerService interfaces.Summarizer
	FetcherService    interfaces.ContentFetcher
	ScreenshotService *screenshot.Service
	ArtifactStore     interfaces.ArtifactStore
	PDFService        *pdf.Service

	// Research pipeline
	Orchestrator    *research.Orchestrator
	Runner          *research.Runner
	Processor       *research.Processor
	Retention       *research.RetentionSweeper
	ResearchService interfaces.ResearchService

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	ResearchHandler *handlers.ResearchHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.Processor.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}

	if err := app.Retention.Start(); err != nil {
		return nil, fmt.Errorf("failed to start retention sweep: %w", err)
	}

	logger.Info().
		Str("llm_provider", app.LLMService.Name()).
		Int("workers", cfg.Research.WorkerConcurrency).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the Badger-backed storage layer
func (a *App) initStorage() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes business services in dependency order
func (a *App) initServices() error {
	var err error

	kvStorage := a.StorageManager.KVStorage()

	// Completion model behind the summarizer
	a.LLMService, err = llm.NewLLMService(a.Config, kvStorage, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.Logger.Debug().Str("provider", a.LLMService.Name()).Msg("LLM service initialized")

	a.SummarizerService = summarizer.NewService(a.LLMService, a.Logger)

	// Search providers with their quota shares
	allocations := make([]research.ProviderAllocation, 0, 2)

	if a.Config.Providers.Google.Enabled {
		googleProvider, err := providers.NewGoogleProvider(&a.Config.Providers.Google, kvStorage, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize google provider: %w", err)
		}
		allocations = append(allocations, research.ProviderAllocation{
			Provider: googleProvider,
			Quota:    a.Config.Providers.Google.Quota,
		})
	}

	if a.Config.Providers.Wikipedia.Enabled {
		wikipediaProvider := providers.NewWikipediaProvider(
			&a.Config.Providers.Wikipedia,
			httpclient.NewDefaultHTTPClient(a.Config.Providers.Wikipedia.RequestTimeout),
			a.Logger,
		)
		allocations = append(allocations, research.ProviderAllocation{
			Provider: wikipediaProvider,
			Quota:    a.Config.Providers.Wikipedia.Quota,
		})
	}

	if len(allocations) == 0 {
		return fmt.Errorf("no search providers enabled")
	}

	// Content enhancement fetcher
	a.FetcherService = fetcher.NewService(
		&a.Config.Fetcher,
		httpclient.NewFetchClient(a.Config.Fetcher.RequestTimeout),
		a.Logger,
	)

	// Screenshot capture and artifact storage
	a.ScreenshotService = screenshot.NewService(
		&a.Config.Screenshot,
		a.Config.Research.ScreenshotBatchSize,
		a.Config.Research.ScreenshotBatchPause,
		a.Logger,
	)

	a.ArtifactStore, err = artifacts.NewStore(&a.Config.Storage.Filesystem, &a.Config.Screenshot, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	a.PDFService = pdf.NewService(a.Logger)

	// Research pipeline: orchestrator -> runner -> worker pool -> service
	a.Orchestrator = research.NewOrchestrator(
		allocations,
		a.FetcherService,
		a.ScreenshotService,
		a.ArtifactStore,
		a.SummarizerService,
		&a.Config.Research,
		a.Logger,
	)

	a.Runner = research.NewRunner(
		a.StorageManager.JobStorage(),
		a.Orchestrator,
		a.SummarizerService,
		&a.Config.Research,
		a.Logger,
	)

	a.Processor = research.NewProcessor(
		a.Runner,
		a.StorageManager.JobStorage(),
		a.Config.Research.WorkerConcurrency,
		a.Logger,
	)

	a.Retention = research.NewRetentionSweeper(a.StorageManager, &a.Config.Research, a.Logger)

	a.ResearchService = research.NewService(
		a.StorageManager.JobStorage(),
		a.Processor,
		&a.Config.Research,
		a.Logger,
	)

	return nil
}

// initHandlers initializes HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ResearchHandler = handlers.NewResearchHandler(
		a.ResearchService,
		a.StorageManager.JobStorage(),
		a.PDFService,
		a.Logger,
	)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Retention != nil {
		a.Retention.Stop()
	}

	if a.Processor != nil {
		a.Processor.Stop()
	}

	if a.ScreenshotService != nil {
		if err := a.ScreenshotService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close screenshot service")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
