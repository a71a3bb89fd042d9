package screenshot

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// Service captures page screenshots with a headless Chrome instance.
// A single exec allocator is shared; each capture runs in its own tab
// context so batch captures can proceed concurrently.
type Service struct {
	config     *common.ScreenshotConfig
	logger     arbor.ILogger
	retry      *RetryPolicy
	batchSize  int
	batchPause time.Duration

	initOnce      sync.Once
	initErr       error
	allocatorCtx  context.Context
	allocatorStop context.CancelFunc
	browserCtx    context.Context
	browserStop   context.CancelFunc
}

// NewService creates a screenshot capturer. batchSize and batchPause
// bound CaptureMany's concurrency and inter-batch delay.
func NewService(config *common.ScreenshotConfig, batchSize int, batchPause time.Duration, logger arbor.ILogger) *Service {
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := config.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if batchSize <= 0 {
		batchSize = 3
	}

	return &Service{
		config:     config,
		logger:     logger,
		retry:      NewRetryPolicy(maxAttempts, baseDelay),
		batchSize:  batchSize,
		batchPause: batchPause,
	}
}

// init starts the shared browser on first use
func (s *Service) init() error {
	s.initOnce.Do(func() {
		allocatorOpts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", s.config.Headless),
			chromedp.Flag("disable-gpu", s.config.DisableGPU),
			chromedp.Flag("no-sandbox", s.config.NoSandbox),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(s.config.UserAgent),
		)

		s.allocatorCtx, s.allocatorStop = chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
		s.browserCtx, s.browserStop = chromedp.NewContext(s.allocatorCtx)

		// Startup probe so a broken Chrome install fails fast
		probeCtx, cancel := context.WithTimeout(s.browserCtx, 30*time.Second)
		defer cancel()
		if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
			s.initErr = fmt.Errorf("browser failed startup test: %w", err)
			s.browserStop()
			s.allocatorStop()
			return
		}

		s.logger.Info().
			Bool("headless", s.config.Headless).
			Int("width", s.config.Width).
			Int("height", s.config.Height).
			Msg("Screenshot browser initialized")
	})
	return s.initErr
}

// validateURL checks the scheme before each capture attempt
func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// Capture renders the URL and returns image bytes. Each attempt
// re-validates the URL scheme; an empty byte result counts as a failure.
// Returns *interfaces.CaptureError after exhausting retries.
func (s *Service) Capture(ctx context.Context, targetURL string, opts interfaces.CaptureOptions) ([]byte, error) {
	if err := s.init(); err != nil {
		return nil, &interfaces.CaptureError{URL: targetURL, Attempts: 0, Err: err}
	}

	var imageBytes []byte
	err := s.retry.Execute(ctx, s.logger, func(attempt int) error {
		if err := validateURL(targetURL); err != nil {
			return err
		}

		buf, err := s.captureOnce(ctx, targetURL, opts)
		if err != nil {
			return err
		}
		if len(buf) == 0 {
			return fmt.Errorf("capture returned empty image")
		}

		imageBytes = buf
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("url", targetURL).Msg("Screenshot capture failed")
		return nil, &interfaces.CaptureError{URL: targetURL, Attempts: s.retry.MaxAttempts, Err: err}
	}

	s.logger.Debug().
		Str("url", targetURL).
		Int("byte_size", len(imageBytes)).
		Msg("Screenshot captured")

	return imageBytes, nil
}

// captureOnce performs a single capture attempt in a fresh tab
func (s *Service) captureOnce(ctx context.Context, targetURL string, opts interfaces.CaptureOptions) ([]byte, error) {
	width := opts.Width
	if width <= 0 {
		width = s.config.Width
	}
	height := opts.Height
	if height <= 0 {
		height = s.config.Height
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = s.config.Quality
	}

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	timeout := s.config.CaptureTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	// Propagate caller cancellation into the tab
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var buf []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(targetURL),
		chromedp.Sleep(2 * time.Second), // Let late-loading content settle
	}

	if opts.FullPage || s.config.FullPage {
		tasks = append(tasks, chromedp.FullScreenshot(&buf, quality))
	} else {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(int64(quality)).
				Do(ctx)
			return err
		}))
	}

	if err := chromedp.Run(runCtx, tasks); err != nil {
		return nil, err
	}

	return buf, nil
}

// CaptureMany captures URLs in fixed-size concurrent batches with an
// inter-batch pause to bound load on target sites. The returned slice
// has one entry per input URL in input order.
func (s *Service) CaptureMany(ctx context.Context, urls []string, opts interfaces.CaptureOptions) []interfaces.CaptureResult {
	results := make([]interfaces.CaptureResult, len(urls))

	for batchStart := 0; batchStart < len(urls); batchStart += s.batchSize {
		batchEnd := batchStart + s.batchSize
		if batchEnd > len(urls) {
			batchEnd = len(urls)
		}

		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				bytes, err := s.Capture(ctx, urls[idx], opts)
				if err != nil {
					results[idx] = interfaces.CaptureResult{
						URL:          urls[idx],
						Success:      false,
						ErrorMessage: err.Error(),
					}
					return
				}
				results[idx] = interfaces.CaptureResult{
					URL:     urls[idx],
					Success: true,
					Bytes:   bytes,
				}
			}(i)
		}
		wg.Wait()

		if batchEnd < len(urls) && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				// Mark remaining URLs as failed and stop
				for i := batchEnd; i < len(urls); i++ {
					results[i] = interfaces.CaptureResult{
						URL:          urls[i],
						Success:      false,
						ErrorMessage: ctx.Err().Error(),
					}
				}
				return results
			case <-time.After(s.batchPause):
			}
		}
	}

	return results
}

// Close shuts down the shared browser
func (s *Service) Close() error {
	if s.browserStop != nil {
		s.browserStop()
	}
	if s.allocatorStop != nil {
		s.allocatorStop()
	}
	return nil
}
