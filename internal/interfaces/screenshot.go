package interfaces

import (
	"context"
	"fmt"
)

// CaptureOptions controls a single screenshot capture
type CaptureOptions struct {
	Width    int
	Height   int
	FullPage bool
	Quality  int // JPEG quality 1-100
}

// CaptureError indicates capture failed after exhausting the retry budget
type CaptureError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// CaptureResult is one entry in a batch capture response.
// Exactly one of Bytes or ErrorMessage is meaningful, selected by Success.
type CaptureResult struct {
	URL          string
	Success      bool
	Bytes        []byte
	ErrorMessage string
}

// ScreenshotCapturer produces page screenshots via a headless browser.
type ScreenshotCapturer interface {
	// Capture renders the URL and returns image bytes. Retries transient
	// failures internally; returns a *CaptureError once retries are exhausted.
	Capture(ctx context.Context, url string, opts CaptureOptions) ([]byte, error)

	// CaptureMany captures a set of URLs in fixed-size concurrent batches
	// with an inter-batch pause. The returned slice preserves input order
	// regardless of completion order and has one entry per input URL.
	CaptureMany(ctx context.Context, urls []string, opts CaptureOptions) []CaptureResult
}
