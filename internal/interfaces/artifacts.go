package interfaces

import (
	"context"
	"fmt"

	"github.com/ternarybob/indago/internal/models"
)

// StorageError indicates an artifact write failed (byte budget exceeded
// or filesystem fault). Callers treat it as a per-screenshot failure.
type StorageError struct {
	NameHint string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store artifact %s: %v", e.NameHint, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ArtifactStore persists screenshot images plus generated thumbnails
// under timestamp-keyed paths and returns public-facing locators.
type ArtifactStore interface {
	// Store writes the image and its thumbnail. nameHint identifies the
	// source (typically a sanitized hostname) and is embedded in the path.
	Store(ctx context.Context, imageBytes []byte, nameHint string, sourceURL string) (*models.ScreenshotRef, error)
}
