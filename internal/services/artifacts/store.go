// -----------------------------------------------------------------------
// Artifact Store
// Persists captured screenshots and thumbnails under timestamped paths
// -----------------------------------------------------------------------

package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"

	_ "image/jpeg"
	_ "image/png"
)

// Store writes screenshot images plus thumbnails to the filesystem.
// Paths are keyed by capture timestamp plus source, so no write
// contention arises across jobs.
type Store struct {
	baseDir        string
	publicPath     string
	maxImageBytes  int64
	thumbnailWidth int
	logger         arbor.ILogger
}

// NewStore creates a filesystem artifact store
func NewStore(fsConfig *common.FilesystemConfig, screenshotConfig *common.ScreenshotConfig, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(fsConfig.Screenshots, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	thumbnailWidth := screenshotConfig.ThumbnailWidth
	if thumbnailWidth <= 0 {
		thumbnailWidth = 320
	}

	return &Store{
		baseDir:        fsConfig.Screenshots,
		publicPath:     strings.TrimSuffix(fsConfig.PublicPath, "/"),
		maxImageBytes:  screenshotConfig.MaxImageBytes,
		thumbnailWidth: thumbnailWidth,
		logger:         logger,
	}, nil
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeNameHint reduces a name hint to filesystem-safe characters
func sanitizeNameHint(hint string) string {
	if hint == "" {
		return "capture"
	}
	safe := unsafePathChars.ReplaceAllString(hint, "_")
	if len(safe) > 64 {
		safe = safe[:64]
	}
	return safe
}

// NameHintFromURL derives a store name hint from a source URL's hostname
func NameHintFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "capture"
	}
	return sanitizeNameHint(parsed.Host)
}

// Store writes the image and a thumbnail, returning public locators.
// Fails with *interfaces.StorageError when the byte budget is exceeded
// or the filesystem write fails.
func (s *Store) Store(ctx context.Context, imageBytes []byte, nameHint string, sourceURL string) (*models.ScreenshotRef, error) {
	if len(imageBytes) == 0 {
		return nil, &interfaces.StorageError{NameHint: nameHint, Err: fmt.Errorf("empty image")}
	}
	if s.maxImageBytes > 0 && int64(len(imageBytes)) > s.maxImageBytes {
		return nil, &interfaces.StorageError{
			NameHint: nameHint,
			Err:      fmt.Errorf("image size %d exceeds budget %d", len(imageBytes), s.maxImageBytes),
		}
	}

	img, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, &interfaces.StorageError{NameHint: nameHint, Err: fmt.Errorf("decode image: %w", err)}
	}

	ext := "png"
	if format == "jpeg" {
		ext = "jpg"
	}

	capturedAt := time.Now()
	safeHint := sanitizeNameHint(nameHint)
	baseName := fmt.Sprintf("%s_%s", capturedAt.Format("20060102_150405.000"), safeHint)
	imageName := fmt.Sprintf("%s.%s", baseName, ext)
	thumbName := fmt.Sprintf("%s_thumb.jpg", baseName)

	imagePath := filepath.Join(s.baseDir, imageName)
	if err := os.WriteFile(imagePath, imageBytes, 0644); err != nil {
		return nil, &interfaces.StorageError{NameHint: nameHint, Err: fmt.Errorf("write image: %w", err)}
	}

	thumbBytes, err := makeThumbnail(img, s.thumbnailWidth)
	if err != nil {
		// Thumbnail failure should not lose the full image; point the
		// thumbnail locator at the image itself.
		s.logger.Warn().Err(err).Str("name_hint", nameHint).Msg("Thumbnail generation failed, using full image")
		thumbName = imageName
	} else {
		thumbPath := filepath.Join(s.baseDir, thumbName)
		if err := os.WriteFile(thumbPath, thumbBytes, 0644); err != nil {
			s.logger.Warn().Err(err).Str("name_hint", nameHint).Msg("Thumbnail write failed, using full image")
			thumbName = imageName
		}
	}

	bounds := img.Bounds()
	ref := &models.ScreenshotRef{
		SourceURL:     sourceURL,
		ImagePath:     s.publicPath + "/" + imageName,
		ThumbnailPath: s.publicPath + "/" + thumbName,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		ByteSize:      int64(len(imageBytes)),
		CapturedAt:    capturedAt,
	}

	s.logger.Debug().
		Str("image", imageName).
		Int("width", ref.Width).
		Int("height", ref.Height).
		Int64("byte_size", ref.ByteSize).
		Msg("Screenshot stored")

	return ref, nil
}
