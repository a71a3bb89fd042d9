package artifacts

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(
		&common.FilesystemConfig{Screenshots: dir, PublicPath: "/screenshots"},
		&common.ScreenshotConfig{MaxImageBytes: 1024 * 1024, ThumbnailWidth: 32},
		arbor.NewLogger(),
	)
	require.NoError(t, err)
	return store, dir
}

func TestStore_WritesImageAndThumbnail(t *testing.T) {
	store, dir := newTestStore(t)

	ref, err := store.Store(context.Background(), testPNG(t, 64, 48), "example.com", "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", ref.SourceURL)
	assert.Equal(t, 64, ref.Width)
	assert.Equal(t, 48, ref.Height)
	assert.True(t, strings.HasPrefix(ref.ImagePath, "/screenshots/"))
	assert.True(t, strings.HasSuffix(ref.ImagePath, ".png"))
	assert.True(t, strings.HasSuffix(ref.ThumbnailPath, "_thumb.jpg"))
	assert.Greater(t, ref.ByteSize, int64(0))

	// Both files landed on disk
	_, err = os.Stat(filepath.Join(dir, filepath.Base(ref.ImagePath)))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, filepath.Base(ref.ThumbnailPath)))
	assert.NoError(t, err)
}

func TestStore_RejectsEmptyImage(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Store(context.Background(), nil, "empty", "https://example.com")
	require.Error(t, err)

	var storageErr *interfaces.StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestStore_RejectsOversizeImage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(
		&common.FilesystemConfig{Screenshots: dir, PublicPath: "/screenshots"},
		&common.ScreenshotConfig{MaxImageBytes: 10, ThumbnailWidth: 32},
		arbor.NewLogger(),
	)
	require.NoError(t, err)

	_, err = store.Store(context.Background(), testPNG(t, 64, 64), "big", "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds budget")
}

func TestStore_RejectsNonImageBytes(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Store(context.Background(), []byte("definitely not an image"), "junk", "https://example.com")
	assert.Error(t, err)
}

func TestSanitizeNameHint(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Hostname", "example.com", "example.com"},
		{"Unsafe characters", "a/b\\c:d", "a_b_c_d"},
		{"Empty", "", "capture"},
		{"Long hint truncated", strings.Repeat("a", 100), strings.Repeat("a", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeNameHint(tt.in))
		})
	}
}

func TestNameHintFromURL(t *testing.T) {
	assert.Equal(t, "example.com", NameHintFromURL("https://example.com/some/page"))
	assert.Equal(t, "sub.example.com", NameHintFromURL("http://sub.example.com"))
	assert.Equal(t, "capture", NameHintFromURL("not a url"))
	assert.Equal(t, "capture", NameHintFromURL(""))
}

func TestMakeThumbnail_ScalesDown(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 128, 64))
	thumbBytes, err := makeThumbnail(img, 32)
	require.NoError(t, err)

	thumb, _, err := image.Decode(bytes.NewReader(thumbBytes))
	require.NoError(t, err)
	assert.Equal(t, 32, thumb.Bounds().Dx())
	assert.Equal(t, 16, thumb.Bounds().Dy())
}

func TestMakeThumbnail_SmallImagePassthrough(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	thumbBytes, err := makeThumbnail(img, 32)
	require.NoError(t, err)

	thumb, _, err := image.Decode(bytes.NewReader(thumbBytes))
	require.NoError(t, err)
	assert.Equal(t, 16, thumb.Bounds().Dx())
}
