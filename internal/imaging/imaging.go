// Package imaging prepares catalog images for the till display:
// downscale to thumbnail size, re-encode as JPEG, cache in SQLite so
// the till renders menus without a network round trip.
package imaging

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/counterline/counterline/internal/store"
)

// MaxDimension is the maximum width or height for cached thumbnails.
// Till tiles never render larger than this.
const MaxDimension = 512

// JPEGQuality is the compression quality for re-encoded thumbnails.
const JPEGQuality = 80

// maxDownload caps how much image data a single fetch may read.
const maxDownload = 10 << 20

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Prepare validates image bytes by sniffing, downscales anything larger
// than MaxDimension, and re-encodes as JPEG. The client header is never
// trusted; only the sniffed type counts.
func Prepare(data []byte) ([]byte, string, error) {
	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, "", fmt.Errorf("unsupported image format %s", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// downscale resizes so neither dimension exceeds maxDim, preserving
// aspect ratio with Catmull-Rom interpolation. Images already within
// bounds pass through untouched; thumbnails are never upscaled.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Cache fetches catalog images by their normalized ref, prepares them,
// and stores the thumbnails in the image_cache table.
type Cache struct {
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *zap.Logger

	now func() time.Time
}

// NewCache wires an image cache over the local store.
func NewCache(db *sql.DB, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		DB:         db,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
		now:        time.Now,
	}
}

// RefURL resolves a normalized image ref to a fetchable URL. Refs of
// the form img:<id> are Drive file ids; anything else is already a URL.
func RefURL(ref string) string {
	if id, ok := strings.CutPrefix(ref, "img:"); ok {
		return "https://drive.google.com/uc?export=download&id=" + id
	}
	return ref
}

// Ensure returns cached thumbnail bytes for a ref, fetching and
// preparing the image on a cache miss. An empty ref yields nil data.
func (c *Cache) Ensure(ctx context.Context, ref string) ([]byte, string, error) {
	if ref == "" {
		return nil, "", nil
	}

	data, mime, err := store.GetImage(ctx, c.DB, ref)
	if err != nil {
		return nil, "", err
	}
	if data != nil {
		return data, mime, nil
	}

	raw, err := c.fetch(ctx, RefURL(ref))
	if err != nil {
		return nil, "", err
	}

	data, mime, err = Prepare(raw)
	if err != nil {
		return nil, "", fmt.Errorf("image %s: %w", ref, err)
	}
	if err := store.PutImage(ctx, c.DB, ref, data, mime, c.now().UnixMilli()); err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

// Warm ensures every given ref is cached, continuing past individual
// failures; a broken image link must not stall menu sync.
func (c *Cache) Warm(ctx context.Context, refs []string) int {
	var cached int
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, _, err := c.Ensure(ctx, ref); err != nil {
			c.Logger.Warn("caching menu image", zap.String("ref", ref), zap.Error(err))
			continue
		}
		cached++
	}
	return cached
}

func (c *Cache) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building image request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	return data, nil
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
