// Package media downloads product images and shrinks them to spreadsheet thumbnails.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/fetcher"
	"github.com/IshaanNene/ShelfScout/internal/observability"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// Thumbnailer fetches images through a session and re-encodes them as PNG
// thumbnails. Results are memoized per URL.
type Thumbnailer struct {
	session fetcher.Fetcher
	maxPx   int
	timeout time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	done map[string][]byte
}

// NewThumbnailer creates a Thumbnailer. The session is owned by the caller.
func NewThumbnailer(session fetcher.Fetcher, cfg config.ExportConfig, metrics *observability.Metrics, logger *slog.Logger) *Thumbnailer {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	maxPx := cfg.ImageMaxPx
	if maxPx <= 0 {
		maxPx = 120
	}
	return &Thumbnailer{
		session: session,
		maxPx:   maxPx,
		timeout: cfg.ImageTimeout,
		metrics: metrics,
		logger:  logger.With("component", "thumbnailer"),
		done:    make(map[string][]byte),
	}
}

// Thumbnail downloads imageURL and returns PNG bytes whose longest side is at
// most the configured size. Smaller images keep their size.
func (t *Thumbnailer) Thumbnail(ctx context.Context, imageURL string) ([]byte, error) {
	t.mu.Lock()
	if data, ok := t.done[imageURL]; ok {
		t.mu.Unlock()
		return data, nil
	}
	t.mu.Unlock()

	req, err := types.NewTaggedRequest(imageURL, types.TagImage, t.timeout)
	if err != nil {
		return nil, err
	}
	resp, err := t.session.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", imageURL, err)
	}
	t.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

	src, format, err := image.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", imageURL, err)
	}

	thumb := Resize(src, t.maxPx)
	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	data := buf.Bytes()

	t.mu.Lock()
	t.done[imageURL] = data
	t.mu.Unlock()

	t.metrics.ImagesResized.Add(1)
	b := thumb.Bounds()
	t.logger.Debug("thumbnail ready", "url", imageURL, "format", format, "width", b.Dx(), "height", b.Dy(), "size", len(data))
	return data, nil
}

// Resize scales img so its longest side is maxPx, keeping the aspect ratio.
// Images already within bounds are returned unchanged.
func Resize(img image.Image, maxPx int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxPx <= 0 || (w <= maxPx && h <= maxPx) || w == 0 || h == 0 {
		return img
	}

	nw, nh := maxPx, maxPx
	if w >= h {
		nh = max(1, h*maxPx/w)
	} else {
		nw = max(1, w*maxPx/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
