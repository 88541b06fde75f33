package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/lysyi3m/news-digest/app/digest"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultQuality  = 60
	DefaultMaxWidth = 800
	maxImageBytes   = 20 << 20
)

// Transcoder downloads illustrations and re-encodes them as baseline JPEG.
type Transcoder struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	quality    int
	maxWidth   int
}

func NewTranscoder(httpClient *http.Client, userAgent string, timeout time.Duration) *Transcoder {
	return &Transcoder{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
		quality:    DefaultQuality,
		maxWidth:   DefaultMaxWidth,
	}
}

// Run fetches imageURL and returns it as a JPEG named after owner.
// Any failure means the chapter goes without an illustration.
func (t *Transcoder) Run(ctx context.Context, imageURL string, owner string) (*digest.Image, error) {
	data, err := t.fetch(ctx, imageURL)
	if err != nil {
		return nil, digest.Wrap(digest.ErrFetch, "fetch image", err)
	}

	encoded, err := t.Transcode(data)
	if err != nil {
		return nil, digest.Wrap(digest.ErrExtraction, "transcode image", err)
	}

	slog.Debug("Image transcoded", "url", imageURL, "owner", owner, "source_bytes", len(data), "jpeg_bytes", len(encoded))

	return &digest.Image{
		Name:      owner + ".jpg",
		MediaType: "image/jpeg",
		Data:      encoded,
	}, nil
}

// Transcode decodes any registered format and writes JPEG at the configured quality.
func (t *Transcoder) Transcode(data []byte) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	width, height := bounds.Dx(), bounds.Dy()
	if t.maxWidth > 0 && width > t.maxWidth {
		height = height * t.maxWidth / width
		width = t.maxWidth
		if height == 0 {
			height = 1
		}
	}

	// Flatten onto white so transparent regions do not turn black in RGB.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode %s as jpeg: %w", format, err)
	}

	return buf.Bytes(), nil
}

func (t *Transcoder) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
