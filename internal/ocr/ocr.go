// Package ocr wraps the Tesseract engine for scanned-page recognition.
// Results are cached by image content hash, so re-running a batch only pays
// for pages it has not seen.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
	xdraw "golang.org/x/image/draw"

	"github.com/jmcruz/fiscaltone/internal/cache"
	"github.com/jmcruz/fiscaltone/internal/model"
)

// Engine recognizes text in page images. A single Tesseract client backs
// it, so calls are serialized; run one Engine per worker for parallel OCR.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	cache  cache.Cache
	cfg    model.OCRConfig
}

// New creates an Engine for the configured language. Pass cache.Noop{} to
// disable result caching.
func New(cfg model.OCRConfig, store cache.Cache) (*Engine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("ocr: set language %q: %w", cfg.Language, err)
	}
	if store == nil {
		store = cache.Noop{}
	}
	return &Engine{client: client, cache: store, cfg: cfg}, nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	return e.client.Close()
}

// Recognize runs OCR over a PNG-encoded page image and returns the
// recognized text. Images wider than the configured maximum are downscaled
// first; 300 DPI scans carry more pixels than Tesseract needs.
func (e *Engine) Recognize(pngData []byte) (string, error) {
	key := cache.Key("ocr", pngData)
	if cached, ok := e.cache.Get(key); ok {
		return string(cached), nil
	}

	prepared, err := e.prepare(pngData)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(prepared); err != nil {
		return "", fmt.Errorf("ocr: set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: recognize: %w", err)
	}

	_ = e.cache.Set(key, []byte(text), 0)
	return text, nil
}

func (e *Engine) prepare(pngData []byte) ([]byte, error) {
	if e.cfg.MaxImageWidth <= 0 {
		return pngData, nil
	}
	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("ocr: decode image: %w", err)
	}
	if img.Bounds().Dx() <= e.cfg.MaxImageWidth {
		return pngData, nil
	}

	scaled := Downscale(img, e.cfg.MaxImageWidth)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("ocr: encode scaled image: %w", err)
	}
	return buf.Bytes(), nil
}

// Downscale resizes img to maxWidth preserving the aspect ratio. Images at
// or under maxWidth are returned unchanged.
func Downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
