// Package tesseract is the Tesseract backed ocr.Engine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/lanewatch/lanewatch/internal/ocr"
)

// Config holds the engine settings
type Config struct {
	Language    string // tesseract language, e.g. "eng"
	PageSegMode int    // tesseract page segmentation mode, 6 is a single uniform block
}

// DefaultConfig matches a digit plate photographed head-on
func DefaultConfig() Config {
	return Config{Language: "eng", PageSegMode: int(gosseract.PSM_SINGLE_BLOCK)}
}

// Engine wraps a gosseract client. The client is not goroutine safe so every
// call is serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

var (
	_ ocr.Engine            = (*Engine)(nil)
	_ ocr.CharsetRestrictor = (*Engine)(nil)
)

// New creates a Tesseract engine. The caller must Close it.
func New(cfg Config) (*Engine, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return &Engine{client: client}, nil
}

// RestrictCharset limits recognized characters to chars.
func (e *Engine) RestrictCharset(chars string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetWhitelist(chars); err != nil {
		return fmt.Errorf("failed to set character whitelist: %w", err)
	}
	return nil
}

// Recognize returns one span per recognized word in reading order.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Span, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set OCR image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}

	spans := make([]ocr.Span, 0, len(boxes))
	for _, b := range boxes {
		r := b.Box
		spans = append(spans, ocr.Span{
			Text:       b.Word,
			Confidence: b.Confidence,
			Box:        &r,
		})
	}
	return spans, nil
}

// Version reports the linked Tesseract version
func (e *Engine) Version() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Version()
}

// Close releases the Tesseract client
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
