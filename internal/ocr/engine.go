// Package ocr extracts printed numbers from an image through a pluggable OCR
// engine and draws what it found onto a copy of the image.
package ocr

import (
	"context"
	"image"
)

// Span is one piece of text reported by an engine
type Span struct {
	Text string
	// Confidence is on the engine's 0-100 scale
	Confidence float64
	// Box is nil when the engine does not report geometry
	Box *image.Rectangle
}

// Engine recognizes text spans in an image. The order of the returned spans
// is the engine's own and is kept as-is.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Span, error)
}

// CharsetRestrictor is implemented by engines that can limit the characters
// they emit.
type CharsetRestrictor interface {
	RestrictCharset(chars string) error
}

// EngineFunc adapts a function to Engine
type EngineFunc func(ctx context.Context, img image.Image) ([]Span, error)

// Recognize calls f
func (f EngineFunc) Recognize(ctx context.Context, img image.Image) ([]Span, error) {
	return f(ctx, img)
}
