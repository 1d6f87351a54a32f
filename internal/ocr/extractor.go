package ocr

import (
	"context"
	"image"
	"regexp"
	"time"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
)

// DefaultWhitelist restricts engines to decimal digits
const DefaultWhitelist = "0123456789"

// digitRun matches maximal runs of ASCII digits
var digitRun = regexp.MustCompile(`[0-9]+`)

// Extraction is the result of one Extract call
type Extraction struct {
	// Numbers holds every digit run in engine order, never nil
	Numbers []string
	// Annotated is a copy of the base image with the numeric spans marked
	Annotated image.Image
	// Spans are the spans returned by the engine
	Spans []Span
}

// Extractor finds numbers with an Engine. It is safe for concurrent use when
// the engine is.
type Extractor struct {
	engine        Engine
	annotator     Annotator
	minConfidence float64
	charset       string
	log           logger.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithAnnotator replaces the default OutlineAnnotator.
func WithAnnotator(a Annotator) Option {
	return func(e *Extractor) {
		if a != nil {
			e.annotator = a
		}
	}
}

// WithMinConfidence drops spans whose confidence is below c.
func WithMinConfidence(c float64) Option {
	return func(e *Extractor) {
		e.minConfidence = c
	}
}

// WithCharset sets the characters a CharsetRestrictor engine may emit. An
// empty string leaves the engine unrestricted.
func WithCharset(chars string) Option {
	return func(e *Extractor) {
		e.charset = chars
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// NewExtractor wraps engine. Engines implementing CharsetRestrictor get the
// charset (DefaultWhitelist unless overridden) applied here.
func NewExtractor(engine Engine, opts ...Option) (*Extractor, error) {
	if engine == nil {
		return nil, errors.Newf("ocr engine is nil").
			Component("ocr").
			Category(errors.CategoryConfiguration).
			Build()
	}

	e := &Extractor{
		engine:    engine,
		annotator: OutlineAnnotator{},
		charset:   DefaultWhitelist,
		log:       logger.Global().Module("ocr"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if r, ok := engine.(CharsetRestrictor); ok && e.charset != "" {
		if err := r.RestrictCharset(e.charset); err != nil {
			return nil, errors.New(err).
				Component("ocr").
				Category(errors.CategoryOCR).
				Context("operation", "restrict_charset").
				Build()
		}
	}

	return e, nil
}

// Extract recognizes img and annotates a copy of it.
func (e *Extractor) Extract(ctx context.Context, img image.Image) (Extraction, error) {
	return e.ExtractOnto(ctx, img, img)
}

// ExtractOnto recognizes input and draws the findings onto a copy of base.
// Boxes are rescaled when base and input differ in size, which lets the
// enhanced frame drive OCR while the raw frame is annotated. Neither image is
// modified.
func (e *Extractor) ExtractOnto(ctx context.Context, input, base image.Image) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, errors.New(err).
			Component("ocr").
			Category(errors.CategoryCancellation).
			Build()
	}

	start := time.Now()
	spans, err := e.engine.Recognize(ctx, input)
	if err != nil {
		return Extraction{}, errors.New(err).
			Component("ocr").
			Category(errors.CategoryOCR).
			Context("operation", "recognize").
			Timing("recognize", time.Since(start)).
			Build()
	}

	numbers := make([]string, 0, len(spans))
	var marks []Mark
	for _, span := range spans {
		if span.Confidence < e.minConfidence {
			e.log.Debug("span below confidence threshold",
				logger.String("text", span.Text),
				logger.Float64("confidence", span.Confidence))
			continue
		}
		runs := digitRun.FindAllString(span.Text, -1)
		if len(runs) == 0 {
			continue
		}
		numbers = append(numbers, runs...)
		if span.Box != nil {
			marks = append(marks, Mark{
				Box:   scaleRect(*span.Box, input.Bounds(), base.Bounds()),
				Label: span.Text,
			})
		}
	}

	annotated, err := e.annotator.Annotate(base, marks)
	if err != nil {
		e.log.Warn("annotation failed, keeping unmarked copy", logger.Error(err))
		annotated = Clone(base)
	}

	e.log.Debug("extraction finished",
		logger.Int("spans", len(spans)),
		logger.Strings("numbers", numbers),
		logger.Duration("elapsed", time.Since(start)))

	return Extraction{Numbers: numbers, Annotated: annotated, Spans: spans}, nil
}
