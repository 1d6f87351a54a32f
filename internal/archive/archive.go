// Package archive writes captured images to disk, one write-once file per
// run, named after the first number read from it.
package archive

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
)

// TimestampLayout is the time part of every archived file name
const TimestampLayout = "20060102_150405"

// ErrExists is returned when the target file already exists
var ErrExists = errors.NewStd("archive file already exists")

// Format is an image encoding
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
)

// ParseFormat accepts jpg, jpeg and png in any case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("unsupported archive format %q", s)
}

// Config configures a Writer
type Config struct {
	Dir          string
	Format       Format
	Quality      int    // jpeg quality, 1-100
	FallbackName string // prefix when a run read no numbers
}

// Writer stores images under Dir
type Writer struct {
	cfg Config
	log logger.Logger
}

// NewWriter creates the archive directory if needed.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Format == "" {
		cfg.Format = FormatJPEG
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = jpeg.DefaultQuality
	}
	if cfg.FallbackName == "" {
		cfg.FallbackName = "capture"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("archive").
			Category(errors.CategoryFileIO).
			Context("dir", cfg.Dir).
			Build()
	}
	return &Writer{cfg: cfg, log: logger.Global().Module("archive")}, nil
}

// Dir returns the archive directory
func (w *Writer) Dir() string {
	return w.cfg.Dir
}

// FileName renders {prefix}_{YYYYMMDD_HHMMSS}.{ext}. An empty prefix uses
// the fallback name.
func (w *Writer) FileName(prefix string, at time.Time) string {
	prefix = sanitize(prefix)
	if prefix == "" {
		prefix = w.cfg.FallbackName
	}
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format(TimestampLayout), w.cfg.Format)
}

// NameFor picks the first number, or the fallback when there is none.
func (w *Writer) NameFor(numbers []string, at time.Time) string {
	if len(numbers) > 0 {
		return w.FileName(numbers[0], at)
	}
	return w.FileName("", at)
}

// Save encodes img and writes it as name inside the archive directory. An
// existing file is never replaced; Save returns ErrExists instead.
func (w *Writer) Save(name string, img image.Image) (string, error) {
	path := filepath.Join(w.cfg.Dir, filepath.Base(name))

	var buf bytes.Buffer
	if err := w.encode(&buf, img); err != nil {
		return "", errors.New(err).
			Component("archive").
			Category(errors.CategoryImageProcessing).
			Context("operation", "encode").
			Build()
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // name is generated
	if err != nil {
		if os.IsExist(err) {
			return "", errors.New(fmt.Errorf("%w: %s", ErrExists, path)).
				Component("archive").
				Category(errors.CategoryFileIO).
				Build()
		}
		return "", errors.New(err).
			Component("archive").
			Category(errors.CategoryFileIO).
			Context("operation", "create").
			Build()
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", errors.New(err).
			Component("archive").
			Category(errors.CategoryFileIO).
			Context("operation", "write").
			Build()
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", errors.New(err).
			Component("archive").
			Category(errors.CategoryFileIO).
			Context("operation", "close").
			Build()
	}

	w.log.Info("image archived", logger.String("path", path), logger.Int("bytes", buf.Len()))
	return path, nil
}

func (w *Writer) encode(buf *bytes.Buffer, img image.Image) error {
	if img == nil {
		return fmt.Errorf("no image to encode")
	}
	switch w.cfg.Format {
	case FormatPNG:
		return png.Encode(buf, img)
	default:
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: w.cfg.Quality})
	}
}

// sanitize keeps a prefix safe to use as part of a file name
func sanitize(prefix string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
			return r
		}
		return -1
	}, prefix)
}
