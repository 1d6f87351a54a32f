// Package camera captures single still frames from the lane camera.
package camera

import (
	"context"
	"image"
	"time"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/privacy"
)

// ErrNoFrame is wrapped by every capture failure
var ErrNoFrame = errors.NewStd("no frame captured")

// Device is an opened capture device
type Device interface {
	// Grab reads and drops one buffered frame
	Grab() bool
	// Read decodes the next frame
	Read() (image.Image, error)
	Close() error
}

// Opener opens a device by its configured name
type Opener func(device string, width, height int) (Device, error)

// Config for a FrameSource
type Config struct {
	Device        string
	WarmUp        time.Duration
	DiscardFrames int
	Width         int
	Height        int
}

// FrameSource opens the device for every capture and releases it before
// returning, so the camera is never held between runs.
type FrameSource struct {
	cfg  Config
	open Opener
	log  logger.Logger
}

// Option configures a FrameSource
type Option func(*FrameSource)

// WithOpener replaces the OpenCV device opener
func WithOpener(open Opener) Option {
	return func(s *FrameSource) {
		s.open = open
	}
}

// NewFrameSource returns a source for cfg.Device
func NewFrameSource(cfg Config, opts ...Option) *FrameSource {
	s := &FrameSource{
		cfg:  cfg,
		open: OpenVideoDevice,
		log:  logger.Global().Module("camera"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture opens the device, waits for the warm-up, discards stale frames and
// returns the next one.
func (s *FrameSource) Capture(ctx context.Context) (image.Image, error) {
	start := time.Now()

	dev, err := s.open(s.cfg.Device, s.cfg.Width, s.cfg.Height)
	if err != nil {
		return nil, s.noFrame(err, "open")
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil {
			s.log.Warn("failed to release camera", logger.Error(cerr))
		}
	}()

	if s.cfg.WarmUp > 0 {
		t := time.NewTimer(s.cfg.WarmUp)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.New(errors.Join(ErrNoFrame, ctx.Err())).
				Component("camera").
				Category(errors.CategoryCancellation).
				Context("device", privacy.DisplayURL(s.cfg.Device)).
				Build()
		case <-t.C:
		}
	}

	for i := range s.cfg.DiscardFrames {
		if !dev.Grab() {
			s.log.Debug("discard grab failed", logger.Int("frame", i))
			break
		}
	}

	img, err := dev.Read()
	if err != nil {
		return nil, s.noFrame(err, "read")
	}
	if img == nil || img.Bounds().Empty() {
		return nil, s.noFrame(errors.NewStd("empty frame"), "read")
	}

	s.log.Debug("frame captured",
		logger.String("device", privacy.DisplayURL(s.cfg.Device)),
		logger.Int("width", img.Bounds().Dx()),
		logger.Int("height", img.Bounds().Dy()),
		logger.Duration("elapsed", time.Since(start)))
	return img, nil
}

func (s *FrameSource) noFrame(err error, op string) error {
	return errors.New(errors.Join(ErrNoFrame, err)).
		Component("camera").
		Category(errors.CategoryCamera).
		Context("device", privacy.DisplayURL(s.cfg.Device)).
		Context("operation", op).
		Build()
}
