package camera

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanewatch/lanewatch/internal/errors"
)

type fakeDevice struct {
	grabs   int
	reads   int
	closed  int
	frame   image.Image
	readErr error
}

func (d *fakeDevice) Grab() bool { d.grabs++; return true }

func (d *fakeDevice) Read() (image.Image, error) {
	d.reads++
	return d.frame, d.readErr
}

func (d *fakeDevice) Close() error { d.closed++; return nil }

func openerFor(dev *fakeDevice, openErr error) Opener {
	return func(string, int, int) (Device, error) {
		if openErr != nil {
			return nil, openErr
		}
		return dev, nil
	}
}

func TestCapture_DiscardsThenReads(t *testing.T) {
	dev := &fakeDevice{frame: image.NewRGBA(image.Rect(0, 0, 64, 48))}
	src := NewFrameSource(Config{Device: "0", DiscardFrames: 5}, WithOpener(openerFor(dev, nil)))

	img, err := src.Capture(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 5, dev.grabs)
	assert.Equal(t, 1, dev.reads)
	assert.Equal(t, 1, dev.closed)
}

func TestCapture_PassesDeviceAndResolution(t *testing.T) {
	var gotDevice string
	var gotW, gotH int
	dev := &fakeDevice{frame: image.NewGray(image.Rect(0, 0, 4, 4))}
	src := NewFrameSource(Config{Device: "/dev/video2", Width: 1280, Height: 720},
		WithOpener(func(d string, w, h int) (Device, error) {
			gotDevice, gotW, gotH = d, w, h
			return dev, nil
		}))

	_, err := src.Capture(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "/dev/video2", gotDevice)
	assert.Equal(t, 1280, gotW)
	assert.Equal(t, 720, gotH)
}

func TestCapture_Failures(t *testing.T) {
	tests := []struct {
		name       string
		dev        *fakeDevice
		openErr    error
		wantClosed int
	}{
		{"open fails", &fakeDevice{}, errors.NewStd("no such device"), 0},
		{"read fails", &fakeDevice{readErr: errors.NewStd("read returned false")}, nil, 1},
		{"nil frame", &fakeDevice{}, nil, 1},
		{"empty frame", &fakeDevice{frame: image.NewRGBA(image.Rectangle{})}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewFrameSource(Config{Device: "0"}, WithOpener(openerFor(tt.dev, tt.openErr)))

			img, err := src.Capture(t.Context())
			require.Error(t, err)
			assert.Nil(t, img)
			assert.ErrorIs(t, err, ErrNoFrame)
			assert.True(t, errors.IsCategory(err, errors.CategoryCamera))
			assert.Equal(t, tt.wantClosed, tt.dev.closed)
		})
	}
}

func TestCapture_WarmUpCancelled(t *testing.T) {
	dev := &fakeDevice{frame: image.NewGray(image.Rect(0, 0, 4, 4))}
	src := NewFrameSource(Config{Device: "0", WarmUp: time.Hour}, WithOpener(openerFor(dev, nil)))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := src.Capture(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dev.reads)
	assert.Equal(t, 1, dev.closed, "device released on cancel")
}

func TestCapture_WarmUpWaits(t *testing.T) {
	dev := &fakeDevice{frame: image.NewGray(image.Rect(0, 0, 4, 4))}
	src := NewFrameSource(Config{Device: "0", WarmUp: 30 * time.Millisecond}, WithOpener(openerFor(dev, nil)))

	start := time.Now()
	_, err := src.Capture(t.Context())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
