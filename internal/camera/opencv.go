package camera

import (
	"fmt"
	"image"
	"strconv"

	"gocv.io/x/gocv"
)

type videoDevice struct {
	vc *gocv.VideoCapture
}

// OpenVideoDevice opens a camera through OpenCV. A numeric device is an
// index, anything else a device path or stream URL.
func OpenVideoDevice(device string, width, height int) (Device, error) {
	var target any = device
	if idx, err := strconv.Atoi(device); err == nil {
		target = idx
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("device %s is not opened", device)
	}

	if width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &videoDevice{vc: vc}, nil
}

func (d *videoDevice) Grab() bool {
	m := gocv.NewMat()
	defer m.Close()
	return d.vc.Read(&m) && !m.Empty()
}

func (d *videoDevice) Read() (image.Image, error) {
	m := gocv.NewMat()
	defer m.Close()

	if !d.vc.Read(&m) {
		return nil, fmt.Errorf("read returned false")
	}
	if m.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	return m.ToImage()
}

func (d *videoDevice) Close() error {
	return d.vc.Close()
}
