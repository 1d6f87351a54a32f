// Package imaging conditions captured frames for digit OCR and draws
// recognition results with OpenCV.
package imaging

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/lanewatch/lanewatch/internal/errors"
)

// Enhancer turns a raw frame into the image handed to OCR. Implementations
// must not modify the input.
type Enhancer interface {
	Enhance(img image.Image) (image.Image, error)
}

// Params are the knobs of the enhancement chain
type Params struct {
	BlurKernel       int     // Gaussian kernel size, odd
	BlockSize        int     // adaptive threshold neighbourhood, odd
	C                float64 // subtracted from the neighbourhood mean
	DilateKernel     int     // rectangular kernel size
	DilateIterations int
	Scale            float64 // final upscale factor
}

// DefaultParams works for dark digits on a light plate
func DefaultParams() Params {
	return Params{
		BlurKernel:       3,
		BlockSize:        15,
		C:                8,
		DilateKernel:     2,
		DilateIterations: 1,
		Scale:            2,
	}
}

// Validate reports parameters OpenCV would reject
func (p Params) Validate() error {
	if p.BlurKernel < 1 || p.BlurKernel%2 == 0 {
		return fmt.Errorf("blur kernel must be a positive odd number, got %d", p.BlurKernel)
	}
	if p.BlockSize < 3 || p.BlockSize%2 == 0 {
		return fmt.Errorf("threshold block size must be an odd number of at least 3, got %d", p.BlockSize)
	}
	if p.DilateKernel < 1 || p.DilateIterations < 0 {
		return fmt.Errorf("invalid dilation kernel %d or iterations %d", p.DilateKernel, p.DilateIterations)
	}
	if p.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %g", p.Scale)
	}
	return nil
}

// ChainEnhancer runs grayscale, histogram equalization, Gaussian blur,
// inverted adaptive mean threshold, dilation and upscale, in that order.
type ChainEnhancer struct {
	params Params
}

// NewChainEnhancer validates p and returns the enhancer
func NewChainEnhancer(p Params) (*ChainEnhancer, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.New(err).
			Component("imaging").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &ChainEnhancer{params: p}, nil
}

// Params returns the configured parameters
func (e *ChainEnhancer) Params() Params {
	return e.params
}

// Enhance implements Enhancer. The result is an *image.Gray.
func (e *ChainEnhancer) Enhance(img image.Image) (image.Image, error) {
	src, err := ToMat(img)
	if err != nil {
		return nil, enhanceError(err, "to_mat")
	}
	defer src.Close()

	out, err := e.EnhanceMat(src)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	result, err := FromMat(out)
	if err != nil {
		return nil, enhanceError(err, "to_image")
	}
	return result, nil
}

// EnhanceMat runs the chain on a BGR or gray Mat. The caller owns and must
// Close the returned Mat.
func (e *ChainEnhancer) EnhanceMat(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), enhanceError(fmt.Errorf("empty frame"), "input")
	}
	p := e.params

	gray := gocv.NewMat()
	defer gray.Close()
	if src.Channels() == 1 {
		src.CopyTo(&gray)
	} else {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	}

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(gray, &equalized)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(equalized, &blurred, image.Pt(p.BlurKernel, p.BlurKernel), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(blurred, &thresh, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinaryInv, p.BlockSize, float32(p.C))

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(p.DilateKernel, p.DilateKernel))
	defer kernel.Close()

	dilated := thresh.Clone()
	defer func() { dilated.Close() }()
	for range p.DilateIterations {
		next := gocv.NewMat()
		gocv.Dilate(dilated, &next, kernel)
		dilated.Close()
		dilated = next
	}

	scaled := gocv.NewMat()
	gocv.Resize(dilated, &scaled, image.Point{}, p.Scale, p.Scale, gocv.InterpolationLinear)
	if scaled.Empty() {
		scaled.Close()
		return gocv.NewMat(), enhanceError(fmt.Errorf("resize produced an empty image"), "resize")
	}
	return scaled, nil
}

// Passthrough hands the raw frame to OCR unchanged
type Passthrough struct{}

// Enhance implements Enhancer
func (Passthrough) Enhance(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, enhanceError(fmt.Errorf("nil image"), "input")
	}
	return img, nil
}

func enhanceError(err error, operation string) error {
	return errors.New(err).
		Component("imaging").
		Category(errors.CategoryImageProcessing).
		Context("operation", operation).
		Build()
}
