package imaging

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ToMat converts img to an 8 bit Mat: gray images stay single channel,
// everything else becomes BGR. The caller must Close the Mat.
func ToMat(img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), fmt.Errorf("nil image")
	}
	if g, ok := img.(*image.Gray); ok {
		return gocv.ImageGrayToMatGray(g)
	}
	return gocv.ImageToMatRGB(img)
}

// FromMat converts a Mat back to an image.Image.
func FromMat(m gocv.Mat) (image.Image, error) {
	if m.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	return m.ToImage()
}
