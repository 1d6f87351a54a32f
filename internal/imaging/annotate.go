package imaging

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/lanewatch/lanewatch/internal/ocr"
)

// Annotator draws a rectangle and the recognized text for every mark.
type Annotator struct {
	Thickness int
	FontScale float64
}

// NewAnnotator returns an annotator with a 2px outline and 0.7 font scale
func NewAnnotator() Annotator {
	return Annotator{Thickness: 2, FontScale: 0.7}
}

var _ ocr.Annotator = Annotator{}

// Annotate implements ocr.Annotator. base is left untouched.
func (a Annotator) Annotate(base image.Image, marks []ocr.Mark) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(base)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	for _, m := range marks {
		gocv.Rectangle(&mat, m.Box, ocr.MarkColor, a.Thickness)
		if m.Label == "" {
			continue
		}
		org := image.Pt(m.Box.Min.X, max(m.Box.Min.Y-10, 10))
		gocv.PutText(&mat, m.Label, org, gocv.FontHersheySimplex, a.FontScale, ocr.MarkColor, a.Thickness)
	}

	return mat.ToImage()
}
