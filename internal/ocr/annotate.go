package ocr

import (
	"image"
	"image/color"
	"image/draw"
)

// Mark is one region to highlight on the annotated image
type Mark struct {
	Box   image.Rectangle
	Label string
}

// Annotator draws marks onto a copy of base. base must not be modified.
type Annotator interface {
	Annotate(base image.Image, marks []Mark) (image.Image, error)
}

// MarkColor is the outline color used for recognized numbers
var MarkColor = color.RGBA{G: 255, A: 255}

// OutlineAnnotator draws a rectangle outline for every mark. Labels are
// ignored.
type OutlineAnnotator struct {
	Thickness int
}

// Annotate implements Annotator
func (a OutlineAnnotator) Annotate(base image.Image, marks []Mark) (image.Image, error) {
	thickness := a.Thickness
	if thickness < 1 {
		thickness = 2
	}

	out := Clone(base)
	src := image.NewUniform(MarkColor)
	for _, m := range marks {
		r := m.Box.Intersect(out.Bounds())
		if r.Empty() {
			continue
		}
		t := min(thickness, r.Dx(), r.Dy())
		draw.Draw(out, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), src, image.Point{}, draw.Src)
		draw.Draw(out, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(out, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(out, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
	}
	return out, nil
}

// Clone returns an RGBA copy of img with the same bounds.
func Clone(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

// scaleRect maps r from the coordinate space of from onto to.
func scaleRect(r, from, to image.Rectangle) image.Rectangle {
	if from == to || from.Dx() == 0 || from.Dy() == 0 {
		return r
	}
	sx := float64(to.Dx()) / float64(from.Dx())
	sy := float64(to.Dy()) / float64(from.Dy())
	mapX := func(x int) int { return to.Min.X + int(float64(x-from.Min.X)*sx) }
	mapY := func(y int) int { return to.Min.Y + int(float64(y-from.Min.Y)*sy) }
	return image.Rect(mapX(r.Min.X), mapY(r.Min.Y), mapX(r.Max.X), mapY(r.Max.Y))
}
