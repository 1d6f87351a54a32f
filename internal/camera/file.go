package camera

import (
	"context"
	"image"

	"gocv.io/x/gocv"

	"github.com/lanewatch/lanewatch/internal/errors"
)

// FileSource returns the same image file on every capture
type FileSource struct {
	path string
}

// NewFileSource returns a source reading path with OpenCV
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Capture decodes the file. Formats are whatever the OpenCV build supports.
func (s *FileSource) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.Join(ErrNoFrame, err)).
			Component("camera").
			Category(errors.CategoryCancellation).
			Context("file", s.path).
			Build()
	}

	m := gocv.IMRead(s.path, gocv.IMReadColor)
	defer m.Close()

	if m.Empty() {
		return nil, s.noFrame(errors.NewStd("image could not be decoded"))
	}
	img, err := m.ToImage()
	if err != nil {
		return nil, s.noFrame(err)
	}
	return img, nil
}

func (s *FileSource) noFrame(err error) error {
	return errors.New(errors.Join(ErrNoFrame, err)).
		Component("camera").
		Category(errors.CategoryFileIO).
		Context("file", s.path).
		Build()
}
