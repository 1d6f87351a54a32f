package tesseract

import (
	"image"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "eng", cfg.Language)
	assert.Equal(t, int(gosseract.PSM_SINGLE_BLOCK), cfg.PageSegMode)
}

func TestEngine_BlankImage(t *testing.T) {
	if testing.Short() {
		t.Skip("requires tesseract language data")
	}

	engine, err := New(DefaultConfig())
	require.NoError(t, err)
	defer func() { assert.NoError(t, engine.Close()) }()

	require.NoError(t, engine.RestrictCharset("0123456789"))
	assert.NotEmpty(t, engine.Version())

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	spans, err := engine.Recognize(t.Context(), img)
	require.NoError(t, err)
	for _, s := range spans {
		assert.NotNil(t, s.Box)
	}
}
