package report

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/sam3lab/internal/segment"
)

func TestSyntheticImage(t *testing.T) {
	img := SyntheticImage(512, 512, color.RGBA{R: 255, A: 255})

	assert.Equal(t, image.Rect(0, 0, 512, 512), img.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(511, 511))
}

func TestSaveJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", ImageFile)
	require.NoError(t, SaveJPEG(path, SyntheticImage(32, 16, color.RGBA{R: 255, A: 255})))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())

	r, g, b, _ := img.At(16, 8).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Less(t, g>>8, uint32(16))
	assert.Less(t, b>>8, uint32(16))
}

func TestWriteSuccess(t *testing.T) {
	pred, err := segment.NewPrediction(nil, nil, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), ResultsFile)
	require.NoError(t, WriteSuccess(path, "a red square", pred.Shapes(512, 512)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Inference successful!\n"+
		"Prompt: a red square\n"+
		"Masks shape: [0, 1, 512, 512]\n"+
		"Boxes shape: [0, 4]\n"+
		"Scores shape: [0]\n", string(data))
}

func TestWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultsFile)
	require.NoError(t, WriteFailure(path, errors.New("connection refused")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Inference failed: connection refused\n", string(data))
}
