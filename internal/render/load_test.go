package render

import (
	"errors"
	"image"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, SavePNG(path, blackImage(12, 7)))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 7), img.Bounds())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "truck.jpg"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "result_truck.png", FileName("truck"))
	assert.Equal(t, "result_a_red_square.png", FileName(" a red square "))
	assert.Equal(t, "result_box_prompt.png", FileName("box prompt"))
	assert.Equal(t, "result_cat_dog_.png", FileName("cat/dog?"))
	assert.Equal(t, "result_prompt.png", FileName(""))
}
