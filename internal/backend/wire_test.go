package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/sam3lab/internal/segment"
)

func TestPredictionPayload_Prediction(t *testing.T) {
	raw := `{
		"masks": [{"size": [2, 3], "counts": [1, 2, 3]}],
		"boxes": [[1.5, 2, 10.25, 20]],
		"scores": [0.87]
	}`

	var payload PredictionPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	pred, err := payload.Prediction()
	require.NoError(t, err)
	require.Equal(t, 1, pred.Len())

	assert.Equal(t, 3, pred.Masks[0].Width)
	assert.Equal(t, 2, pred.Masks[0].Height)
	assert.Equal(t, 2, pred.Masks[0].Area())
	assert.Equal(t, segment.Box{X0: 1.5, Y0: 2, X1: 10.25, Y1: 20}, pred.Boxes[0])
	assert.Equal(t, 0.87, pred.Scores[0])
}

func TestPredictionPayload_Empty(t *testing.T) {
	var payload PredictionPayload
	require.NoError(t, json.Unmarshal([]byte(`{"masks":[],"boxes":[],"scores":[]}`), &payload))

	pred, err := payload.Prediction()
	require.NoError(t, err)
	assert.Len(t, pred.Masks, 0)
	assert.Len(t, pred.Boxes, 0)
	assert.Len(t, pred.Scores, 0)
}

func TestPredictionPayload_Misaligned(t *testing.T) {
	payload := PredictionPayload{
		Boxes:  [][4]float64{{0, 0, 1, 1}},
		Scores: []float64{0.9, 0.8},
	}

	_, err := payload.Prediction()
	assert.ErrorIs(t, err, segment.ErrMisaligned)
}

func TestNewPredictionPayload(t *testing.T) {
	mask := segment.NewMask(2, 2)
	mask.Pixels[3] = true
	pred, err := segment.NewPrediction([]segment.Mask{mask}, []segment.Box{{X0: 1, Y0: 2, X1: 3, Y1: 4}}, []float64{0.6})
	require.NoError(t, err)

	payload := NewPredictionPayload(pred)
	assert.Equal(t, [2]int{2, 2}, payload.Masks[0].Size)
	assert.Equal(t, []int{3, 1}, payload.Masks[0].Counts)

	back, err := payload.Prediction()
	require.NoError(t, err)
	assert.Equal(t, pred.Masks[0].Pixels, back.Masks[0].Pixels)
}

func TestNewGeometricPromptRequest(t *testing.T) {
	req := NewGeometricPromptRequest(segment.NormalizedBox{CX: 0.5, CY: 0.4, W: 0.3, H: 0.2}, true)
	assert.Equal(t, [4]float64{0.5, 0.4, 0.3, 0.2}, req.Box)
	assert.True(t, req.Label)
}
