package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func predictionWithScores(t *testing.T, scores ...float64) Prediction {
	t.Helper()

	masks := make([]Mask, len(scores))
	boxes := make([]Box, len(scores))
	for i := range scores {
		masks[i] = NewMask(2, 2)
		boxes[i] = Box{X0: float64(i), Y0: 0, X1: float64(i + 1), Y1: 1}
	}

	p, err := NewPrediction(masks, boxes, scores)
	require.NoError(t, err)
	return p
}

func TestNewPrediction_Misaligned(t *testing.T) {
	_, err := NewPrediction([]Mask{NewMask(1, 1)}, nil, []float64{0.9})
	assert.ErrorIs(t, err, ErrMisaligned)
}

func TestNewPrediction_Empty(t *testing.T) {
	p, err := NewPrediction(nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Masks)
	assert.Empty(t, p.Boxes)
	assert.Empty(t, p.Scores)
	assert.NotNil(t, p.Masks)
	assert.Len(t, p.Detections(), 0)

	_, ok := p.Best()
	assert.False(t, ok)
}

func TestPrediction_AboveIsStrict(t *testing.T) {
	p := predictionWithScores(t, 0.2, 0.5, 0.5000001, 0.93, 0.49)

	got := p.Above(0.5)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, 3, got[1].Index)

	assert.Len(t, p.Above(0.9), 1)
	assert.Len(t, p.Above(0), 5)
}

func TestPrediction_Best(t *testing.T) {
	p := predictionWithScores(t, 0.3, 0.8, 0.8, 0.1)

	best, ok := p.Best()
	require.True(t, ok)
	assert.Equal(t, 1, best.Index)
	assert.Equal(t, 0.8, best.Score)
	assert.Equal(t, p.Boxes[1], best.Box)
}

func TestPrediction_Shapes(t *testing.T) {
	s := predictionWithScores(t, 0.7, 0.6).Shapes(640, 480)

	assert.Equal(t, "[2, 1, 480, 640]", s.MasksString())
	assert.Equal(t, "[2, 4]", s.BoxesString())
	assert.Equal(t, "[2]", s.ScoresString())

	empty, err := NewPrediction(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "[0, 1, 512, 512]", empty.Shapes(512, 512).MasksString())
}
