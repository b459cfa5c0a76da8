package service

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/backend/backendtest"
	"github.com/ekisa-team/sam3lab/internal/segment"
)

func prediction(t *testing.T, boxes []segment.Box, scores ...float64) segment.Prediction {
	t.Helper()

	masks := make([]segment.Mask, len(scores))
	for i := range masks {
		masks[i] = segment.NewMask(4, 4)
	}

	p, err := segment.NewPrediction(masks, boxes, scores)
	require.NoError(t, err)
	return p
}

func TestSegmenter_RequiresOpen(t *testing.T) {
	s := NewSegmenter(new(backendtest.MockProcessor), 0)
	ctx := context.Background()

	_, err := s.Text(ctx, "truck")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = s.Box(ctx, segment.NormalizedBox{}, true)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.ErrorIs(t, s.Reset(ctx), ErrNoSession)

	_, err = s.RunText(ctx, []string{"truck"})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSegmenter_Threshold(t *testing.T) {
	assert.Zero(t, NewSegmenter(nil, 0).Threshold())
	assert.Equal(t, 0.7, NewSegmenter(nil, 0.7).Threshold())

	o := Outcome{Prediction: prediction(t, []segment.Box{{X0: 0, Y0: 0, X1: 1, Y1: 1}, {X0: 1, Y0: 1, X1: 2, Y1: 2}}, 0.1, 0.9)}
	assert.Len(t, o.Kept(NewSegmenter(nil, 0).Threshold()), 2)
	assert.Len(t, o.Kept(NewSegmenter(nil, 0.5).Threshold()), 1)
}

func TestSegmenter_OpenFailure(t *testing.T) {
	proc := new(backendtest.MockProcessor)
	proc.On("SetImage", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	s := NewSegmenter(proc, 0)
	_, err := s.Open(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, backend.ErrInference)
	assert.Nil(t, s.State())
}

func TestSegmenter_RunText(t *testing.T) {
	ctx := context.Background()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	state := backend.NewState("s1", 4, 4)

	truck := prediction(t, []segment.Box{{X0: 0, Y0: 0, X1: 2, Y1: 2}}, 0.9)
	empty := prediction(t, nil)

	proc := new(backendtest.MockProcessor)
	proc.On("SetImage", mock.Anything, img).Return(state, nil).Once()
	proc.On("SetTextPrompt", mock.Anything, state, "truck").Return(truck, nil).Once()
	proc.On("SetTextPrompt", mock.Anything, state, "giraffe").Return(empty, nil).Once()
	proc.On("SetTextPrompt", mock.Anything, state, "wheel").
		Return(segment.Prediction{}, backend.ErrInference).Once()

	s := NewSegmenter(proc, 0.5)
	_, err := s.Open(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, state, s.State())

	outcomes, err := s.RunText(ctx, []string{"truck", "wheel", "giraffe"})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "truck", outcomes[0].Prompt.String())
	assert.NoError(t, outcomes[0].Err)
	assert.Len(t, outcomes[0].Kept(s.Threshold()), 1)

	assert.ErrorIs(t, outcomes[1].Err, backend.ErrInference)
	assert.NotNil(t, outcomes[1].Prediction.Scores)

	for _, o := range outcomes {
		assert.Len(t, o.Prediction.Masks, o.Prediction.Len())
		assert.Len(t, o.Prediction.Boxes, o.Prediction.Len())
	}
	assert.Equal(t, 0, outcomes[2].Prediction.Len())

	proc.AssertExpectations(t)
}

func TestSegmenter_BoxAfterReset(t *testing.T) {
	ctx := context.Background()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	state := backend.NewState("s1", 200, 100)

	truck := prediction(t, []segment.Box{
		{X0: 0, Y0: 0, X1: 10, Y1: 10},
		{X0: 50, Y0: 20, X1: 150, Y1: 80},
	}, 0.4, 0.95)

	box, ok := BoxFromBest(truck, 200, 100)
	require.True(t, ok)
	assert.InDelta(t, 0.5, box.CX, 1e-9)
	assert.InDelta(t, 0.5, box.CY, 1e-9)
	assert.InDelta(t, 0.5, box.W, 1e-9)
	assert.InDelta(t, 0.6, box.H, 1e-9)

	proc := new(backendtest.MockProcessor)
	proc.On("SetImage", mock.Anything, img).Return(state, nil)
	proc.On("ResetAllPrompts", mock.Anything, state).Return(nil).Once()
	proc.On("AddGeometricPrompt", mock.Anything, state, box, true).Return(truck, nil).Once()

	s := NewSegmenter(proc, 0)
	_, err := s.Open(ctx, img)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	pred, err := s.Box(ctx, box, true)
	require.NoError(t, err)
	assert.Equal(t, 2, pred.Len())

	proc.AssertExpectations(t)
}

func TestBoxFromBest_Empty(t *testing.T) {
	_, ok := BoxFromBest(prediction(t, nil), 10, 10)
	assert.False(t, ok)
}
