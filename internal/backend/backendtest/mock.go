// Package backendtest provides test doubles for backend.Processor.
package backendtest

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/segment"
)

// MockProcessor is a testify mock of backend.Processor.
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Provider() backend.Provider {
	args := m.Called()
	return args.Get(0).(backend.Provider)
}

func (m *MockProcessor) SetImage(ctx context.Context, img image.Image) (*backend.State, error) {
	args := m.Called(ctx, img)
	if s, ok := args.Get(0).(*backend.State); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProcessor) SetTextPrompt(ctx context.Context, state *backend.State, prompt string) (segment.Prediction, error) {
	args := m.Called(ctx, state, prompt)
	return args.Get(0).(segment.Prediction), args.Error(1)
}

func (m *MockProcessor) AddGeometricPrompt(ctx context.Context, state *backend.State, box segment.NormalizedBox, label bool) (segment.Prediction, error) {
	args := m.Called(ctx, state, box, label)
	return args.Get(0).(segment.Prediction), args.Error(1)
}

func (m *MockProcessor) ResetAllPrompts(ctx context.Context, state *backend.State) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockProcessor) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Factory returns a backend.Factory that always yields proc and records the
// options it was called with.
func Factory(proc backend.Processor, got *backend.Options) backend.Factory {
	return func(_ context.Context, opts backend.Options) (backend.Processor, error) {
		if got != nil {
			*got = opts
		}
		return proc, nil
	}
}
