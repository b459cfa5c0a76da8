// Package service runs prompts against a built processor.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/segment"
)

// ErrNoSession is returned when a prompt is issued before Open.
var ErrNoSession = errors.New("no image opened")

// Outcome is the result of one prompt.
type Outcome struct {
	Prompt     segment.Prompt
	Prediction segment.Prediction
	Err        error
}

// Kept returns the detections above threshold.
func (o Outcome) Kept(threshold float64) []segment.Detection {
	return o.Prediction.Above(threshold)
}

// Segmenter runs prompts over one image at a time.
type Segmenter struct {
	processor backend.Processor
	threshold float64
	state     *backend.State
}

// NewSegmenter creates a segmenter keeping detections scored above threshold.
// A zero threshold keeps every detection with a positive score.
func NewSegmenter(processor backend.Processor, threshold float64) *Segmenter {
	return &Segmenter{
		processor: processor,
		threshold: threshold,
	}
}

// Threshold returns the score threshold in use.
func (s *Segmenter) Threshold() float64 {
	return s.threshold
}

// State returns the current inference state, or nil before Open.
func (s *Segmenter) State() *backend.State {
	return s.state
}

// Open binds img to a fresh inference state, replacing any previous one.
func (s *Segmenter) Open(ctx context.Context, img image.Image) (*backend.State, error) {
	state, err := s.processor.SetImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrInference, err)
	}

	s.state = state
	slog.Debug("Image set", "session_id", state.ID, "width", state.Width, "height", state.Height)
	return state, nil
}

// Text runs a text prompt on the open image.
func (s *Segmenter) Text(ctx context.Context, prompt string) (segment.Prediction, error) {
	if s.state == nil {
		return segment.Prediction{}, ErrNoSession
	}

	pred, err := s.processor.SetTextPrompt(ctx, s.state, prompt)
	if err != nil {
		return segment.Prediction{}, err
	}

	slog.Info("Text prompt done", "prompt", prompt, "detections", pred.Len(), "kept", len(pred.Above(s.threshold)))
	return pred, nil
}

// Box adds a geometric prompt on top of the prompts already set.
func (s *Segmenter) Box(ctx context.Context, box segment.NormalizedBox, label bool) (segment.Prediction, error) {
	if s.state == nil {
		return segment.Prediction{}, ErrNoSession
	}

	pred, err := s.processor.AddGeometricPrompt(ctx, s.state, box, label)
	if err != nil {
		return segment.Prediction{}, err
	}

	slog.Info("Box prompt done", "box", box.String(), "label", label, "detections", pred.Len())
	return pred, nil
}

// Reset clears every prompt while keeping the image.
func (s *Segmenter) Reset(ctx context.Context) error {
	if s.state == nil {
		return ErrNoSession
	}
	return s.processor.ResetAllPrompts(ctx, s.state)
}

// RunText runs each prompt in order. A failing prompt is recorded in its
// Outcome and does not stop the rest.
func (s *Segmenter) RunText(ctx context.Context, prompts []string) ([]Outcome, error) {
	if s.state == nil {
		return nil, ErrNoSession
	}

	outcomes := make([]Outcome, 0, len(prompts))
	for _, p := range prompts {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		pred, err := s.Text(ctx, p)
		if err != nil {
			slog.Error("Text prompt failed", "prompt", p, "error", err)
			pred, _ = segment.NewPrediction(nil, nil, nil)
		}
		outcomes = append(outcomes, Outcome{
			Prompt:     segment.TextPrompt{Text: p},
			Prediction: pred,
			Err:        err,
		})
	}
	return outcomes, nil
}

// BoxFromBest converts the highest-scoring detection of pred into a
// normalized box prompt for an image of the given size.
func BoxFromBest(pred segment.Prediction, width, height int) (segment.NormalizedBox, bool) {
	best, ok := pred.Best()
	if !ok {
		return segment.NormalizedBox{}, false
	}
	return best.Box.Normalize(width, height), true
}
