package backend

import (
	"context"
	"image"

	"github.com/ekisa-team/sam3lab/internal/segment"
)

// Provider is a string identifier for a processor transport.
type Provider string

const (
	ProviderHTTP Provider = "sam3-http"
	ProviderGRPC Provider = "sam3-grpc"
)

// Processor is a segmentation processor bound to one loaded checkpoint.
type Processor interface {
	// Provider returns the transport identifier.
	Provider() Provider

	// SetImage binds an image to a new inference state with no prompts.
	SetImage(ctx context.Context, img image.Image) (*State, error)

	// SetTextPrompt runs a text prompt. It does not depend on earlier geometric prompts.
	SetTextPrompt(ctx context.Context, state *State, prompt string) (segment.Prediction, error)

	// AddGeometricPrompt adds a box prompt on top of the prompts already in state.
	AddGeometricPrompt(ctx context.Context, state *State, box segment.NormalizedBox, label bool) (segment.Prediction, error)

	// ResetAllPrompts drops every prompt from state, keeping the image.
	ResetAllPrompts(ctx context.Context, state *State) error

	// Close releases the processor and anything it started.
	Close() error
}

// Options carries what a processor needs to load a checkpoint.
type Options struct {
	// CheckpointPath is the local path of the checkpoint file.
	CheckpointPath string

	// Parameters contains transport-specific settings.
	Parameters map[string]any
}

// Factory builds a processor from options.
type Factory func(ctx context.Context, opts Options) (Processor, error)

// State is the handle binding one image to a processor across prompt calls.
type State struct {
	ID     string
	Width  int
	Height int

	text  string
	boxes []segment.BoxPrompt
}

// NewState creates the state returned by SetImage.
func NewState(id string, width, height int) *State {
	return &State{ID: id, Width: width, Height: height}
}

// Text returns the current text prompt.
func (s *State) Text() string {
	return s.text
}

// Boxes returns the accumulated geometric prompts.
func (s *State) Boxes() []segment.BoxPrompt {
	return append([]segment.BoxPrompt(nil), s.boxes...)
}

// Prompts returns the number of prompts accumulated since the image was set
// or the last reset.
func (s *State) Prompts() int {
	n := len(s.boxes)
	if s.text != "" {
		n++
	}
	return n
}

// RecordText replaces the text prompt.
func (s *State) RecordText(text string) {
	s.text = text
}

// RecordBox appends a geometric prompt.
func (s *State) RecordBox(p segment.BoxPrompt) {
	s.boxes = append(s.boxes, p)
}

// Reset returns the state to "image set, no prompts".
func (s *State) Reset() {
	s.text = ""
	s.boxes = nil
}

// Check validates a state passed to a prompt call.
func Check(state *State) error {
	if state == nil || state.ID == "" {
		return ErrNoImage
	}
	return nil
}
