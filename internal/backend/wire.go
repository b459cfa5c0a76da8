package backend

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/ekisa-team/sam3lab/internal/segment"
)

// SessionResponse is returned when an image is set.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// TextPromptRequest carries a text prompt.
type TextPromptRequest struct {
	Prompt string `json:"prompt"`
}

// GeometricPromptRequest carries a normalized [cx, cy, w, h] box and its label.
type GeometricPromptRequest struct {
	Box   [4]float64 `json:"box"`
	Label bool       `json:"label"`
}

// MaskPayload is an uncompressed row-major RLE mask. Size is [height, width].
type MaskPayload struct {
	Size   [2]int `json:"size"`
	Counts []int  `json:"counts"`
}

// PredictionPayload is the processor's answer to a prompt call. Boxes are
// [x0, y0, x1, y1] in pixels.
type PredictionPayload struct {
	Masks  []MaskPayload `json:"masks"`
	Boxes  [][4]float64  `json:"boxes"`
	Scores []float64     `json:"scores"`
}

// NewGeometricPromptRequest builds the request for a box prompt.
func NewGeometricPromptRequest(box segment.NormalizedBox, label bool) GeometricPromptRequest {
	return GeometricPromptRequest{
		Box:   [4]float64{box.CX, box.CY, box.W, box.H},
		Label: label,
	}
}

// Prediction decodes the payload, enforcing equal-length sequences.
func (p PredictionPayload) Prediction() (segment.Prediction, error) {
	masks := make([]segment.Mask, 0, len(p.Masks))
	for i, m := range p.Masks {
		mask, err := segment.DecodeRLE(m.Size[1], m.Size[0], m.Counts)
		if err != nil {
			return segment.Prediction{}, fmt.Errorf("mask %d: %w", i, err)
		}
		masks = append(masks, mask)
	}

	boxes := make([]segment.Box, 0, len(p.Boxes))
	for _, b := range p.Boxes {
		boxes = append(boxes, segment.Box{X0: b[0], Y0: b[1], X1: b[2], Y1: b[3]})
	}

	scores := p.Scores
	if scores == nil {
		scores = []float64{}
	}

	return segment.NewPrediction(masks, boxes, scores)
}

// NewPredictionPayload encodes a prediction for the wire.
func NewPredictionPayload(pred segment.Prediction) PredictionPayload {
	out := PredictionPayload{
		Masks:  make([]MaskPayload, 0, pred.Len()),
		Boxes:  make([][4]float64, 0, pred.Len()),
		Scores: append([]float64{}, pred.Scores...),
	}
	for _, m := range pred.Masks {
		out.Masks = append(out.Masks, MaskPayload{Size: [2]int{m.Height, m.Width}, Counts: m.EncodeRLE()})
	}
	for _, b := range pred.Boxes {
		out.Boxes = append(out.Boxes, [4]float64{b.X0, b.Y0, b.X1, b.Y1})
	}
	return out
}

// EncodePNG serializes an image for upload.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
