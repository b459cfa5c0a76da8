package segment

import "fmt"

// Prediction holds the aligned outputs of one prompt call: entry i of Masks,
// Boxes and Scores describe the same detected instance.
type Prediction struct {
	Masks  []Mask
	Boxes  []Box
	Scores []float64
}

// Detection is one positional entry of a Prediction.
type Detection struct {
	Index int
	Mask  Mask
	Box   Box
	Score float64
}

// Shapes describes the tensor shapes of a prediction.
type Shapes struct {
	Masks  [4]int
	Boxes  [2]int
	Scores [1]int
}

// NewPrediction builds a prediction, rejecting sequences of unequal length.
func NewPrediction(masks []Mask, boxes []Box, scores []float64) (Prediction, error) {
	if len(masks) != len(boxes) || len(boxes) != len(scores) {
		return Prediction{}, fmt.Errorf("%w: masks=%d boxes=%d scores=%d",
			ErrMisaligned, len(masks), len(boxes), len(scores))
	}

	if masks == nil {
		masks = []Mask{}
	}
	if boxes == nil {
		boxes = []Box{}
	}
	if scores == nil {
		scores = []float64{}
	}

	return Prediction{Masks: masks, Boxes: boxes, Scores: scores}, nil
}

// Len returns the number of detections.
func (p Prediction) Len() int {
	return len(p.Scores)
}

// Detections zips the three sequences positionally.
func (p Prediction) Detections() []Detection {
	out := make([]Detection, 0, p.Len())
	for i := range p.Scores {
		out = append(out, Detection{
			Index: i,
			Mask:  p.Masks[i],
			Box:   p.Boxes[i],
			Score: p.Scores[i],
		})
	}
	return out
}

// Above returns the detections whose score is strictly greater than threshold.
func (p Prediction) Above(threshold float64) []Detection {
	var out []Detection
	for _, d := range p.Detections() {
		if d.Score > threshold {
			out = append(out, d)
		}
	}
	return out
}

// Best returns the highest-scoring detection. The first one wins on ties.
func (p Prediction) Best() (Detection, bool) {
	if p.Len() == 0 {
		return Detection{}, false
	}

	best := 0
	for i, s := range p.Scores {
		if s > p.Scores[best] {
			best = i
		}
	}

	return Detection{
		Index: best,
		Mask:  p.Masks[best],
		Box:   p.Boxes[best],
		Score: p.Scores[best],
	}, true
}

// Shapes returns the shapes of the mask, box and score sequences for an image
// of the given size.
func (p Prediction) Shapes(width, height int) Shapes {
	n := p.Len()
	return Shapes{
		Masks:  [4]int{n, 1, height, width},
		Boxes:  [2]int{n, 4},
		Scores: [1]int{n},
	}
}

// MasksString formats the mask shape as "[N, 1, H, W]".
func (s Shapes) MasksString() string {
	return fmt.Sprintf("[%d, %d, %d, %d]", s.Masks[0], s.Masks[1], s.Masks[2], s.Masks[3])
}

// BoxesString formats the box shape as "[N, 4]".
func (s Shapes) BoxesString() string {
	return fmt.Sprintf("[%d, %d]", s.Boxes[0], s.Boxes[1])
}

// ScoresString formats the score shape as "[N]".
func (s Shapes) ScoresString() string {
	return fmt.Sprintf("[%d]", s.Scores[0])
}
