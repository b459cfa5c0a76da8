package segment

import "fmt"

// Box is an axis-aligned rectangle in image pixel coordinates (corner format).
type Box struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NormalizedBox is a box in center/width/height format, relative to the image size.
type NormalizedBox struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// Width returns the box width in pixels.
func (b Box) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the box height in pixels.
func (b Box) Height() float64 {
	return b.Y1 - b.Y0
}

// Normalize converts the box to center/width/height divided by the image dimensions.
// No rounding is applied.
func (b Box) Normalize(width, height int) NormalizedBox {
	w, h := b.Width(), b.Height()
	fw, fh := float64(width), float64(height)

	return NormalizedBox{
		CX: (b.X0 + w/2) / fw,
		CY: (b.Y0 + h/2) / fh,
		W:  w / fw,
		H:  h / fh,
	}
}

// Denormalize converts the normalized box back to pixel corners for the given image size.
func (n NormalizedBox) Denormalize(width, height int) Box {
	fw, fh := float64(width), float64(height)
	cx, cy := n.CX*fw, n.CY*fh
	w, h := n.W*fw, n.H*fh

	return Box{
		X0: cx - w/2,
		Y0: cy - h/2,
		X1: cx + w/2,
		Y1: cy + h/2,
	}
}

// Validate reports whether every component lies within [0, 1].
func (n NormalizedBox) Validate() error {
	for _, v := range [...]float64{n.CX, n.CY, n.W, n.H} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidBox, n.Slice())
		}
	}
	return nil
}

// Slice returns the box as [cx, cy, w, h].
func (n NormalizedBox) Slice() []float64 {
	return []float64{n.CX, n.CY, n.W, n.H}
}

// String implements fmt.Stringer.
func (n NormalizedBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", n.CX, n.CY, n.W, n.H)
}
