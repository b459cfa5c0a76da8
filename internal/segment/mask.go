package segment

import "fmt"

// Mask is a per-pixel boolean map stored row-major.
type Mask struct {
	Width  int
	Height int
	Pixels []bool
}

// NewMask returns an empty mask of the given size.
func NewMask(width, height int) Mask {
	return Mask{
		Width:  width,
		Height: height,
		Pixels: make([]bool, width*height),
	}
}

// At reports whether the pixel at (x, y) is set.
func (m Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pixels[y*m.Width+x]
}

// Area returns the number of set pixels.
func (m Mask) Area() int {
	n := 0
	for _, p := range m.Pixels {
		if p {
			n++
		}
	}
	return n
}

// DecodeRLE decodes an uncompressed, row-major run-length encoding.
// Runs alternate between unset and set pixels, starting with unset.
func DecodeRLE(width, height int, counts []int) (Mask, error) {
	if width < 0 || height < 0 {
		return Mask{}, fmt.Errorf("%w: negative size %dx%d", ErrInvalidMask, width, height)
	}

	m := NewMask(width, height)
	pos, value := 0, false
	for i, c := range counts {
		if c < 0 {
			return Mask{}, fmt.Errorf("%w: negative run %d at index %d", ErrInvalidMask, c, i)
		}
		if pos+c > len(m.Pixels) {
			return Mask{}, fmt.Errorf("%w: runs exceed %d pixels", ErrInvalidMask, len(m.Pixels))
		}
		if value {
			for j := pos; j < pos+c; j++ {
				m.Pixels[j] = true
			}
		}
		pos += c
		value = !value
	}

	if pos != len(m.Pixels) {
		return Mask{}, fmt.Errorf("%w: runs cover %d of %d pixels", ErrInvalidMask, pos, len(m.Pixels))
	}

	return m, nil
}

// EncodeRLE is the inverse of DecodeRLE.
func (m Mask) EncodeRLE() []int {
	counts := []int{}
	run, value := 0, false
	for _, p := range m.Pixels {
		if p != value {
			counts = append(counts, run)
			run, value = 0, p
		}
		run++
	}
	return append(counts, run)
}
