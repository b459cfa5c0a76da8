// Package render draws segmentation results onto images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ekisa-team/sam3lab/internal/segment"
)

const (
	// MaskAlpha is the opacity of a mask overlay.
	MaskAlpha = 0.6

	// BoxThickness is the width in pixels of a box outline.
	BoxThickness = 2
)

var (
	// MaskColor is the overlay color used when colors are not randomized.
	MaskColor = color.RGBA{R: 30, G: 144, B: 255, A: 255}

	boxColor   = color.RGBA{G: 255, A: 255}
	labelColor = color.RGBA{G: 128, A: 128}
	titleColor = color.RGBA{A: 160}
)

// Options controls how detections are drawn.
type Options struct {
	// RandomColors picks a random overlay color per detection.
	RandomColors bool

	// Seed seeds the color generator. Equal seeds give equal colors.
	Seed uint64
}

// Render returns a copy of img with every detection scoring above threshold
// drawn on it and title written on the top line.
func Render(img image.Image, pred segment.Prediction, title string, threshold float64, opts Options) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	for _, d := range pred.Above(threshold) {
		c := MaskColor
		if opts.RandomColors {
			c = color.RGBA{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), A: 255}
		}

		overlayMask(canvas, d.Mask, c, MaskAlpha)
		outlineBox(canvas, d.Box, boxColor, BoxThickness)
		label(canvas, fmt.Sprintf("%.2f", d.Score), int(d.Box.X0), int(d.Box.Y0), labelColor)
	}

	if title != "" {
		label(canvas, title, 0, 0, titleColor)
	}
	return canvas
}

// overlayMask alpha-blends c over the pixels set in m. A mask whose size
// differs from the canvas is sampled nearest-neighbor.
func overlayMask(dst *image.RGBA, m segment.Mask, c color.RGBA, alpha float64) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	if m.Width == 0 || m.Height == 0 {
		return
	}

	for y := 0; y < h; y++ {
		my := y * m.Height / h
		for x := 0; x < w; x++ {
			if !m.At(x*m.Width/w, my) {
				continue
			}
			px := dst.RGBAAt(x, y)
			dst.SetRGBA(x, y, color.RGBA{
				R: blend(px.R, c.R, alpha),
				G: blend(px.G, c.G, alpha),
				B: blend(px.B, c.B, alpha),
				A: px.A,
			})
		}
	}
}

func blend(under, over uint8, alpha float64) uint8 {
	return uint8(float64(under)*(1-alpha) + float64(over)*alpha + 0.5)
}

func outlineBox(dst *image.RGBA, b segment.Box, c color.RGBA, thickness int) {
	r := image.Rect(int(b.X0), int(b.Y0), int(b.X1), int(b.Y1)).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}

	src := image.NewUniform(c)
	t := min(thickness, r.Dx(), r.Dy())
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, edge, src, image.Point{}, draw.Src)
	}
}

// label writes text in white on a translucent background whose top-left
// corner is (x, y).
func label(dst *image.RGBA, text string, x, y int, bg color.RGBA) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	height := metrics.Height.Ceil()

	box := image.Rect(x, y, x+width+4, y+height+2).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(x+2, y+1+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
