// Package report writes the artifacts of a smoke-test inference run.
package report

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ekisa-team/sam3lab/internal/segment"
)

const (
	// ImageFile is the name of the synthetic input image.
	ImageFile = "test_image.jpg"

	// ResultsFile is the name of the results summary.
	ResultsFile = "inference_results.txt"

	// JPEGQuality is the quality used by SaveJPEG.
	JPEGQuality = 95
)

// SyntheticImage returns a w×h image filled with c.
func SyntheticImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// SaveJPEG writes img to path, creating parent directories.
func SaveJPEG(path string, img image.Image) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// Success formats the summary of a successful run.
func Success(prompt string, shapes segment.Shapes) string {
	var b strings.Builder
	b.WriteString("Inference successful!\n")
	fmt.Fprintf(&b, "Prompt: %s\n", prompt)
	fmt.Fprintf(&b, "Masks shape: %s\n", shapes.MasksString())
	fmt.Fprintf(&b, "Boxes shape: %s\n", shapes.BoxesString())
	fmt.Fprintf(&b, "Scores shape: %s\n", shapes.ScoresString())
	return b.String()
}

// Failure formats the summary of a failed run.
func Failure(err error) string {
	return fmt.Sprintf("Inference failed: %v\n", err)
}

// WriteSuccess writes the success summary to path.
func WriteSuccess(path, prompt string, shapes segment.Shapes) error {
	return write(path, Success(prompt, shapes))
}

// WriteFailure writes the failure summary to path.
func WriteFailure(path string, err error) error {
	return write(path, Failure(err))
}

func write(path, content string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
