package cli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/sam3lab/internal/render"
	"github.com/ekisa-team/sam3lab/internal/segment"
	"github.com/ekisa-team/sam3lab/internal/service"
)

// BoxPromptName names the rendering of the geometric prompt.
const BoxPromptName = "box prompt"

func promptTitle(prompt string) string {
	return "Prompt: " + prompt
}

func boxTitle(source string) string {
	return fmt.Sprintf("Box Prompt (from %s)", source)
}

func newDemoCommand(a *app) *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run every configured prompt over an image and render the results",
		Long: `demo runs each text prompt in inference.prompts over inference.image and saves
result_<prompt>.png. It then takes the best box for inference.box_source_prompt,
resets the prompts and runs that box as a geometric prompt, saving result_box_prompt.png.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if imagePath != "" {
				a.cfg.Inference.Image = imagePath
			}
			return a.runDemo(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "input image (default: inference.image)")
	return cmd
}

func (a *app) runDemo(ctx context.Context) error {
	inf := a.cfg.Inference
	log := slog.With("run_id", newRunID())

	a.print.section("Segmentation demo")

	img, err := render.Load(inf.Image)
	if errors.Is(err, fs.ErrNotExist) {
		a.print.fail("image", "Image not found: "+inf.Image)
		return nil
	}
	if err != nil {
		a.print.fail("image", err.Error())
		return nil
	}
	bounds := img.Bounds()
	a.print.ok("image", fmt.Sprintf("Loaded %s (%dx%d)", inf.Image, bounds.Dx(), bounds.Dy()))

	sess, err := a.openSession(ctx)
	if err != nil {
		log.Error("Build failed", "error", err)
		a.print.fail("model", "Build failed")
		a.print.chain(err)
		return nil
	}
	defer sess.close(a)

	seg := sess.segmenter
	if _, err := seg.Open(ctx, img); err != nil {
		a.print.fail("image", "Set image failed")
		a.print.chain(err)
		return nil
	}

	outcomes, err := seg.RunText(ctx, inf.Prompts)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		name := o.Prompt.String()
		if o.Err != nil {
			a.print.fail(name, "Prompt failed")
			a.print.chain(o.Err)
			continue
		}
		a.save(img, o.Prediction, name, promptTitle(name), seg.Threshold())
	}

	if inf.BoxSourcePrompt == "" {
		a.print.skip(BoxPromptName, "No box_source_prompt configured")
		return nil
	}
	a.runBoxPrompt(ctx, seg, img, inf.BoxSourcePrompt)
	return nil
}

// runBoxPrompt turns the best detection for source into a geometric prompt
// and runs it on a clean prompt state.
func (a *app) runBoxPrompt(ctx context.Context, seg *service.Segmenter, img image.Image, source string) {
	pred, err := seg.Text(ctx, source)
	if err != nil {
		a.print.fail(BoxPromptName, "Source prompt failed")
		a.print.chain(err)
		return
	}

	bounds := img.Bounds()
	box, ok := service.BoxFromBest(pred, bounds.Dx(), bounds.Dy())
	if !ok {
		a.print.skip(BoxPromptName, fmt.Sprintf("No detection for %q", source))
		return
	}
	a.print.info(BoxPromptName, "Normalized box "+box.String())

	if err := seg.Reset(ctx); err != nil {
		a.print.fail(BoxPromptName, "Reset failed")
		a.print.chain(err)
		return
	}

	pred, err = seg.Box(ctx, box, true)
	if err != nil {
		a.print.fail(BoxPromptName, "Box prompt failed")
		a.print.chain(err)
		return
	}
	a.save(img, pred, BoxPromptName, boxTitle(source), seg.Threshold())
}

// save renders pred under title and writes it to result_<name>.png.
func (a *app) save(img image.Image, pred segment.Prediction, name, title string, threshold float64) {
	opts := render.Options{
		RandomColors: a.cfg.Inference.RandomColors,
		Seed:         a.cfg.Inference.Seed,
	}

	out := render.Render(img, pred, title, threshold, opts)
	path := filepath.Join(outputDir(a.cfg), render.FileName(name))
	if err := render.SavePNG(path, out); err != nil {
		a.print.fail(name, err.Error())
		return
	}

	kept := len(pred.Above(threshold))
	a.print.ok(name, fmt.Sprintf("%d of %d detections above %.2f, saved %s", kept, pred.Len(), threshold, path))
}
