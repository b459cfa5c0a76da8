package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/checkpoint"
	"github.com/ekisa-team/sam3lab/internal/hub"
	"github.com/ekisa-team/sam3lab/internal/model"
	"github.com/ekisa-team/sam3lab/internal/service"
)

// session is a built processor ready for prompts.
type session struct {
	builder   *model.Builder
	instance  *model.Instance
	segmenter *service.Segmenter
}

// close releases the processor and stops any sidecar started for it.
func (s *session) close(a *app) {
	if err := s.builder.Close(); err != nil {
		slog.Warn("Failed to close processor", "error", err)
	}
	a.stopServers()
}

// openSession runs the resolve and build steps.
func (a *app) openSession(ctx context.Context) (*session, error) {
	ckpt := a.cfg.Checkpoint
	resolver := checkpoint.NewResolver(a.hubCache(), ckpt.Repo, ckpt.Filename)
	ref := resolver.Resolve(ckpt.Path)

	switch r := ref.(type) {
	case checkpoint.Local:
		a.print.ok("checkpoint", "Using local checkpoint "+r.Path)
	case checkpoint.Remote:
		a.print.info("checkpoint", "No cached checkpoint, loading "+r.String())
	}

	var fetcher hub.Fetcher
	if _, remote := ref.(checkpoint.Remote); remote {
		f, err := a.fetcher()
		if err != nil {
			return nil, err
		}
		fetcher = f
	}

	builder := model.NewBuilder(fetcher, a.backends(), backend.Provider(a.cfg.Processor.Provider), a.cfg.Processor.Parameters)
	instance, err := builder.Build(ctx, ref)
	if err != nil {
		a.stopServers()
		return nil, err
	}

	a.print.ok("model", fmt.Sprintf("Processor ready (%s)", instance.Processor.Provider()))
	return &session{
		builder:   builder,
		instance:  instance,
		segmenter: service.NewSegmenter(instance.Processor, a.cfg.Inference.ScoreThreshold),
	}, nil
}
