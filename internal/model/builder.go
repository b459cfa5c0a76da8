package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/checkpoint"
	"github.com/ekisa-team/sam3lab/internal/hub"
)

// Builder turns a checkpoint reference into a ready processor.
type Builder struct {
	fetcher    hub.Fetcher
	backends   *backend.Registry
	provider   backend.Provider
	parameters map[string]any
	registry   *Registry
}

// NewBuilder creates a builder that opens processors from backends under provider.
// fetcher may be nil when only local checkpoints are used.
func NewBuilder(fetcher hub.Fetcher, backends *backend.Registry, provider backend.Provider, parameters map[string]any) *Builder {
	return &Builder{
		fetcher:    fetcher,
		backends:   backends,
		provider:   provider,
		parameters: parameters,
		registry:   NewRegistry(),
	}
}

// Registry returns the instances built so far.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Build resolves ref to a local file and opens a processor on it. A local
// reference never touches the fetcher; a remote one always does. There is no
// fallback between the two.
func (b *Builder) Build(ctx context.Context, ref checkpoint.Ref) (*Instance, error) {
	instance := NewInstance(ref)
	b.registry.Set(instance)
	instance.SetStatus(StatusLoading)

	path, err := b.locate(ctx, ref)
	if err != nil {
		instance.SetError(err)
		return instance, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	instance.Path = path

	proc, err := b.backends.Open(ctx, b.provider, backend.Options{
		CheckpointPath: path,
		Parameters:     b.parameters,
	})
	if err != nil {
		instance.SetError(err)
		return instance, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	instance.Processor = proc
	instance.SetStatus(StatusLoaded)

	slog.Info("Model built", "instance_id", instance.ID, "checkpoint", ref.String(), "path", path, "provider", b.provider)
	return instance, nil
}

// Close closes every loaded instance and empties the registry.
func (b *Builder) Close() error {
	var errs []error
	for _, instance := range b.registry.List() {
		if err := instance.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close instance %s: %w", instance.ID, err))
		}
		b.registry.Delete(instance.ID)
	}
	return errors.Join(errs...)
}

func (b *Builder) locate(ctx context.Context, ref checkpoint.Ref) (string, error) {
	switch r := ref.(type) {
	case checkpoint.Local:
		if _, err := os.Stat(r.Path); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrCheckpointMissing, r.Path, err)
		}
		return r.Path, nil

	case checkpoint.Remote:
		if b.fetcher == nil {
			return "", ErrNoFetcher
		}
		slog.Info("Fetching checkpoint", "repo", r.Repo, "file", r.Filename)
		return b.fetcher.Fetch(ctx, r.Repo, r.Filename)

	default:
		return "", fmt.Errorf("unsupported checkpoint reference %T", ref)
	}
}
