package checkpoint

import (
	"log/slog"
	"path/filepath"

	"github.com/ekisa-team/sam3lab/internal/hub"
	"github.com/ekisa-team/sam3lab/internal/xfs"
)

// Resolver looks for a checkpoint in the hub cache before falling back to a
// remote fetch. It only reads the filesystem.
type Resolver struct {
	cache    hub.Cache
	repo     string
	filename string
}

// NewResolver creates a resolver for filename in repo.
func NewResolver(cache hub.Cache, repo, filename string) *Resolver {
	return &Resolver{
		cache:    cache,
		repo:     repo,
		filename: filename,
	}
}

// Find returns the checkpoint in the most recently modified snapshot directory.
// It reports false when no snapshot exists or the newest one lacks the file.
func (r *Resolver) Find() (string, bool) {
	snapshots := r.cache.SnapshotsDir(r.repo)

	latest, found, err := xfs.LatestSubdir(snapshots)
	if err != nil {
		slog.Debug("Cannot list snapshots", "dir", snapshots, "error", err)
		return "", false
	}
	if !found {
		return "", false
	}

	path := filepath.Join(latest, r.filename)
	if !xfs.FileExists(path) {
		slog.Debug("Latest snapshot has no checkpoint", "snapshot", latest, "file", r.filename)
		return "", false
	}

	slog.Info("Found cached checkpoint", "path", path)
	return path, true
}

// Resolve picks the checkpoint for this run. An explicit local path wins, then
// a cached snapshot, then the hub.
func (r *Resolver) Resolve(explicit string) Ref {
	if explicit != "" {
		return Local{Path: xfs.ExpandTilde(explicit)}
	}
	if path, ok := r.Find(); ok {
		return Local{Path: path}
	}
	return Remote{Repo: r.repo, Filename: r.filename}
}
