package hub

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekisa-team/sam3lab/internal/envvar"
	"github.com/ekisa-team/sam3lab/internal/xfs"
)

// Cache describes the on-disk layout of the hub client's cache:
// <Dir>/models--<org>--<model>/snapshots/<revision>/<file>.
type Cache struct {
	Dir string
}

// DefaultHome returns HF_HOME, falling back to XDG_CACHE_HOME/huggingface and
// then ~/.cache/huggingface.
func DefaultHome() string {
	if h := os.Getenv(envvar.HFHome); h != "" {
		return xfs.ExpandTilde(h)
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "huggingface")
	}
	return xfs.ExpandTilde(filepath.Join("~", ".cache", "huggingface"))
}

// DefaultCacheDir returns HF_HUB_CACHE, falling back to <home>/hub.
func DefaultCacheDir() string {
	if c := os.Getenv(envvar.HFHubCache); c != "" {
		return xfs.ExpandTilde(c)
	}
	return filepath.Join(DefaultHome(), "hub")
}

// NewCache returns a cache rooted at dir, or at the default location when dir is empty.
func NewCache(dir string) Cache {
	if dir == "" {
		return Cache{Dir: DefaultCacheDir()}
	}
	return Cache{Dir: xfs.ExpandTilde(dir)}
}

// ValidateRepo checks that repo has the "org/name" form.
func ValidateRepo(repo string) error {
	org, name, ok := strings.Cut(repo, "/")
	if !ok || org == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}
	return nil
}

// RepoFolderName returns the cache folder name for a model repository,
// e.g. "facebook/sam3" → "models--facebook--sam3".
func RepoFolderName(repo string) string {
	return "models--" + strings.ReplaceAll(repo, "/", "--")
}

// RepoDir returns the cache folder of repo.
func (c Cache) RepoDir(repo string) string {
	return filepath.Join(c.Dir, RepoFolderName(repo))
}

// SnapshotsDir returns the folder holding one subdirectory per cached revision.
func (c Cache) SnapshotsDir(repo string) string {
	return filepath.Join(c.RepoDir(repo), "snapshots")
}

// LockPath returns the lock file guarding downloads of filename in repo.
func (c Cache) LockPath(repo, filename string) string {
	return filepath.Join(c.Dir, ".locks", RepoFolderName(repo), filepath.Base(filename)+".lock")
}
