package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/seasonjs/hf-hub/api"
)

const lockRetryDelay = 250 * time.Millisecond

// Fetcher returns a local path for a file in a model repository, downloading it
// into the hub cache when needed.
type Fetcher interface {
	Fetch(ctx context.Context, repo, filename string) (string, error)
}

// RepoGetter downloads files from one repository. Get blocks until the file is
// cached and cannot be cancelled.
type RepoGetter interface {
	Get(filename string) (string, error)
}

// HubFetcher downloads through the hub client, one process per file at a time.
type HubFetcher struct {
	cache    Cache
	open     func(repo string) RepoGetter
	timeout  time.Duration
	endpoint string
	token    string
}

// NewHubFetcher creates a fetcher backed by the hub API client. Downloads land
// in cache and authenticate with the token from tokens, if any. An empty
// endpoint uses HF_ENDPOINT or the public hub. A zero timeout waits forever
// for the download lock.
func NewHubFetcher(cache Cache, tokens TokenStore, endpoint string, timeout time.Duration) (*HubFetcher, error) {
	var token string
	if tokens != nil {
		t, err := tokens.Load()
		if err != nil && !errors.Is(err, ErrNoToken) {
			return nil, fmt.Errorf("%w: load token: %w", ErrFetchFailed, err)
		}
		token = t
	}
	endpoint = ResolveEndpoint(endpoint)

	builder, err := new(api.ApiBuilder).FromCache(api.NewCache(cache.Dir))
	if err != nil {
		return nil, fmt.Errorf("%w: create hub api: %w", ErrFetchFailed, err)
	}
	hapi := builder.
		WithCacheDir(cache.Dir).
		WithEndpoint(endpoint).
		WithToken(token).
		Build()

	return &HubFetcher{
		cache:    cache,
		timeout:  timeout,
		endpoint: endpoint,
		token:    token,
		open: func(repo string) RepoGetter {
			return hapi.Model(repo)
		},
	}, nil
}

// NewFetcherWithGetter creates a fetcher with a custom repository opener.
func NewFetcherWithGetter(cache Cache, timeout time.Duration, open func(repo string) RepoGetter) *HubFetcher {
	return &HubFetcher{
		cache:   cache,
		timeout: timeout,
		open:    open,
	}
}

// CacheDir returns the directory downloads are stored under.
func (f *HubFetcher) CacheDir() string {
	return f.cache.Dir
}

// Fetch downloads filename from repo and returns its local path. ctx bounds
// the wait for the download lock only; once held, the download runs to
// completion.
func (f *HubFetcher) Fetch(ctx context.Context, repo, filename string) (string, error) {
	if err := ValidateRepo(repo); err != nil {
		return "", err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	lockPath := f.cache.LockPath(repo, filename)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: create lock directory: %w", ErrFetchFailed, err)
	}

	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("%w: lock %s: %w", ErrFetchFailed, lockPath, err)
	}
	if !locked {
		return "", fmt.Errorf("%w: could not lock %s", ErrFetchFailed, lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release download lock", "path", lockPath, "error", err)
		}
	}()

	slog.Info("Fetching file", "repo", repo, "file", filename)

	start := time.Now()
	path, err := f.open(repo).Get(filename)
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s: %w", ErrFetchFailed, repo, filename, err)
	}

	slog.Info("File available", "repo", repo, "file", filename, "path", path, "elapsed", time.Since(start))
	return path, nil
}
