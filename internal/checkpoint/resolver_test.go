package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/sam3lab/internal/envvar"
	"github.com/ekisa-team/sam3lab/internal/hub"
)

const (
	testRepo = "facebook/sam3"
	testFile = "sam3.pt"
)

func makeSnapshot(t *testing.T, cache hub.Cache, name string, mtime time.Time, withFile bool) string {
	t.Helper()

	dir := filepath.Join(cache.SnapshotsDir(testRepo), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if withFile {
		require.NoError(t, os.WriteFile(filepath.Join(dir, testFile), []byte("weights"), 0o644))
	}
	require.NoError(t, os.Chtimes(dir, mtime, mtime))
	return dir
}

func TestResolver_FindNoCache(t *testing.T) {
	cache := hub.NewCache(t.TempDir())

	_, ok := NewResolver(cache, testRepo, testFile).Find()
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(cache.SnapshotsDir(testRepo), 0o755))
	_, ok = NewResolver(cache, testRepo, testFile).Find()
	assert.False(t, ok)
}

func TestResolver_FindLatestByModTime(t *testing.T) {
	cache := hub.NewCache(t.TempDir())
	now := time.Now()

	makeSnapshot(t, cache, "ffff-newest-by-name", now.Add(-2*time.Hour), true)
	want := makeSnapshot(t, cache, "0000-oldest-by-name", now, true)
	makeSnapshot(t, cache, "8888", now.Add(-time.Hour), true)

	path, ok := NewResolver(cache, testRepo, testFile).Find()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(want, testFile), path)
	assert.True(t, strings.HasSuffix(path, testFile))
}

func TestResolver_FindLatestWithoutFile(t *testing.T) {
	cache := hub.NewCache(t.TempDir())
	now := time.Now()

	makeSnapshot(t, cache, "old", now.Add(-time.Hour), true)
	makeSnapshot(t, cache, "new", now, false)

	_, ok := NewResolver(cache, testRepo, testFile).Find()
	assert.False(t, ok)
}

func TestResolver_Resolve(t *testing.T) {
	cache := hub.NewCache(t.TempDir())
	r := NewResolver(cache, testRepo, testFile)

	assert.Equal(t, Remote{Repo: testRepo, Filename: testFile}, r.Resolve(""))

	snap := makeSnapshot(t, cache, "abc", time.Now(), true)
	assert.Equal(t, Local{Path: filepath.Join(snap, testFile)}, r.Resolve(""))

	assert.Equal(t, Local{Path: "/models/custom.pt"}, r.Resolve("/models/custom.pt"))
}

func TestRef_String(t *testing.T) {
	assert.Equal(t, "local:/x/sam3.pt", Local{Path: "/x/sam3.pt"}.String())
	assert.Equal(t, "hub:facebook/sam3/sam3.pt", Remote{Repo: testRepo, Filename: testFile}.String())
	assert.Equal(t, "hub:facebook/sam3@main/sam3.pt", Remote{Repo: testRepo, Filename: testFile, Revision: "main"}.String())
}

func TestResolver_SharesCacheWithFetcher(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envvar.HFHubCache, dir)

	cache := hub.NewCache("")
	f, err := hub.NewHubFetcher(cache, &hub.FileTokenStore{Path: filepath.Join(t.TempDir(), "token")}, "", 0)
	require.NoError(t, err)
	require.Equal(t, dir, f.CacheDir())

	snapshot := filepath.Join(f.CacheDir(), hub.RepoFolderName(testRepo), "snapshots", "abc123")
	require.NoError(t, os.MkdirAll(snapshot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapshot, testFile), []byte("weights"), 0o644))

	path, ok := NewResolver(cache, testRepo, testFile).Find()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(snapshot, testFile), path)
}
