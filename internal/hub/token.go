package hub

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekisa-team/sam3lab/internal/envvar"
	"github.com/ekisa-team/sam3lab/internal/xfs"
)

// TokenStore loads and persists the hub access token.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}

// FileTokenStore reads HF_TOKEN first, then the token file shared with other
// hub clients.
type FileTokenStore struct {
	Path string
}

// DefaultTokenPath returns HF_TOKEN_PATH or <home>/token.
func DefaultTokenPath() string {
	if p := os.Getenv(envvar.HFTokenPath); p != "" {
		return xfs.ExpandTilde(p)
	}
	return filepath.Join(DefaultHome(), "token")
}

// NewFileTokenStore returns a store at the default token path.
func NewFileTokenStore() *FileTokenStore {
	return &FileTokenStore{Path: DefaultTokenPath()}
}

// Load returns the token, or ErrNoToken when none is configured.
func (s *FileTokenStore) Load() (string, error) {
	if t := strings.TrimSpace(os.Getenv(envvar.HFToken)); t != "" {
		return t, nil
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token file %s: %w", s.Path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save writes the token file with owner-only permissions.
func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file %s: %w", s.Path, err)
	}
	return nil
}
