package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/ekisa-team/sam3lab/internal/envvar"
	"github.com/ekisa-team/sam3lab/internal/xfs"
)

// ConfigFileName is the config file looked up in the config directory.
const ConfigFileName = "config.yaml"

// DefaultConfigDir returns the default sam3lab config directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "sam3lab", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "sam3lab")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "sam3lab")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "sam3lab")
		}
		return filepath.Join(home, ".config", "sam3lab")
	}
}

// ResolvePath returns the config file to load.
// Precedence:
// 1. explicit path (the --config flag).
// 2. SAM3LAB_CONFIG environment variable.
// 3. config.yaml in the working directory, if present.
// 4. config.yaml in the default config directory.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return xfs.ExpandTilde(explicit)
	}
	if p := os.Getenv(envvar.Sam3labConfig); p != "" {
		return xfs.ExpandTilde(p)
	}
	if xfs.FileExists(ConfigFileName) {
		return ConfigFileName
	}
	return filepath.Join(DefaultConfigDir(), ConfigFileName)
}
