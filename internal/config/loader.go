package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/sam3lab/internal/envvar"
	"github.com/ekisa-team/sam3lab/internal/xfs"
)

//go:embed schema.json
var schemaJSON string

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("sam3lab.schema.json", schemaJSON)
})

// LoadAndValidate loads the file at path, validates it against the embedded
// schema and merges it over the defaults.
func LoadAndValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates YAML config data and merges it over the defaults.
func Parse(data []byte) (*Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("config: failed to compile schema: %w", err)
	}

	if raw != nil {
		if err := schema.Validate(raw); err != nil {
			return nil, fmt.Errorf("config: validation failed: %w", err)
		}
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal into Config struct: %w", err)
	}

	applyEnv(config)
	return config, nil
}

// LoadOrDefault loads path, falling back to the defaults when the file does
// not exist. The returned flag reports whether the file was read.
func LoadOrDefault(path string) (*Config, bool, error) {
	config, err := LoadAndValidate(path)
	if err == nil {
		return config, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		config = Default()
		applyEnv(config)
		return config, false, nil
	}
	return nil, false, err
}

// applyEnv applies environment overrides and expands paths.
func applyEnv(c *Config) {
	if v := os.Getenv(envvar.Sam3labOutputDir); v != "" {
		c.Inference.OutputDir = v
	}
	if v := os.Getenv(envvar.Sam3labLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(envvar.HFEndpoint); v != "" && c.Hub.Endpoint == "" {
		c.Hub.Endpoint = v
	}

	c.Hub.CacheDir = xfs.ExpandTilde(c.Hub.CacheDir)
	c.Checkpoint.Path = xfs.ExpandTilde(c.Checkpoint.Path)
	c.Processor.HTTP.BinPath = xfs.ExpandTilde(c.Processor.HTTP.BinPath)
	c.Inference.Image = xfs.ExpandTilde(c.Inference.Image)
	c.Inference.OutputDir = xfs.ExpandTilde(c.Inference.OutputDir)
	c.Log.File = xfs.ExpandTilde(c.Log.File)
}
