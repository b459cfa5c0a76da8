package config

import (
	"time"
)

// Config holds the main configuration for the application.
type Config struct {
	Version    string           `json:"version"              yaml:"version"`
	Hub        HubConfig        `json:"hub,omitempty"        yaml:"hub,omitempty"`
	Checkpoint CheckpointConfig `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty"`
	Processor  ProcessorConfig  `json:"processor,omitempty"  yaml:"processor,omitempty"`
	Inference  InferenceConfig  `json:"inference,omitempty"  yaml:"inference,omitempty"`
	Log        LogConfig        `json:"log,omitempty"        yaml:"log,omitempty"`
}

// HubConfig holds settings for the model hub.
type HubConfig struct {
	Endpoint string        `json:"endpoint,omitempty"  yaml:"endpoint,omitempty"`
	CacheDir string        `json:"cache_dir,omitempty" yaml:"cache_dir,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"   yaml:"timeout,omitempty"`
}

// CheckpointConfig names the checkpoint to load.
type CheckpointConfig struct {
	Repo       string `json:"repo"                  yaml:"repo"`
	Filename   string `json:"filename"              yaml:"filename"`
	ConfigFile string `json:"config_file,omitempty" yaml:"config_file,omitempty"`

	// Path, when set, is used as the checkpoint without consulting the cache.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ProcessorConfig selects and configures the segmentation processor.
type ProcessorConfig struct {
	Provider   string         `json:"provider"             yaml:"provider"`
	HTTP       HTTPConfig     `json:"http,omitempty"       yaml:"http,omitempty"`
	GRPC       GRPCConfig     `json:"grpc,omitempty"       yaml:"grpc,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// HTTPConfig configures the HTTP sidecar.
type HTTPConfig struct {
	BaseURL        string            `json:"base_url,omitempty"        yaml:"base_url,omitempty"`
	BinPath        string            `json:"bin_path,omitempty"        yaml:"bin_path,omitempty"`
	Port           int               `json:"port,omitempty"            yaml:"port,omitempty"`
	Args           []string          `json:"args,omitempty"            yaml:"args,omitempty"`
	Env            map[string]string `json:"env,omitempty"             yaml:"env,omitempty"`
	ReadyTimeout   time.Duration     `json:"ready_timeout,omitempty"   yaml:"ready_timeout,omitempty"`
	RequestTimeout time.Duration     `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
}

// GRPCConfig configures the remote gRPC processor.
type GRPCConfig struct {
	Address        string        `json:"address,omitempty"         yaml:"address,omitempty"`
	RequestTimeout time.Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
}

// InferenceConfig holds the demo and smoke-test inputs.
type InferenceConfig struct {
	ScoreThreshold  float64  `json:"score_threshold"             yaml:"score_threshold"`
	Image           string   `json:"image,omitempty"             yaml:"image,omitempty"`
	Prompts         []string `json:"prompts,omitempty"           yaml:"prompts,omitempty"`
	BoxSourcePrompt string   `json:"box_source_prompt,omitempty" yaml:"box_source_prompt,omitempty"`
	OutputDir       string   `json:"output_dir,omitempty"        yaml:"output_dir,omitempty"`
	RandomColors    bool     `json:"random_colors,omitempty"     yaml:"random_colors,omitempty"`
	Seed            uint64   `json:"seed,omitempty"              yaml:"seed,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level,omitempty"   yaml:"level,omitempty"`
	ToFile bool   `json:"to_file,omitempty" yaml:"to_file,omitempty"`
	File   string `json:"file,omitempty"    yaml:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Checkpoint: CheckpointConfig{
			Repo:       "facebook/sam3",
			Filename:   "sam3.pt",
			ConfigFile: "config.json",
		},
		Processor: ProcessorConfig{
			Provider: "sam3-http",
			HTTP: HTTPConfig{
				BinPath:        "sam3-server",
				Port:           8090,
				ReadyTimeout:   5 * time.Minute,
				RequestTimeout: 2 * time.Minute,
			},
			GRPC: GRPCConfig{
				Address:        "localhost:50051",
				RequestTimeout: 2 * time.Minute,
			},
		},
		Inference: InferenceConfig{
			ScoreThreshold:  0.5,
			Image:           "assets/images/truck.jpg",
			Prompts:         []string{"truck", "wheel"},
			BoxSourcePrompt: "truck",
			OutputDir:       ".",
			RandomColors:    true,
		},
		Log: LogConfig{
			Level: "",
			File:  "logs/sam3lab.log",
		},
	}
}
