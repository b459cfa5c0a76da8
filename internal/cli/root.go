// Package cli implements the sam3lab command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/backend/sam3grpc"
	"github.com/ekisa-team/sam3lab/internal/backend/sam3http"
	"github.com/ekisa-team/sam3lab/internal/config"
	"github.com/ekisa-team/sam3lab/internal/env"
	"github.com/ekisa-team/sam3lab/internal/hub"
	"github.com/ekisa-team/sam3lab/internal/logger"
)

// Deps overrides collaborators. Nil fields are built from the config.
type Deps struct {
	Backends    *backend.Registry
	Fetcher     hub.Fetcher
	Hub         *hub.Client
	HTTPClient  *http.Client
	PromptToken func(prompt string) (string, error)
}

// app is the state shared by every command of one invocation.
type app struct {
	deps       Deps
	configPath string
	logLevel   string
	cfg        *config.Config
	servers    *backend.ServerManager
	print      *printer
}

// NewRootCommand builds the sam3lab command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	a := &app{deps: deps}

	root := &cobra.Command{
		Use:          "sam3lab",
		Short:        "Experiment harness for the SAM3 segmentation model",
		SilenceUsage: true,
		Long: `sam3lab authenticates against the model hub, downloads the SAM3 checkpoint,
builds a segmentation processor and runs text and box prompts over images.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.print = &printer{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}
			return a.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (default: $SAM3LAB_CONFIG, ./config.yaml, then the user config dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newAuthCommand(a),
		newDownloadCommand(a),
		newInferCommand(a),
		newDemoCommand(a),
		newWatchCommand(a),
	)
	return root
}

// Execute runs the command tree with ctx and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(Deps{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func (a *app) loadConfig() error {
	path := config.ResolvePath(a.configPath)

	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}
	a.configPath = path
	a.cfg = cfg

	a.setupLogging()

	if found {
		slog.Debug("Config loaded", "path", path)
	} else {
		slog.Debug("No config file, using defaults", "path", path)
	}
	return nil
}

func (a *app) setupLogging() {
	opts := []logger.Option{
		logger.WithLogToFile(a.cfg.Log.ToFile),
		logger.WithLogFile(a.cfg.Log.File),
	}

	level := a.logLevel
	if level == "" {
		level = a.cfg.Log.Level
	}
	if level != "" {
		if l, err := logger.ParseLevel(level); err == nil {
			opts = append(opts, logger.WithLevel(l))
		}
	}

	slog.SetDefault(logger.New(env.FromEnv(), opts...))
}

func (a *app) hubCache() hub.Cache {
	return hub.NewCache(a.cfg.Hub.CacheDir)
}

func (a *app) hubClient() *hub.Client {
	if a.deps.Hub != nil {
		return a.deps.Hub
	}
	return hub.NewClient(a.cfg.Hub.Endpoint, a.deps.HTTPClient, hub.NewFileTokenStore())
}

func (a *app) fetcher() (hub.Fetcher, error) {
	if a.deps.Fetcher != nil {
		return a.deps.Fetcher, nil
	}
	return hub.NewHubFetcher(a.hubCache(), hub.NewFileTokenStore(), a.cfg.Hub.Endpoint, a.cfg.Hub.Timeout)
}

// backends returns the processor factories. The server manager is kept so
// spawned sidecars can be stopped when the command ends.
func (a *app) backends() *backend.Registry {
	if a.deps.Backends != nil {
		return a.deps.Backends
	}

	if a.servers == nil {
		a.servers = backend.NewServerManager()
	}

	httpCfg := a.cfg.Processor.HTTP
	grpcCfg := a.cfg.Processor.GRPC

	reg := backend.NewRegistry()
	_ = reg.Register(backend.ProviderHTTP, sam3http.NewFactory(sam3http.Config{
		BaseURL:        httpCfg.BaseURL,
		BinPath:        httpCfg.BinPath,
		Port:           httpCfg.Port,
		Args:           httpCfg.Args,
		Env:            httpCfg.Env,
		ReadyTimeout:   httpCfg.ReadyTimeout,
		RequestTimeout: httpCfg.RequestTimeout,
		Stdout:         a.print.err,
		Stderr:         a.print.err,
	}, a.servers))
	_ = reg.Register(backend.ProviderGRPC, sam3grpc.NewFactory(sam3grpc.Config{
		Address:        grpcCfg.Address,
		RequestTimeout: grpcCfg.RequestTimeout,
	}))
	return reg
}

func (a *app) stopServers() {
	if a.servers != nil {
		a.servers.StopAll()
	}
}

func (a *app) promptToken(prompt string) (string, error) {
	if a.deps.PromptToken != nil {
		return a.deps.PromptToken(prompt)
	}

	rl, err := readline.New("")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rl.Close()
	}()

	b, err := rl.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func newRunID() string {
	return uuid.NewString()
}

func outputDir(cfg *config.Config) string {
	if cfg.Inference.OutputDir == "" {
		return "."
	}
	return cfg.Inference.OutputDir
}
