// Package sam3http talks to a SAM3 processor sidecar over HTTP/JSON.
package sam3http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/mapsafe"
	"github.com/ekisa-team/sam3lab/internal/segment"
)

const (
	ServerName  = "sam3-server"
	DefaultPort = 8090
)

// Config describes how to reach the processor server.
type Config struct {
	// BaseURL of an already running server. When empty the server binary is started.
	BaseURL string

	BinPath      string
	Port         int
	Args         []string
	Env          map[string]string
	ReadyTimeout time.Duration

	// RequestTimeout bounds each call; zero means no timeout.
	RequestTimeout time.Duration

	// Stdout and Stderr receive a started server's output. Nil means os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Backend implements backend.Processor over HTTP.
type Backend struct {
	baseURL       string
	client        *http.Client
	serverManager *backend.ServerManager
	port          int
	spawned       bool
	sessions      map[string]struct{}
}

// NewFactory returns a factory that starts (or connects to) the processor server
// for the checkpoint given in the options.
func NewFactory(cfg Config, serverManager *backend.ServerManager) backend.Factory {
	return func(ctx context.Context, opts backend.Options) (backend.Processor, error) {
		return New(ctx, cfg, serverManager, opts)
	}
}

// New creates a Backend.
func New(ctx context.Context, cfg Config, serverManager *backend.ServerManager, opts backend.Options) (*Backend, error) {
	b := &Backend{
		client:        &http.Client{Timeout: cfg.RequestTimeout},
		serverManager: serverManager,
		port:          cfg.Port,
		sessions:      map[string]struct{}{},
	}
	if b.port == 0 {
		b.port = DefaultPort
	}

	if cfg.BaseURL != "" {
		b.baseURL = strings.TrimRight(cfg.BaseURL, "/")
		slog.Info("Using external processor server", "url", b.baseURL)
		return b, nil
	}

	if serverManager == nil {
		return nil, errors.New("sam3http: no base URL and no server manager")
	}

	url, err := serverManager.StartServer(ctx, b.serverConfig(cfg, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	b.baseURL = url
	b.spawned = true
	return b, nil
}

// Provider implements backend.Processor.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderHTTP
}

// SetImage implements backend.Processor.
func (b *Backend) SetImage(ctx context.Context, img image.Image) (*backend.State, error) {
	body, err := backend.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	var resp backend.SessionResponse
	if err := b.call(ctx, http.MethodPost, "/v1/sessions", "image/png", bytes.NewReader(body), &resp); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	if resp.Width == 0 || resp.Height == 0 {
		bounds := img.Bounds()
		resp.Width, resp.Height = bounds.Dx(), bounds.Dy()
	}

	b.sessions[resp.SessionID] = struct{}{}
	return backend.NewState(resp.SessionID, resp.Width, resp.Height), nil
}

// SetTextPrompt implements backend.Processor.
func (b *Backend) SetTextPrompt(ctx context.Context, state *backend.State, prompt string) (segment.Prediction, error) {
	if err := backend.Check(state); err != nil {
		return segment.Prediction{}, err
	}

	pred, err := b.predict(ctx, state.ID, "text", backend.TextPromptRequest{Prompt: prompt})
	if err != nil {
		return segment.Prediction{}, err
	}

	state.RecordText(prompt)
	return pred, nil
}

// AddGeometricPrompt implements backend.Processor.
func (b *Backend) AddGeometricPrompt(ctx context.Context, state *backend.State, box segment.NormalizedBox, label bool) (segment.Prediction, error) {
	if err := backend.Check(state); err != nil {
		return segment.Prediction{}, err
	}
	if err := box.Validate(); err != nil {
		return segment.Prediction{}, err
	}

	pred, err := b.predict(ctx, state.ID, "geometric", backend.NewGeometricPromptRequest(box, label))
	if err != nil {
		return segment.Prediction{}, err
	}

	state.RecordBox(segment.BoxPrompt{Box: box, Label: label})
	return pred, nil
}

// ResetAllPrompts implements backend.Processor.
func (b *Backend) ResetAllPrompts(ctx context.Context, state *backend.State) error {
	if err := backend.Check(state); err != nil {
		return err
	}

	if err := b.call(ctx, http.MethodPost, "/v1/sessions/"+state.ID+"/reset", "", http.NoBody, nil); err != nil {
		return fmt.Errorf("reset prompts: %w", err)
	}

	state.Reset()
	return nil
}

// Close drops open sessions and stops the server if this backend started it.
func (b *Backend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for id := range b.sessions {
		if err := b.call(ctx, http.MethodDelete, "/v1/sessions/"+id, "", http.NoBody, nil); err != nil {
			slog.Debug("Failed to delete session", "session", id, "error", err)
		}
		delete(b.sessions, id)
	}

	if b.spawned {
		return b.serverManager.StopServer(ServerName, b.port)
	}
	return nil
}

func (b *Backend) predict(ctx context.Context, sessionID, kind string, req any) (segment.Prediction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return segment.Prediction{}, fmt.Errorf("encode %s prompt: %w", kind, err)
	}

	var payload backend.PredictionPayload
	path := "/v1/sessions/" + sessionID + "/" + kind
	if err := b.call(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), &payload); err != nil {
		return segment.Prediction{}, fmt.Errorf("%w: %s prompt: %w", backend.ErrInference, kind, err)
	}

	pred, err := payload.Prediction()
	if err != nil {
		return segment.Prediction{}, fmt.Errorf("%w: %s prompt: %w", backend.ErrInference, kind, err)
	}
	return pred, nil
}

func (b *Backend) call(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// buildArgs builds the server command line.
func (b *Backend) serverConfig(cfg Config, opts backend.Options) backend.ServerConfig {
	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stderr
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	return backend.ServerConfig{
		Name:         ServerName,
		BinPath:      cfg.BinPath,
		Args:         b.buildArgs(cfg, opts),
		Env:          cfg.Env,
		Port:         b.port,
		HealthPath:   "/health",
		ReadyTimeout: cfg.ReadyTimeout,
		Stdout:       stdout,
		Stderr:       stderr,
	}
}

func (b *Backend) buildArgs(cfg Config, opts backend.Options) []string {
	args := []string{
		"--checkpoint", opts.CheckpointPath,
		"--port", strconv.Itoa(b.port),
		"--host", "127.0.0.1",
	}

	p := opts.Parameters
	if p == nil {
		p = make(map[string]any)
	}

	if v := mapsafe.Get(p, "device", ""); v != "" {
		args = append(args, "--device", v)
	}
	if mapsafe.Get(p, "compile", false) {
		args = append(args, "--compile")
	}
	if v := mapsafe.Get(p, "confidence", -1.0); v >= 0 {
		args = append(args, "--confidence", strconv.FormatFloat(v, 'f', -1, 64))
	}

	return append(args, cfg.Args...)
}
