// Package sam3grpc talks to a remote SAM3 processor service over gRPC.
//
// The service exposes unary methods on sam3.v1.Processor whose request and
// response messages are google.protobuf.Struct values carrying the same JSON
// payloads as the HTTP sidecar. Readiness is checked with grpc.health.v1.
package sam3grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/segment"
)

const (
	// ServiceName is the fully-qualified processor service.
	ServiceName = "sam3.v1.Processor"

	// CheckpointMetadataKey carries the checkpoint path on SetImage calls.
	CheckpointMetadataKey = "x-sam3-checkpoint"
)

// Config describes the remote service.
type Config struct {
	Address        string
	RequestTimeout time.Duration
	DialOptions    []grpc.DialOption
}

type setImageRequest struct {
	ImagePNG []byte `json:"image_png"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type textRequest struct {
	SessionID string `json:"session_id"`
	backend.TextPromptRequest
}

type geometricRequest struct {
	SessionID string `json:"session_id"`
	backend.GeometricPromptRequest
}

// Backend implements backend.Processor over gRPC.
type Backend struct {
	conn       *grpc.ClientConn
	checkpoint string
	timeout    time.Duration
}

// NewFactory returns a factory connecting to the configured service.
func NewFactory(cfg Config) backend.Factory {
	return func(ctx context.Context, opts backend.Options) (backend.Processor, error) {
		return New(ctx, cfg, opts)
	}
}

// New connects to the service and waits until it reports SERVING.
func New(ctx context.Context, cfg Config, opts backend.Options) (*Backend, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("sam3grpc: dial %s: %w", cfg.Address, err)
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sam3grpc: health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		conn.Close()
		return nil, fmt.Errorf("sam3grpc: service status %s", resp.GetStatus())
	}

	slog.Info("Connected to processor service", "address", cfg.Address)

	return &Backend{
		conn:       conn,
		checkpoint: opts.CheckpointPath,
		timeout:    cfg.RequestTimeout,
	}, nil
}

// Provider implements backend.Processor.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderGRPC
}

// SetImage implements backend.Processor.
func (b *Backend) SetImage(ctx context.Context, img image.Image) (*backend.State, error) {
	data, err := backend.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	ctx = metadata.AppendToOutgoingContext(ctx, CheckpointMetadataKey, b.checkpoint)

	var resp backend.SessionResponse
	if err := b.invoke(ctx, "SetImage", setImageRequest{ImagePNG: data}, &resp); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	if resp.Width == 0 || resp.Height == 0 {
		bounds := img.Bounds()
		resp.Width, resp.Height = bounds.Dx(), bounds.Dy()
	}
	return backend.NewState(resp.SessionID, resp.Width, resp.Height), nil
}

// SetTextPrompt implements backend.Processor.
func (b *Backend) SetTextPrompt(ctx context.Context, state *backend.State, prompt string) (segment.Prediction, error) {
	if err := backend.Check(state); err != nil {
		return segment.Prediction{}, err
	}

	req := textRequest{SessionID: state.ID, TextPromptRequest: backend.TextPromptRequest{Prompt: prompt}}
	pred, err := b.predict(ctx, "SetTextPrompt", req)
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

	req := geometricRequest{SessionID: state.ID, GeometricPromptRequest: backend.NewGeometricPromptRequest(box, label)}
	pred, err := b.predict(ctx, "AddGeometricPrompt", req)
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

	if err := b.invoke(ctx, "ResetAllPrompts", sessionRequest{SessionID: state.ID}, nil); err != nil {
		return fmt.Errorf("reset prompts: %w", err)
	}

	state.Reset()
	return nil
}

// Close closes the connection.
func (b *Backend) Close() error {
	return b.conn.Close()
}

func (b *Backend) predict(ctx context.Context, method string, req any) (segment.Prediction, error) {
	var payload backend.PredictionPayload
	if err := b.invoke(ctx, method, req, &payload); err != nil {
		return segment.Prediction{}, fmt.Errorf("%w: %s: %w", backend.ErrInference, method, err)
	}

	pred, err := payload.Prediction()
	if err != nil {
		return segment.Prediction{}, fmt.Errorf("%w: %s: %w", backend.ErrInference, method, err)
	}
	return pred, nil
}

func (b *Backend) invoke(ctx context.Context, method string, req, out any) error {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	in, err := ToStruct(req)
	if err != nil {
		return err
	}

	resp := new(structpb.Struct)
	if err := b.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	return FromStruct(resp, out)
}

// ToStruct converts a JSON-tagged value to a protobuf Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	s := new(structpb.Struct)
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return s, nil
}

// FromStruct decodes a protobuf Struct into a JSON-tagged value.
func FromStruct(s *structpb.Struct, out any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
