package sam3grpc

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/segment"
)

type fakeProcessor struct {
	mu          sync.Mutex
	checkpoints []string
	prompts     []string
	boxes       int
	resets      int
	answer      segment.Prediction
}

func (f *fakeProcessor) handle(method string) grpc.MethodHandler {
	return func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		var out any
		switch method {
		case "SetImage":
			md, _ := metadata.FromIncomingContext(ctx)
			f.checkpoints = append(f.checkpoints, md.Get(CheckpointMetadataKey)...)
			var req setImageRequest
			if err := FromStruct(in, &req); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			if len(req.ImagePNG) == 0 {
				return nil, status.Error(codes.InvalidArgument, "empty image")
			}
			out = backend.SessionResponse{SessionID: "grpc-1", Width: 8, Height: 4}
		case "SetTextPrompt":
			var req textRequest
			if err := FromStruct(in, &req); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			if req.SessionID != "grpc-1" {
				return nil, status.Error(codes.NotFound, "unknown session")
			}
			f.prompts = append(f.prompts, req.Prompt)
			out = backend.NewPredictionPayload(f.answer)
		case "AddGeometricPrompt":
			var req geometricRequest
			if err := FromStruct(in, &req); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			f.boxes++
			out = backend.NewPredictionPayload(f.answer)
		case "ResetAllPrompts":
			f.resets++
			out = struct{}{}
		}

		return ToStruct(out)
	}
}

func startServer(t *testing.T, fake *fakeProcessor, serving healthpb.HealthCheckResponse_ServingStatus) Config {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()

	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
	}
	for _, m := range []string{"SetImage", "SetTextPrompt", "AddGeometricPrompt", "ResetAllPrompts"} {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: m, Handler: fake.handle(m)})
	}
	srv.RegisterService(&desc, fake)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, serving)
	healthpb.RegisterHealthServer(srv, hs)

	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	return Config{
		Address: "passthrough:///bufnet",
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	}
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 255, A: 255}}, image.Point{}, draw.Src)
	return img
}

func TestBackend_PromptFlow(t *testing.T) {
	mask := segment.NewMask(8, 4)
	mask.Pixels[0] = true
	answer, err := segment.NewPrediction(
		[]segment.Mask{mask},
		[]segment.Box{{X0: 0, Y0: 0, X1: 1, Y1: 1}},
		[]float64{0.75},
	)
	require.NoError(t, err)

	fake := &fakeProcessor{answer: answer}
	cfg := startServer(t, fake, healthpb.HealthCheckResponse_SERVING)

	ctx := context.Background()
	b, err := New(ctx, cfg, backend.Options{CheckpointPath: "/models/sam3.pt"})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, backend.ProviderGRPC, b.Provider())

	state, err := b.SetImage(ctx, testImage())
	require.NoError(t, err)
	assert.Equal(t, "grpc-1", state.ID)
	assert.Equal(t, 8, state.Width)

	pred, err := b.SetTextPrompt(ctx, state, "truck")
	require.NoError(t, err)
	require.Equal(t, 1, pred.Len())
	assert.True(t, pred.Masks[0].At(0, 0))
	assert.Equal(t, 1, pred.Masks[0].Area())
	assert.InDelta(t, 0.75, pred.Scores[0], 1e-9)
	assert.Equal(t, "truck", state.Text())

	_, err = b.AddGeometricPrompt(ctx, state, segment.NormalizedBox{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Prompts())

	require.NoError(t, b.ResetAllPrompts(ctx, state))
	assert.Equal(t, 0, state.Prompts())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"/models/sam3.pt"}, fake.checkpoints)
	assert.Equal(t, []string{"truck"}, fake.prompts)
	assert.Equal(t, 1, fake.boxes)
	assert.Equal(t, 1, fake.resets)
}

func TestBackend_Errors(t *testing.T) {
	fake := &fakeProcessor{answer: segment.Prediction{}}
	cfg := startServer(t, fake, healthpb.HealthCheckResponse_SERVING)

	ctx := context.Background()
	b, err := New(ctx, cfg, backend.Options{})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.SetTextPrompt(ctx, nil, "truck")
	assert.ErrorIs(t, err, backend.ErrNoImage)

	_, err = b.SetTextPrompt(ctx, backend.NewState("other", 8, 4), "truck")
	assert.ErrorIs(t, err, backend.ErrInference)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = b.AddGeometricPrompt(ctx, backend.NewState("grpc-1", 8, 4), segment.NormalizedBox{CX: 2}, true)
	assert.ErrorIs(t, err, segment.ErrInvalidBox)
}

func TestNew_NotServing(t *testing.T) {
	cfg := startServer(t, &fakeProcessor{}, healthpb.HealthCheckResponse_NOT_SERVING)

	_, err := New(context.Background(), cfg, backend.Options{})
	assert.Error(t, err)
}

func TestStructRoundTrip(t *testing.T) {
	in := backend.PredictionPayload{
		Masks:  []backend.MaskPayload{{Size: [2]int{512, 512}, Counts: []int{0, 262144}}},
		Boxes:  [][4]float64{{1.5, 2, 3, 4}},
		Scores: []float64{0.9},
	}

	s, err := ToStruct(in)
	require.NoError(t, err)

	var out backend.PredictionPayload
	require.NoError(t, FromStruct(s, &out))
	assert.Equal(t, in, out)
}
