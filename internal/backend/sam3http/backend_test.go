package sam3http

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/backend/sam3http/sam3httptest"
	"github.com/ekisa-team/sam3lab/internal/segment"
)

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 255, A: 255}}, image.Point{}, draw.Src)
	return img
}

func truckPrediction(t *testing.T) segment.Prediction {
	t.Helper()

	pred, err := segment.NewPrediction(
		[]segment.Mask{segment.NewMask(64, 32), segment.NewMask(64, 32)},
		[]segment.Box{{X0: 4, Y0: 4, X1: 40, Y1: 20}, {X0: 0, Y0: 0, X1: 8, Y1: 8}},
		[]float64{0.91, 0.3},
	)
	require.NoError(t, err)
	return pred
}

func TestBackend_PromptFlow(t *testing.T) {
	srv := sam3httptest.NewServer(map[string]segment.Prediction{"truck": truckPrediction(t)})
	defer srv.Close()

	b, err := New(context.Background(), Config{BaseURL: srv.URL + "/"}, nil, backend.Options{})
	require.NoError(t, err)
	assert.Equal(t, backend.ProviderHTTP, b.Provider())

	ctx := context.Background()
	state, err := b.SetImage(ctx, solidImage(64, 32))
	require.NoError(t, err)
	assert.Equal(t, 64, state.Width)
	assert.Equal(t, 32, state.Height)
	assert.Equal(t, 0, state.Prompts())

	pred, err := b.SetTextPrompt(ctx, state, "truck")
	require.NoError(t, err)
	assert.Equal(t, 2, pred.Len())
	assert.Equal(t, 0.91, pred.Scores[0])

	none, err := b.SetTextPrompt(ctx, state, "giraffe")
	require.NoError(t, err)
	assert.Len(t, none.Masks, 0)
	assert.Len(t, none.Boxes, 0)
	assert.Len(t, none.Scores, 0)
	assert.Equal(t, 1, state.Prompts())

	box := segment.NormalizedBox{CX: 0.5, CY: 0.5, W: 0.5, H: 0.5}
	got, err := b.AddGeometricPrompt(ctx, state, box, true)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 32*16, got.Masks[0].Area())
	assert.Equal(t, 2, state.Prompts())

	require.NoError(t, b.ResetAllPrompts(ctx, state))
	assert.Equal(t, 0, state.Prompts())

	require.NoError(t, b.Close())
	assert.Equal(t, 0, srv.Sessions())
	assert.Contains(t, srv.Requests(), "DELETE /v1/sessions/"+state.ID)
}

func TestBackend_Errors(t *testing.T) {
	srv := sam3httptest.NewServer(nil)
	defer srv.Close()

	b, err := New(context.Background(), Config{BaseURL: srv.URL}, nil, backend.Options{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.SetTextPrompt(ctx, nil, "truck")
	assert.ErrorIs(t, err, backend.ErrNoImage)

	_, err = b.SetTextPrompt(ctx, backend.NewState("missing", 1, 1), "truck")
	assert.ErrorIs(t, err, backend.ErrInference)
	assert.Contains(t, err.Error(), "404")

	state, err := b.SetImage(ctx, solidImage(8, 8))
	require.NoError(t, err)
	_, err = b.AddGeometricPrompt(ctx, state, segment.NormalizedBox{CX: 2, CY: 0.5, W: 0.1, H: 0.1}, true)
	assert.ErrorIs(t, err, segment.ErrInvalidBox)
	assert.Equal(t, 0, state.Prompts())
}

func TestBackend_MisalignedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"masks":[],"boxes":[[0,0,1,1]],"scores":[0.9]}`))
	}))
	defer srv.Close()

	b, err := New(context.Background(), Config{BaseURL: srv.URL}, nil, backend.Options{})
	require.NoError(t, err)

	_, err = b.SetTextPrompt(context.Background(), backend.NewState("s", 1, 1), "truck")
	assert.ErrorIs(t, err, segment.ErrMisaligned)
}

func TestBackend_BuildArgs(t *testing.T) {
	b := &Backend{port: 9000}

	args := b.buildArgs(Config{Args: []string{"--verbose"}}, backend.Options{
		CheckpointPath: "/ckpt/sam3.pt",
		Parameters: map[string]any{
			"device":     "cuda",
			"compile":    true,
			"confidence": 0.25,
		},
	})

	assert.Equal(t, []string{
		"--checkpoint", "/ckpt/sam3.pt",
		"--port", "9000",
		"--host", "127.0.0.1",
		"--device", "cuda",
		"--compile",
		"--confidence", "0.25",
		"--verbose",
	}, args)
}

func TestBackend_ServerConfigOutput(t *testing.T) {
	b := &Backend{port: 9000}

	sc := b.serverConfig(Config{BinPath: "sam3-server"}, backend.Options{CheckpointPath: "/ckpt/sam3.pt"})
	assert.Equal(t, ServerName, sc.Name)
	assert.Equal(t, "/health", sc.HealthPath)
	assert.Equal(t, 9000, sc.Port)
	assert.Same(t, os.Stderr, sc.Stdout)
	assert.Same(t, os.Stderr, sc.Stderr)

	var out bytes.Buffer
	sc = b.serverConfig(Config{Stdout: &out, Stderr: &out}, backend.Options{})
	assert.Same(t, &out, sc.Stdout)
	assert.Same(t, &out, sc.Stderr)
}

func TestNew_SpawnedServerOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	bin := filepath.Join(t.TempDir(), "sam3-server")
	script := "#!/bin/sh\necho checkpoint is corrupt >&2\nexec sleep 30\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	var out bytes.Buffer
	sm := backend.NewServerManager()
	_, err := New(context.Background(), Config{
		BinPath:      bin,
		Port:         1,
		ReadyTimeout: 500 * time.Millisecond,
		Stdout:       &out,
		Stderr:       &out,
	}, sm, backend.Options{CheckpointPath: "/ckpt/sam3.pt"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not become ready")
	assert.Contains(t, out.String(), "checkpoint is corrupt")
}

func TestNew_RequiresServerManager(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil, backend.Options{})
	assert.Error(t, err)
}
