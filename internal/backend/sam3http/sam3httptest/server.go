// Package sam3httptest provides an in-process processor server speaking the
// sam3http protocol, for tests.
package sam3httptest

import (
	"encoding/json"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/segment"
)

// Server answers text prompts from a fixed table and box prompts with a single
// detection covering the box.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	answers  map[string]segment.Prediction
	sessions map[string][2]int
	boxes    map[string][]backend.GeometricPromptRequest
	nextID   int
	requests []string
}

// NewServer starts a server. answers maps text prompts to predictions; unknown
// prompts yield zero detections.
func NewServer(answers map[string]segment.Prediction) *Server {
	s := &Server{
		answers:  answers,
		sessions: map[string][2]int{},
		boxes:    map[string][]backend.GeometricPromptRequest{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v1/sessions", s.handleSetImage)
	mux.HandleFunc("POST /v1/sessions/{id}/text", s.handleText)
	mux.HandleFunc("POST /v1/sessions/{id}/geometric", s.handleGeometric)
	mux.HandleFunc("POST /v1/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDelete)

	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// Requests returns "METHOD path" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.requests...)
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSetImage(w http.ResponseWriter, r *http.Request) {
	img, err := png.Decode(r.Body)
	if err != nil {
		http.Error(w, "bad image: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("session-%d", s.nextID)
	b := img.Bounds()
	s.sessions[id] = [2]int{b.Dx(), b.Dy()}
	s.mu.Unlock()

	writeJSON(w, backend.SessionResponse{SessionID: id, Width: b.Dx(), Height: b.Dy()})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r); !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	var req backend.TextPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pred, ok := s.answers[req.Prompt]
	if !ok {
		pred, _ = segment.NewPrediction(nil, nil, nil)
	}
	writeJSON(w, backend.NewPredictionPayload(pred))
}

func (s *Server) handleGeometric(w http.ResponseWriter, r *http.Request) {
	size, ok := s.session(r)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	var req backend.GeometricPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.boxes[r.PathValue("id")] = append(s.boxes[r.PathValue("id")], req)
	s.mu.Unlock()

	n := segment.NormalizedBox{CX: req.Box[0], CY: req.Box[1], W: req.Box[2], H: req.Box[3]}
	box := n.Denormalize(size[0], size[1])

	mask := segment.NewMask(size[0], size[1])
	for y := int(math.Max(0, box.Y0)); y < int(math.Min(float64(size[1]), box.Y1)); y++ {
		for x := int(math.Max(0, box.X0)); x < int(math.Min(float64(size[0]), box.X1)); x++ {
			mask.Pixels[y*size[0]+x] = true
		}
	}

	pred, _ := segment.NewPrediction([]segment.Mask{mask}, []segment.Box{box}, []float64{0.9})
	writeJSON(w, backend.NewPredictionPayload(pred))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r); !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	s.mu.Lock()
	delete(s.boxes, r.PathValue("id"))
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.sessions, r.PathValue("id"))
	delete(s.boxes, r.PathValue("id"))
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(r *http.Request) ([2]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size, ok := s.sessions[r.PathValue("id")]
	return size, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
