// Package status implements the read-only HTTP introspection surface
// /state, /health, and /capabilities, bound on their
// own port distinct from the TCP command port and never touching
// ServerState directly — it only ever reads the snapshot the frame loop
// publishes once per iteration.
package status

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"goji.io"
	"goji.io/pat"

	"github.com/chyan26/raptorServ/internal/config"
	"github.com/chyan26/raptorServ/internal/state"
)

// DefaultAddr is the Status Introspection Server's default bind address
// ("default 9150").
const DefaultAddr = ":9150"

// Server serves the read-only introspection routes over the most
// recently published ServerState snapshot.
type Server struct {
	snapshot atomic.Value // state.ServerState
	caps config.Capabilities
	mux *goji.Mux
}

// New builds a Server for the given (fixed at startup) capabilities.
func New(caps config.Capabilities) *Server {
	s := &Server{caps: caps, mux: goji.NewMux()}
	s.snapshot.Store(state.ServerState{})
	s.mux.HandleFunc(pat.Get("/state"), s.handleState)
	s.mux.HandleFunc(pat.Get("/health"), s.handleHealth)
	s.mux.HandleFunc(pat.Get("/capabilities"), s.handleCapabilities)
	return s
}

// Publish stores the latest ServerState snapshot for the HTTP handlers
// to serve. Called once per frame loop iteration, never from a worker
// thread.
func (s *Server) Publish(snap state.ServerState) {
	s.snapshot.Store(snap)
}

// ListenAndServe binds addr and blocks serving the introspection routes.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) current() state.ServerState {
	return s.snapshot.Load().(state.ServerState)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.current())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.current().Health)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.caps)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
