// Package api exposes the non-realtime HTTP surface: health and transport
// statistics. CRUD for users, channels and messages lives outside this
// subsystem.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"teamchat/internal/hub"
	"teamchat/pkg/interfaces"
)

// Server serves health and stats endpoints.
type Server struct {
	store interfaces.Store
	hub   *hub.Hub
}

// NewServer creates the API server.
func NewServer(store interfaces.Store, h *hub.Hub) *Server {
	return &Server{store: store, hub: h}
}

// ServeHTTP routes API requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/health":
		s.handleHealth(w, r)
	case "/api/stats":
		s.handleStats(w)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		log.Printf("api: health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.hub.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}
