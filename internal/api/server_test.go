package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"teamchat/internal/broadcast"
	"teamchat/internal/hub"
	"teamchat/internal/membership"
	"teamchat/internal/websocket"
	"teamchat/pkg/types"
)

type healthStore struct {
	healthErr error
}

func (s *healthStore) GetChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	return nil, nil
}

func (s *healthStore) GetUserChannels(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (s *healthStore) SetUserStatus(ctx context.Context, userID, status string) error {
	return nil
}

func (s *healthStore) InsertMessage(ctx context.Context, message *types.Message) error {
	return nil
}

func (s *healthStore) GetChannelMessages(ctx context.Context, channelID string, limit int) ([]*types.Message, error) {
	return nil, nil
}

func (s *healthStore) GetThreadReplies(ctx context.Context, parentID string) ([]*types.Message, error) {
	return nil, nil
}

func (s *healthStore) HealthCheck(ctx context.Context) error { return s.healthErr }

func (s *healthStore) Close() error { return nil }

func newTestServer(store *healthStore) *Server {
	registry := websocket.NewRegistry()
	resolver := membership.NewResolver(store)
	broadcaster := broadcast.NewEngine(registry, resolver)
	h := hub.NewHub(registry, resolver, store, broadcaster, 30*time.Second, time.Second)
	return NewServer(store, h)
}

func TestServer_HealthOK(t *testing.T) {
	server := newTestServer(&healthStore{})

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestServer_HealthUnavailable(t *testing.T) {
	server := newTestServer(&healthStore{healthErr: errors.New("database gone")})

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", recorder.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("Expected status unhealthy, got %q", body["status"])
	}
}

func TestServer_Stats(t *testing.T) {
	server := newTestServer(&healthStore{})

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}

	var stats map[string]int
	if err := json.NewDecoder(recorder.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats["connections"] != 0 || stats["running"] != 0 {
		t.Errorf("Unexpected idle stats: %v", stats)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	server := newTestServer(&healthStore{})

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/health", nil))

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", recorder.Code)
	}
}

func TestServer_NotFound(t *testing.T) {
	server := newTestServer(&healthStore{})

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", recorder.Code)
	}
}
