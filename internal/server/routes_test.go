package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kingbootoshi/Stream-Buddy/core/broadcast"
	"github.com/kingbootoshi/Stream-Buddy/core/session"
)

const testKey = "overlay-test-key"

func newTestServer() (*Server, *session.State) {
	state := session.NewState()
	return New("127.0.0.1:0", testKey, state, broadcast.NewBus()), state
}

func doRequest(t *testing.T, s *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	if authed {
		request.Header.Set("X-Overlay-Key", testKey)
	}
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, request)
	return recorder
}

func TestHealthEndpointIsUnauthenticated(t *testing.T) {
	s, _ := newTestServer()

	response := doRequest(t, s, http.MethodGet, "/healthz", "", false)
	if response.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.Code)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(response.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Status != "healthy" {
		t.Fatalf("unexpected status field: %q", payload.Status)
	}
}

func TestControlEndpointsRequireOverlayKey(t *testing.T) {
	s, state := newTestServer()

	response := doRequest(t, s, http.MethodPost, "/api/listen/start", "", false)
	if response.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", response.Code)
	}
	if state.Listening() {
		t.Fatalf("unauthorized request must not change state")
	}

	response = doRequest(t, s, http.MethodPost, "/api/listen/start", "", true)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", response.Code)
	}
	if !state.Listening() {
		t.Fatalf("expected listening to be enabled")
	}
}

func TestListenToggleFlipsState(t *testing.T) {
	s, state := newTestServer()

	doRequest(t, s, http.MethodPost, "/api/listen/toggle", "", true)
	if !state.Listening() {
		t.Fatalf("expected first toggle to enable listening")
	}

	doRequest(t, s, http.MethodPost, "/api/listen/toggle", "", true)
	if state.Listening() {
		t.Fatalf("expected second toggle to disable listening")
	}
}

func TestMoodEndpointValidatesInput(t *testing.T) {
	s, state := newTestServer()

	response := doRequest(t, s, http.MethodPost, "/api/talk/mood", `{"mood":"happy"}`, true)
	if response.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.Code)
	}
	if state.Mood() != "happy" {
		t.Fatalf("unexpected mood: %q", state.Mood())
	}

	response = doRequest(t, s, http.MethodPost, "/api/talk/mood", `{"mood":"furious"}`, true)
	if response.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mood, got %d", response.Code)
	}
	if state.Mood() != "happy" {
		t.Fatalf("rejected mood must not change state, got %q", state.Mood())
	}
}

func TestHatEndpointAllowsRemoval(t *testing.T) {
	s, state := newTestServer()

	doRequest(t, s, http.MethodPost, "/api/hat", `{"hat":"hat2"}`, true)
	if state.Hat() != "hat2" {
		t.Fatalf("unexpected hat: %q", state.Hat())
	}

	doRequest(t, s, http.MethodPost, "/api/hat", `{"hat":""}`, true)
	if state.Hat() != "" {
		t.Fatalf("expected hat removed, got %q", state.Hat())
	}
}

func TestForceStateEndpointValidatesInput(t *testing.T) {
	s, state := newTestServer()

	response := doRequest(t, s, http.MethodPost, "/api/force-state", `{"state":"handsCrossed"}`, true)
	if response.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.Code)
	}
	if state.ForcedState() != "handsCrossed" {
		t.Fatalf("unexpected forced state: %q", state.ForcedState())
	}

	response = doRequest(t, s, http.MethodPost, "/api/force-state", `{"state":"moonwalk"}`, true)
	if response.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown forced state, got %d", response.Code)
	}
}
