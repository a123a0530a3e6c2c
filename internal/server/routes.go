package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"
)

var (
	validMoods        = []string{"neutral", "happy", "angry"}
	validHats         = []string{"hat1", "hat2", "hat3", ""}
	validForcedStates = []string{"idle", "walk", "handsCrossed", ""}
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"session":   s.state.Snapshot(),
	})
}

func (s *Server) handleListenStart(w http.ResponseWriter, r *http.Request) {
	s.state.SetListening(true)
	s.writeSession(w, r)
}

func (s *Server) handleListenStop(w http.ResponseWriter, r *http.Request) {
	s.state.SetListening(false)
	s.writeSession(w, r)
}

func (s *Server) handleListenToggle(w http.ResponseWriter, r *http.Request) {
	s.state.SetListening(!s.state.Listening())
	s.writeSession(w, r)
}

func (s *Server) handleMood(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Mood string `json:"mood"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !slices.Contains(validMoods, request.Mood) {
		s.writeError(w, r, http.StatusBadRequest, "unknown mood: "+request.Mood)
		return
	}

	s.state.SetMood(request.Mood)
	s.writeSession(w, r)
}

func (s *Server) handleHat(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Hat string `json:"hat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !slices.Contains(validHats, request.Hat) {
		s.writeError(w, r, http.StatusBadRequest, "unknown hat: "+request.Hat)
		return
	}

	s.state.SetHat(request.Hat)
	s.writeSession(w, r)
}

func (s *Server) handleForceState(w http.ResponseWriter, r *http.Request) {
	var request struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !slices.Contains(validForcedStates, request.State) {
		s.writeError(w, r, http.StatusBadRequest, "unknown forced state: "+request.State)
		return
	}

	s.state.SetForcedState(request.State)
	s.writeSession(w, r)
}

// writeSession answers a successful control request with the resulting
// session snapshot so the caller's UI can update without a second round
// trip.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{"session": s.state.Snapshot()})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, map[string]any{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	s.recordRequest(r, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}
