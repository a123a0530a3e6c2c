// Package server exposes the HTTP control plane: avatar and listening
// controls for the streamer's deck, health and metrics endpoints, and the
// overlay websocket feed.
package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kingbootoshi/Stream-Buddy/core/broadcast"
	"github.com/kingbootoshi/Stream-Buddy/core/session"
	"github.com/kingbootoshi/Stream-Buddy/internal/metrics"
)

type Server struct {
	httpServer *http.Server
	state      *session.State
	bus        *broadcast.Bus
	metrics    *metrics.Metrics
	overlayKey string
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the control-plane server. An empty overlayKey disables auth,
// meant for local development only.
func New(addr, overlayKey string, state *session.State, bus *broadcast.Bus, opts ...Option) *Server {
	s := &Server{
		state:      state,
		bus:        bus,
		overlayKey: overlayKey,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(mux, "control-plane"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /ws", s.authorized(s.handleOverlaySocket))

	mux.HandleFunc("POST /api/listen/start", s.authorized(s.handleListenStart))
	mux.HandleFunc("POST /api/listen/stop", s.authorized(s.handleListenStop))
	mux.HandleFunc("POST /api/listen/toggle", s.authorized(s.handleListenToggle))
	mux.HandleFunc("POST /api/talk/mood", s.authorized(s.handleMood))
	mux.HandleFunc("POST /api/hat", s.authorized(s.handleHat))
	mux.HandleFunc("POST /api/force-state", s.authorized(s.handleForceState))
}

// authorized checks the overlay key before letting a request through. The
// key arrives as a header, or as a query parameter for websocket clients
// that cannot set headers.
func (s *Server) authorized(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.overlayKey != "" {
			presented := r.Header.Get("X-Overlay-Key")
			if presented == "" {
				presented = r.URL.Query().Get("key")
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(s.overlayKey)) != 1 {
				s.recordRequest(r, http.StatusUnauthorized)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		handler(w, r)
	}
}

func (s *Server) recordRequest(r *http.Request, status int) {
	if s.metrics == nil {
		return
	}
	s.metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, http.StatusText(status)).Inc()
}

// Start begins serving in the background.
func (s *Server) Start() {
	logger.Info("starting control-plane server", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("control-plane server failed", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping control-plane server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
