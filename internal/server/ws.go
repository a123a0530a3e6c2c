package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kingbootoshi/Stream-Buddy/core/broadcast"
)

const (
	writeTimeout = 5 * time.Second
	pingPeriod   = 30 * time.Second
)

// The overlay runs as an OBS browser source, origin checks don't apply.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleOverlaySocket streams session events to an overlay client. Each
// connection first receives a hello envelope carrying the full session
// snapshot, then live events as they happen.
func (s *Server) handleOverlaySocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("failed to upgrade overlay connection", "error", err)
		return
	}
	defer conn.Close()

	hello := broadcast.NewEnvelope(broadcast.TypeHello, s.state.Snapshot())
	if err := s.writeEnvelope(conn, hello); err != nil {
		logger.Warn("failed to greet overlay client", "error", err)
		return
	}

	events, cancel := s.bus.Subscribe()
	defer cancel()

	logger.Info("overlay client connected", "remote", r.RemoteAddr)

	// The overlay never sends application messages. The read loop exists
	// to notice the peer going away.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(pingPeriod)
	defer pings.Stop()

	for {
		select {
		case envelope, ok := <-events:
			if !ok {
				return
			}
			if err := s.writeEnvelope(conn, envelope); err != nil {
				logger.Debug("overlay client write failed", "error", err)
				return
			}
		case <-pings.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-disconnected:
			logger.Info("overlay client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

func (s *Server) writeEnvelope(conn *websocket.Conn, envelope broadcast.Envelope) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(envelope)
}
