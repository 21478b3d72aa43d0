package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kasefra/landing/internal/contact"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second
)

// handleWebSocket streams the visitor's PhaseChange events until the peer
// goes away, the server shuts down, or the subscriber falls behind.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	// Streams attach to an existing session; the page opens one again after
	// its first change starts a session.
	form, ok := s.sessions.Lookup(r)
	if !ok {
		http.Error(w, "No active session", http.StatusPreconditionRequired)
		return
	}

	// Subscribe before the handshake completes so no change is missed
	// between the client seeing 101 and the stream starting.
	changes, unsubscribe := form.Subscribe()
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "ip", getClientIP(r))
		return
	}

	s.streams.Add(1)
	defer s.streams.Done()

	// The client never sends; CloseRead handles control frames and cancels
	// ctx once the peer closes.
	ctx := conn.CloseRead(r.Context())
	s.streamChanges(ctx, conn, changes)
}

func (s *Server) streamChanges(ctx context.Context, conn *websocket.Conn, changes <-chan contact.PhaseChange) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "subscriber fell behind")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, conn, change)
			cancel()
			if err != nil {
				if websocket.CloseStatus(err) == -1 {
					s.logger.Debug(ctx, "WebSocket write failed", "error", err.Error())
				}
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-s.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return

		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

// checkOrigin requires an http(s) Origin matching the request host or one
// of the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	if r.Header.Get("Origin") == "" {
		return false
	}
	return isValidOrigin(r, s.cfg.Server.AllowedOrigins)
}

// originPatterns are the configured origins in the host form websocket.Accept
// expects.
func (s *Server) originPatterns() []string {
	var patterns []string
	for _, o := range s.cfg.Server.AllowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
