// Package server exposes HTTP handlers, including the WebSocket upgrade that
// binds an authenticated identity to a new connection.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/account"
	"github.com/Tyrowin/relaychat/internal/room"
)

// ChatHandler upgrades WebSocket requests, authenticates them against the
// session store, and binds each accepted connection to a room session.
type ChatHandler struct {
	hub      *Hub
	room     *room.Room
	auth     account.Authenticator
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewChatHandler creates the WebSocket entry point.
func NewChatHandler(hub *Hub, rm *room.Room, auth account.Authenticator, log *zap.Logger) *ChatHandler {
	h := &ChatHandler{
		hub:  hub,
		room: rm,
		auth: auth,
		log:  log.With(zap.String("component", "ws_handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if isOriginAllowed(r) {
				return true
			}
			h.log.Warn("blocked connection from disallowed origin",
				zap.String("origin", r.Header.Get("Origin")))
			return false
		},
	}
	return h
}

// sessionToken extracts the transport session token from the request: the
// "token" query parameter, falling back to the "session" cookie.
func sessionToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}

// HandleWS handles WebSocket upgrade requests. Connections without a
// resolvable authenticated identity are refused before the upgrade, with no
// state mutated. Accepted connections are registered with the hub and bound
// to the room.
func (h *ChatHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	username, err := h.auth.Authenticate(r.Context(), sessionToken(r))
	if err != nil {
		h.log.Warn("unauthenticated connection refused",
			zap.String("addr", r.RemoteAddr), zap.Error(err))
		http.Error(w, "Authentication required.", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, h.log)
	session := h.room.NewSession(client.ID(), username, client.Deliver)
	client.bindSession(session)

	// Membership is inserted synchronously so the bind's private replay and
	// the connection's own join announcement cannot race the map insert. The
	// pumps start only after bind, so no inbound event is processed before
	// the session is bound; outbound frames queue on the send channel.
	h.hub.attach(client)

	if err := session.Bind(r.Context()); err != nil {
		h.log.Warn("session bind refused",
			zap.String("conn_id", client.ID()), zap.Error(err))
		if closeErr := conn.Close(); closeErr != nil && !isExpectedCloseError(closeErr) {
			h.log.Warn("error closing refused connection", zap.Error(closeErr))
		}
	}

	h.hub.startPumps(client)
}

// HealthHandler provides a simple health check endpoint.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat relay is running!")
}
