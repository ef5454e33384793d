package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ConnectionHandler runs the full per-socket lifecycle (§4.G); *wsapi.Connection
// satisfies it.
type ConnectionHandler interface {
	Handle(ctx context.Context, socket *websocket.Conn, meetingID string)
}

// WSHandler upgrades /ws/meetings/{meeting_id} to a WebSocket and hands the
// connection off to the lifecycle.
type WSHandler struct {
	conn     ConnectionHandler
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(conn ConnectionHandler, corsOrigins []string, log zerolog.Logger) *WSHandler {
	allowed := make(map[string]bool, len(corsOrigins))
	for _, o := range corsOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		conn: conn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meeting_id")

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("websocket upgrade failed")
		return
	}

	h.conn.Handle(r.Context(), socket, meetingID)
}
