package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/spinhall/tournament-engine/brackets"
	"github.com/spinhall/tournament-engine/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict Origin to the configured frontend hosts before exposing
	// this publicly.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub       *brackets.Hub
	jwtSecret string
	logger    *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, jwtSecret string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, jwtSecret: jwtSecret, logger: logger}
}

// ServeWs upgrades GET /ws. An optional tournament_id query parameter
// subscribes the client to that tournament's room; an optional token
// parameter subscribes it to its personal room for prize and result
// notifications. Anonymous clients still receive global events.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	var rooms []string

	if idStr := r.URL.Query().Get("tournament_id"); idStr != "" {
		id, err := strconv.Atoi(idStr)
		if err != nil || id < 1 {
			http.Error(w, "invalid tournament_id", http.StatusBadRequest)
			return
		}
		rooms = append(rooms, brackets.TournamentRoom(id))
	}
	if token := r.URL.Query().Get("token"); token != "" {
		userID, err := middleware.ParseUserID(h.jwtSecret, token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		rooms = append(rooms, brackets.UserRoom(userID))
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := brackets.NewClient(h.hub, conn, rooms...)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
