package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dom/learnplay/internal/api/middleware"
	"github.com/dom/learnplay/internal/websocket"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	admitter websocket.Admitter
	upgrader ws.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler accepts upgrades from allowedOrigins, from the server's
// own origin, and from clients that send no Origin header.
func NewWebSocketHandler(hub *websocket.Hub, admitter websocket.Admitter, allowedOrigins []string, log *zap.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &WebSocketHandler{
		hub:      hub,
		admitter: admitter,
		log:      log,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// Handle upgrades a request the session guard has already admitted.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFrom(r.Context())
	if !ok {
		authRequired(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("[handlers.WebSocket] upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, auth, middleware.TokenFromRequest(r), h.admitter)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
