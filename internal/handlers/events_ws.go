package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tmkoushik/cfgvault-backend/internal/services"
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// eventsClientMessage is the small set of control frames clients may send.
type eventsClientMessage struct {
	Type string `json:"type"` // "ping"
}

// EventsHandler streams dashboard refresh events to connected clients.
type EventsHandler struct {
	gateway *services.IdentityGateway
	bus     *services.EventBus
}

func NewEventsHandler(gateway *services.IdentityGateway, bus *services.EventBus) *EventsHandler {
	return &EventsHandler{gateway: gateway, bus: bus}
}

// Stream upgrades the request to a WebSocket and forwards the user's
// dashboard events until the client disconnects. Authentication is the same
// session token as the REST endpoints; browser clients may pass it via the
// `token` query parameter.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}
	}

	ident, ok, err := h.gateway.Resolve(r.Context(), token)
	if err != nil || !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	h.bus.Register(ident.ID, conn)
	defer h.bus.Unregister(ident.ID, conn)

	// Reader loop: nothing but pings come from the client.
	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg eventsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		default:
			// Ignore unknown types
		}
	}
}
