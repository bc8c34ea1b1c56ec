package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/isdelr/impact-be/internal/auth"
	"github.com/isdelr/impact-be/internal/models"
	"github.com/isdelr/impact-be/internal/monitoring"
	"github.com/isdelr/impact-be/internal/services"
	ws "github.com/isdelr/impact-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles upgrading HTTP connections to WebSocket connections.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Origins are checked
// against allowedOrigins; "*" allows any.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// topicsFor lists the topics a caller may follow. Anonymous clients only
// get global and leaderboard updates.
func topicsFor(claims *auth.Claims) []string {
	topics := []string{monitoring.LeaderboardTopic}
	if claims == nil {
		return topics
	}
	topics = append(topics, services.UserTopic(claims.UserID))
	if claims.Role == models.RoleAdmin {
		topics = append(topics, monitoring.AdminTopic)
	}
	return topics
}

func canSubscribe(claims *auth.Claims, topic string) bool {
	for _, t := range topicsFor(claims) {
		if t == topic {
			return true
		}
	}
	return false
}

// Serve handles the WebSocket connection request. Authentication is
// optional; the token may be passed as ?token= since browsers cannot set
// headers on the upgrade request.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	var claims *auth.Claims
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		claims = c
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	userID := ""
	if claims != nil {
		userID = claims.UserID
	}
	client := ws.NewClient(h.hub, conn, userID, topicsFor(claims)...)

	select {
	case h.hub.Register <- client:
	case <-h.hub.Done():
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(func(c *ws.Client, message []byte) {
		h.handleIncomingWSMessage(claims, c, message)
	})
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(claims *auth.Claims, client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		h.hub.SendTo(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "ping":
		h.hub.SendTo(client, ws.Message{Action: "pong"}.Encode())

	case "subscribe":
		if !canSubscribe(claims, msg.Topic) {
			h.hub.SendTo(client, ws.NewErrorMessage("Cannot subscribe to "+msg.Topic))
			return
		}
		h.hub.Subscribe(client, msg.Topic)
		h.hub.SendTo(client, ws.Message{Action: "subscribed", Topic: msg.Topic}.Encode())

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.hub.SendTo(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}
