package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Authenticator resolves the token of a connecting client to a user id.
type Authenticator func(token string) (userID string, err error)

// Handler upgrades authenticated requests and subscribes them to the
// caller's channel.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler accepts connections from allowedOrigin only, unless it is empty.
func NewHandler(hub *Hub, auth Authenticator, allowedOrigin string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		auth:   auth,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Connect handles GET /ws?token=<access token>.
func (h *Handler) Connect(c *gin.Context) {
	userID, err := h.auth(c.Query("token"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": http.StatusUnauthorized, "error": "invalid token"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(userID)
	h.hub.Register(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)
}

// readPump only watches for close and pong frames; clients do not send data.
func (h *Handler) readPump(client *Client, ws *websocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(client *Client, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
