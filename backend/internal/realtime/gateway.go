package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bubbles-backend/backend/internal/lifecycle"
	"bubbles-backend/backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	outboundBuffer = 32
)

// inbound is a frame from the client's speech-to-text pipeline
type inbound struct {
	Type    string `json:"type"`
	Speaker int    `json:"speaker"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// Gateway bridges websocket clients to the session lifecycle: it raises
// connect/transcript/disconnect events and pushes transcript echoes and
// wingman advice back to the client.
type Gateway struct {
	lifecycle *lifecycle.Manager
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewGateway creates the realtime gateway
func NewGateway(manager *lifecycle.Manager) *Gateway {
	return &Gateway{
		lifecycle: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth happens upstream; the gateway accepts any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Get(),
	}
}

// Handle upgrades an HTTP request to a live wingman session
func (g *Gateway) Handle(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Warn("Websocket upgrade failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}

	out := make(chan lifecycle.Outbound, outboundBuffer)
	notify := func(payload lifecycle.Outbound) {
		select {
		case out <- payload:
		default:
			g.logger.Warn("Outbound buffer full, dropping payload",
				zap.String("user_id", userID),
				zap.String("type", payload.Type),
			)
		}
	}

	if err := g.lifecycle.Connect(userID, notify); err != nil {
		g.logger.Warn("Rejecting realtime session",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go g.writePump(userID, conn, out)
	g.readPump(userID, conn)

	g.lifecycle.DisconnectWait(userID)
	close(out)
}

// readPump feeds transcript frames into the lifecycle until the client
// goes away
func (g *Gateway) readPump(userID string, conn *websocket.Conn) {
	defer conn.Close()

	for {
		var frame inbound
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Warn("Websocket read failed",
					zap.String("user_id", userID),
					zap.Error(err),
				)
			}
			return
		}
		if frame.Type != "transcript" {
			continue
		}
		g.lifecycle.Transcript(userID, frame.Speaker, frame.Text, frame.IsFinal)
	}
}

// writePump serializes all writes to the connection
func (g *Gateway) writePump(userID string, conn *websocket.Conn, out <-chan lifecycle.Outbound) {
	for payload := range out {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(payload); err != nil {
			g.logger.Debug("Websocket write failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			return
		}
	}
}
