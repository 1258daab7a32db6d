package handler

import (
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WSHandler upgrades clients onto the session gateway.
type WSHandler struct {
	gw *ws.Gateway
}

func NewWSHandler(gw *ws.Gateway) *WSHandler {
	return &WSHandler{gw: gw}
}

// Connect GET /ws
// Identity comes from OptionalJWT or the "token" query parameter. Without a valid access token
// the connection is anonymous: it receives broadcasts but carries no presence.
func (h *WSHandler) Connect(c *gin.Context) {
	userID := middleware.UserID(c)
	if token := c.Query("token"); userID == 0 && token != "" {
		if id, err := middleware.AccessUserID(token); err == nil {
			userID = id
		} else {
			zap.L().Debug("ws token rejected, connecting anonymously", zap.Error(err))
		}
	}
	if err := h.gw.Serve(c.Writer, c.Request, userID); err != nil {
		// the upgrader has already answered the client
		zap.L().Warn("ws upgrade failed", zap.Error(err))
	}
}
