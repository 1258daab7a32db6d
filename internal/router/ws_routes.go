package router

import (
	"evo_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes the gateway entry. Browsers cannot set headers on the upgrade, so the
// token may also travel in the query string: ws://host:port/ws?token=<access token>
func (rt *Router) RegisterWebSocketRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", middleware.OptionalJWT(), rt.handlers.WS.Connect)
}
