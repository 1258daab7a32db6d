// Package router registers the HTTP routes.
package router

import (
	"evo_chat_server/internal/handler"
	"evo_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router holds the injected handlers.
type Router struct {
	handlers *handler.Handlers
}

func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes mounts the public groups, then everything behind JWTAuth.
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	rt.RegisterAuthRoutes(r.Group("/auth"))
	rt.RegisterWebSocketRoutes(r.Group(""))

	authed := r.Group("")
	authed.Use(middleware.JWTAuth())
	{
		rt.RegisterSessionRoutes(authed)
		rt.RegisterUserRoutes(authed)
		rt.RegisterConversationRoutes(authed)
		rt.RegisterMessageRoutes(authed)
		rt.RegisterFriendRoutes(authed)
	}
}
