package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes send, edit, delete and react
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	messageGroup := rg.Group("/messages")
	{
		messageGroup.POST("", rt.handlers.Message.Send)
		messageGroup.PUT("/:id", rt.handlers.Message.Edit)
		messageGroup.DELETE("/:id", rt.handlers.Message.Delete)
		messageGroup.POST("/:id/react", rt.handlers.Message.React)
	}
}
