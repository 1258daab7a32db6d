package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterConversationRoutes conversation lifecycle, membership and history
func (rt *Router) RegisterConversationRoutes(rg *gin.RouterGroup) {
	convGroup := rg.Group("/conversations")
	{
		convGroup.GET("", rt.handlers.Conversation.List)
		convGroup.POST("", rt.handlers.Conversation.Create)
		convGroup.PUT("/:id", rt.handlers.Conversation.Update)
		convGroup.DELETE("/:id", rt.handlers.Conversation.Clear)
		convGroup.DELETE("/:id/destroy", rt.handlers.Conversation.Destroy)
		convGroup.POST("/:id/members", rt.handlers.Conversation.AddMembers)
		convGroup.DELETE("/:id/members/:userId", rt.handlers.Conversation.RemoveMember)
		convGroup.POST("/:id/leave", rt.handlers.Conversation.Leave)
		convGroup.GET("/:id/messages", rt.handlers.Conversation.Messages)
		convGroup.POST("/:id/read", rt.handlers.Conversation.MarkRead)
		convGroup.POST("/:id/calls", rt.handlers.Conversation.LogCall)
	}
}
