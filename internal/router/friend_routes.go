package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterFriendRoutes friend requests and friendships
func (rt *Router) RegisterFriendRoutes(rg *gin.RouterGroup) {
	requestGroup := rg.Group("/friend_requests")
	{
		requestGroup.POST("", rt.handlers.Relationship.SendRequest)
		requestGroup.GET("", rt.handlers.Relationship.ListRequests)
		requestGroup.POST("/:id/respond", rt.handlers.Relationship.Respond)
	}

	friendGroup := rg.Group("/friends")
	{
		friendGroup.GET("", rt.handlers.Relationship.Friends)
		friendGroup.DELETE("/:id", rt.handlers.Relationship.RemoveFriend)
	}
}
