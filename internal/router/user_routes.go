package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes profiles, presence and blocks
func (rt *Router) RegisterUserRoutes(rg *gin.RouterGroup) {
	userGroup := rg.Group("/users")
	{
		userGroup.GET("/me", rt.handlers.User.Me)
		userGroup.PUT("/me", rt.handlers.User.UpdateMe)
		userGroup.POST("/me/avatar", rt.handlers.User.UploadAvatar)
		userGroup.GET("/online", rt.handlers.User.Online)

		userGroup.GET("/blocked", rt.handlers.Relationship.Blocked)
		userGroup.POST("/block", rt.handlers.Relationship.Block)
		userGroup.POST("/unblock", rt.handlers.Relationship.Unblock)

		// registered last, static segments above take precedence
		userGroup.GET("/:id", rt.handlers.User.GetUser)
	}
}
