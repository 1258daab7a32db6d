package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes public account endpoints
func (rt *Router) RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", rt.handlers.Auth.Register)
	rg.POST("/login", rt.handlers.Auth.Login)
	rg.POST("/refresh", rt.handlers.Auth.Refresh)
}

// RegisterSessionRoutes endpoints that need the caller's access token
func (rt *Router) RegisterSessionRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/logout", rt.handlers.Auth.Logout)
}
