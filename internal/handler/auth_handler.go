package handler

import (
	"evo_chat_server/internal/dto/request"
	"evo_chat_server/internal/infrastructure/middleware"
	"evo_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler registration, login and token rotation.
type AuthHandler struct {
	userSvc service.UserService
}

func NewAuthHandler(userSvc service.UserService) *AuthHandler {
	return &AuthHandler{userSvc: userSvc}
}

// Register POST /auth/register
// body: request.RegisterRequest
// data: respond.AuthRespond
func (h *AuthHandler) Register(c *gin.Context) {
	var req request.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.Register(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.Login(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Refresh POST /auth/refresh
// The presented refresh token is revoked and a new pair returned.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req request.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Logout POST /auth/logout, body optional
func (h *AuthHandler) Logout(c *gin.Context) {
	var req request.RefreshRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.userSvc.Logout(c.Request.Context(), middleware.UserID(c), req.RefreshToken); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
