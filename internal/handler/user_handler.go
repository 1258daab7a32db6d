package handler

import (
	"strconv"

	"evo_chat_server/internal/dto/request"
	"evo_chat_server/internal/dto/respond"
	"evo_chat_server/internal/infrastructure/middleware"
	"evo_chat_server/internal/service"
	"evo_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// UserHandler profiles and presence.
type UserHandler struct {
	userSvc service.UserService
}

func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Me GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	data, err := h.userSvc.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UpdateMe PUT /users/me
// body: request.UpdateProfileRequest; a rename may change the tag.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req request.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.UpdateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UploadAvatar POST /users/me/avatar, multipart field "avatar"
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "avatar file is required"))
		return
	}
	data, err := h.userSvc.UploadAvatar(c.Request.Context(), middleware.UserID(c), file)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetUser GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	data, err := h.userSvc.GetUser(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Online GET /users/online
func (h *UserHandler) Online(c *gin.Context) {
	ids, err := h.userSvc.ListOnline(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	out := respond.OnlineUsersRespond{UserIDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		out.UserIDs = append(out.UserIDs, strconv.FormatInt(id, 10))
	}
	HandleSuccess(c, out)
}
