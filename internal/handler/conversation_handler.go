package handler

import (
	"evo_chat_server/internal/dto/request"
	"evo_chat_server/internal/dto/respond"
	"evo_chat_server/internal/infrastructure/middleware"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/service"
	"evo_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// ConversationHandler conversation list, lifecycle, membership and history.
type ConversationHandler struct {
	convSvc service.ConversationService
	msgSvc  service.MessageService
}

func NewConversationHandler(convSvc service.ConversationService, msgSvc service.MessageService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc, msgSvc: msgSvc}
}

// List GET /conversations
// data: []respond.ConversationItem, most recent activity first
func (h *ConversationHandler) List(c *gin.Context) {
	data, err := h.convSvc.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Create POST /conversations
// body: request.CreateConversationRequest
// data: respond.ConversationCreated
func (h *ConversationHandler) Create(c *gin.Context) {
	var req request.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	ids, err := parseIDs(req.ParticipantIDs, "participantIds")
	if err != nil {
		HandleError(c, err)
		return
	}
	conv, err := h.convSvc.Create(c.Request.Context(), middleware.UserID(c), req.Name, ids)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.ConversationCreated{ConversationID: conv.ID})
}

// Clear DELETE /conversations/:id
// Hides the conversation for the caller only, until the next message.
func (h *ConversationHandler) Clear(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.convSvc.Clear(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Destroy DELETE /conversations/:id/destroy, group admins only
func (h *ConversationHandler) Destroy(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.convSvc.Destroy(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Update PUT /conversations/:id
func (h *ConversationHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req request.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.convSvc.UpdateGroup(c.Request.Context(), id, middleware.UserID(c), req.Name, req.AvatarURL); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// AddMembers POST /conversations/:id/members
func (h *ConversationHandler) AddMembers(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req request.AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	ids, err := parseIDs(req.UserIDs, "userIds")
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.convSvc.AddMembers(c.Request.Context(), id, middleware.UserID(c), ids); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// RemoveMember DELETE /conversations/:id/members/:userId
func (h *ConversationHandler) RemoveMember(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	target, err := pathID(c, "userId")
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.convSvc.RemoveMember(c.Request.Context(), id, middleware.UserID(c), target); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Leave POST /conversations/:id/leave
func (h *ConversationHandler) Leave(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.convSvc.Leave(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Messages GET /conversations/:id/messages?before=<messageId>&limit=<n>
// data: []respond.MessageInfo in ascending order
func (h *ConversationHandler) Messages(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	var q request.ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		HandleParamError(c, err)
		return
	}
	before, err := optionalID(q.Before, "before")
	if err != nil {
		HandleError(c, err)
		return
	}
	data, err := h.msgSvc.List(c.Request.Context(), id, middleware.UserID(c), before, q.Limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkRead POST /conversations/:id/read
// data: respond.ReadRespond with the number of newly read messages
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	n, err := h.msgSvc.MarkRead(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.ReadRespond{Count: n})
}

// LogCall POST /conversations/:id/calls
// Used by the call signaling collaborator to record call lifecycle entries.
func (h *ConversationHandler) LogCall(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req request.LogCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	typ, ok := model.ParseMessageType(req.Type)
	if !ok {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "unknown call type"))
		return
	}
	data, err := h.msgSvc.LogCall(c.Request.Context(), id, middleware.UserID(c), typ, req.Duration)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
