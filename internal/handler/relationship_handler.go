package handler

import (
	"evo_chat_server/internal/dto/request"
	"evo_chat_server/internal/infrastructure/middleware"
	"evo_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// RelationshipHandler friend requests, friendships and blocks.
type RelationshipHandler struct {
	relSvc service.RelationshipService
}

func NewRelationshipHandler(relSvc service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relSvc: relSvc}
}

// SendRequest POST /friend_requests
// body: request.FriendRequestRequest, target as "Name#1234"
func (h *RelationshipHandler) SendRequest(c *gin.Context) {
	var req request.FriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.relSvc.SendFriendRequest(c.Request.Context(), middleware.UserID(c), req.TargetIdentifier)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListRequests GET /friend_requests
// data: respond.FriendRequestsRespond split into incoming and outgoing
func (h *RelationshipHandler) ListRequests(c *gin.Context) {
	data, err := h.relSvc.ListFriendRequests(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Respond POST /friend_requests/:id/respond, receiver only
func (h *RelationshipHandler) Respond(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req request.RespondFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.relSvc.Respond(c.Request.Context(), id, middleware.UserID(c), req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Friends GET /friends
func (h *RelationshipHandler) Friends(c *gin.Context) {
	data, err := h.relSvc.ListFriends(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// RemoveFriend DELETE /friends/:id
// The direct conversation survives; sending in it becomes ineligible.
func (h *RelationshipHandler) RemoveFriend(c *gin.Context) {
	other, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.relSvc.RemoveFriend(c.Request.Context(), middleware.UserID(c), other); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Block POST /users/block
func (h *RelationshipHandler) Block(c *gin.Context) {
	target, ok := h.bindTarget(c)
	if !ok {
		return
	}
	if err := h.relSvc.Block(c.Request.Context(), middleware.UserID(c), target); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Unblock POST /users/unblock
func (h *RelationshipHandler) Unblock(c *gin.Context) {
	target, ok := h.bindTarget(c)
	if !ok {
		return
	}
	if err := h.relSvc.Unblock(c.Request.Context(), middleware.UserID(c), target); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Blocked GET /users/blocked
func (h *RelationshipHandler) Blocked(c *gin.Context) {
	data, err := h.relSvc.ListBlocked(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

func (h *RelationshipHandler) bindTarget(c *gin.Context) (int64, bool) {
	var req request.UserTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return 0, false
	}
	id, err := parseID(req.UserID, "userId")
	if err != nil {
		HandleError(c, err)
		return 0, false
	}
	return id, true
}
