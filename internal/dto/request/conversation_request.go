package request

// CreateConversationRequest POST /conversations
// One participant and no name opens a direct conversation, anything else creates a group.
type CreateConversationRequest struct {
	Name           string   `json:"name" binding:"max=64"`
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1,dive,numeric"`
}

// UpdateConversationRequest PUT /conversations/:id, group admin only
type UpdateConversationRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=64"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,max=512"`
}

// AddMembersRequest POST /conversations/:id/members
type AddMembersRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1,dive,numeric"`
}

// ListMessagesQuery GET /conversations/:id/messages?before=&limit=
type ListMessagesQuery struct {
	Before string `form:"before" binding:"omitempty,numeric"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}

// LogCallRequest POST /conversations/:id/calls, written by the call signaling collaborator
type LogCallRequest struct {
	Type     string `json:"type" binding:"required,oneof=call_started call_ended call_missed call_canceled"`
	Duration *int   `json:"duration" binding:"omitempty,min=0"`
}
