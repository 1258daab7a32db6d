package request

// UpdateProfileRequest PUT /users/me; nil fields stay unchanged.
type UpdateProfileRequest struct {
	Username  *string `json:"username" binding:"omitempty,min=1,max=32"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,max=512"`
}

// UserTargetRequest block / unblock body
// Used by:
//   - internal/handler/relationship_handler.go: Block, Unblock
type UserTargetRequest struct {
	UserID string `json:"userId" binding:"required,numeric"`
}
