package request

// FriendRequestRequest POST /friend_requests, target as "Name#1234"
type FriendRequestRequest struct {
	TargetIdentifier string `json:"targetIdentifier" binding:"required,max=64"`
}

// RespondFriendRequest POST /friend_requests/:id/respond
type RespondFriendRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected"`
}
