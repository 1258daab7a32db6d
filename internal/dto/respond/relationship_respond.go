package respond

import "time"

// FriendRequestInfo one request as seen by userID; also the friend_request event payload.
type FriendRequestInfo struct {
	ID        int64     `json:"id,string"`
	Status    string    `json:"status"`
	Direction string    `json:"direction"` // incoming | outgoing
	Sender    UserInfo  `json:"sender"`
	Receiver  UserInfo  `json:"receiver"`
	CreatedAt time.Time `json:"createdAt"`
}

// FriendRequestsRespond GET /friend_requests
type FriendRequestsRespond struct {
	Incoming []FriendRequestInfo `json:"incoming"`
	Outgoing []FriendRequestInfo `json:"outgoing"`
}

// FriendInfo GET /friends entry
type FriendInfo struct {
	UserInfo
	RequestID int64     `json:"requestId,string"`
	Since     time.Time `json:"since"`
}

// BlockedInfo GET /users/blocked entry
type BlockedInfo struct {
	UserInfo
	BlockedAt time.Time `json:"blockedAt"`
}
