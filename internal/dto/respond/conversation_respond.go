package respond

import "time"

// ConversationItem one entry of GET /conversations.
// For direct conversations Name, AvatarURL and IsOnline come from the counterpart's current
// profile, or the anonymized placeholder when a block exists.
type ConversationItem struct {
	ID             int64        `json:"id,string"`
	IsGroup        bool         `json:"isGroup"`
	Name           string       `json:"name"`
	AvatarURL      string       `json:"avatarUrl"`
	IsOnline       bool         `json:"isOnline"`
	OtherUserID    *int64       `json:"otherUserId,string,omitempty"`
	Role           string       `json:"role"`
	MemberCount    int64        `json:"memberCount"`
	UnreadCount    int64        `json:"unreadCount"`
	LastMessage    *LastMessage `json:"lastMessage"`
	LastActivityAt time.Time    `json:"lastActivityAt"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// LastMessage preview shown in the conversation list.
type LastMessage struct {
	ID        int64     `json:"id,string"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	SenderID  *int64    `json:"senderId,string,omitempty"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationCreated POST /conversations
type ConversationCreated struct {
	ConversationID int64 `json:"conversationId,string"`
}

// ConversationSignal payload of conversation_added / conversation_updated / conversation_removed.
type ConversationSignal struct {
	ConversationID int64 `json:"conversationId,string"`
}
