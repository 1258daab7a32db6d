package respond

import "encoding/json"

// UserStatusEvent USER_STATUS_UPDATE
type UserStatusEvent struct {
	UserID   int64 `json:"userId,string"`
	IsOnline bool  `json:"isOnline"`
}

// TypingEvent typing_update
type TypingEvent struct {
	ConversationID int64 `json:"conversationId,string"`
	UserID         int64 `json:"userId,string"`
	IsTyping       bool  `json:"isTyping"`
}

// CallSignalEvent call_signal, relayed untouched to the other room members
type CallSignalEvent struct {
	ConversationID int64           `json:"conversationId,string"`
	FromUserID     int64           `json:"fromUserId,string"`
	Payload        json.RawMessage `json:"payload"`
}

// ReadReceiptEvent READ_RECEIPT_UPDATE
type ReadReceiptEvent struct {
	ConversationID int64 `json:"conversationId,string"`
	ReaderID       int64 `json:"readerId,string"`
	Count          int64 `json:"count"`
}

// ReactionUpdateEvent message_reaction_update
type ReactionUpdateEvent struct {
	MessageID      int64           `json:"messageId,string"`
	ConversationID int64           `json:"conversationId,string"`
	Reactions      []ReactionGroup `json:"reactions"`
}

// FriendRequestEvent friend_request
type FriendRequestEvent struct {
	Action  string            `json:"action"` // created | accepted | rejected | removed
	Request FriendRequestInfo `json:"request"`
}
