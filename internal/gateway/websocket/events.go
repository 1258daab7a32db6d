// Package websocket is the session gateway: realtime connections, presence, rooms and
// event fanout to conversation rooms, user channels and everyone.
package websocket

import (
	"context"
	"encoding/json"
)

// Outbound event names.
const (
	EventNewMessage          = "new_message"
	EventMessageUpdate       = "message_update"
	EventReactionUpdate      = "message_reaction_update"
	EventReadReceipt         = "READ_RECEIPT_UPDATE"
	EventTyping              = "typing_update"
	EventUserStatus          = "USER_STATUS_UPDATE"
	EventUserProfile         = "USER_PROFILE_UPDATE"
	EventConversationAdded   = "conversation_added"
	EventConversationUpdated = "conversation_updated"
	EventConversationRemoved = "conversation_removed"
	EventFriendRequest       = "friend_request"
	EventCallSignal          = "call_signal"
	EventPong                = "pong"
	EventError               = "error"
)

// Inbound frame types.
const (
	FrameJoin       = "join"
	FrameLeave      = "leave"
	FrameTyping     = "typing"
	FrameCallSignal = "call_signal"
	FramePing       = "ping"
)

// ScopeKind audience of an event.
type ScopeKind string

const (
	ScopeRoom   ScopeKind = "room"
	ScopeUser   ScopeKind = "user"
	ScopeGlobal ScopeKind = "global"
)

// Scope where an event goes. ExcludeUser skips that user's connections (typing, call signals).
type Scope struct {
	Kind        ScopeKind
	ID          int64
	ExcludeUser int64
}

// Room conversation room scope.
func Room(conversationID int64) Scope {
	return Scope{Kind: ScopeRoom, ID: conversationID}
}

// User private channel scope, every connection of userID.
func User(userID int64) Scope {
	return Scope{Kind: ScopeUser, ID: userID}
}

// Global every connection on every node.
func Global() Scope {
	return Scope{Kind: ScopeGlobal}
}

// Emitter is what services see of the gateway. Emit never fails the caller: the write that
// produced the event is already committed, delivery problems are only logged.
type Emitter interface {
	Emit(ctx context.Context, scope Scope, event string, payload any)
	// EvictUser takes a former participant's connections out of the conversation room.
	EvictUser(ctx context.Context, conversationID, userID int64)
}

// PresenceSink persists presence transitions (store row, cache mirror).
type PresenceSink interface {
	SetOnline(ctx context.Context, userID int64, online bool, connectionRef string) error
}

// JoinGuard decides whether a connection's user may join a conversation room.
type JoinGuard interface {
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}

// Frame inbound client message.
type Frame struct {
	Type           string          `json:"type"`
	ConversationID int64           `json:"conversationId,string"`
	IsTyping       bool            `json:"isTyping"`
	Payload        json.RawMessage `json:"payload"`
}

// eviction payload of an mq.KindEvict envelope
type eviction struct {
	UserID int64 `json:"userId,string"`
}

// outbound wire shape
type outFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
