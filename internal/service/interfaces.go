// Package service declares the business interfaces the handler layer calls.
// Implementations live in one sub-package per concern and are wired by provider.go.
package service

import (
	"context"
	"mime/multipart"

	"evo_chat_server/internal/dto/request"
	"evo_chat_server/internal/dto/respond"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/service/message"
)

// UserService accounts, tokens and profiles.
type UserService interface {
	Register(ctx context.Context, req request.RegisterRequest) (*respond.AuthRespond, error)
	Login(ctx context.Context, req request.LoginRequest) (*respond.AuthRespond, error)
	Refresh(ctx context.Context, refreshToken string) (*respond.AuthRespond, error)
	Logout(ctx context.Context, userID int64, refreshToken string) error
	Me(ctx context.Context, userID int64) (*respond.MeInfo, error)
	// GetUser anonymized when a block exists between viewer and target.
	GetUser(ctx context.Context, viewerID, targetID int64) (*respond.UserInfo, error)
	UpdateProfile(ctx context.Context, userID int64, req request.UpdateProfileRequest) (*respond.MeInfo, error)
	UploadAvatar(ctx context.Context, userID int64, file *multipart.FileHeader) (*respond.MeInfo, error)
	ListOnline(ctx context.Context) ([]int64, error)
}

// ConversationService conversations, membership and list visibility.
type ConversationService interface {
	// Create opens a direct conversation for one participant without a name, else a group.
	Create(ctx context.Context, creatorID int64, name string, participantIDs []int64) (*model.Conversation, error)
	CreateDirect(ctx context.Context, userA, userB int64) (*model.Conversation, error)
	CreateGroup(ctx context.Context, creatorID int64, name string, memberIDs []int64) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]respond.ConversationItem, error)
	// Clear hides the conversation for userID only, until the next message.
	Clear(ctx context.Context, conversationID, userID int64) error
	Destroy(ctx context.Context, conversationID, requesterID int64) error
	AddMembers(ctx context.Context, conversationID, actorID int64, userIDs []int64) error
	RemoveMember(ctx context.Context, conversationID, actorID, targetID int64) error
	Leave(ctx context.Context, conversationID, userID int64) error
	UpdateGroup(ctx context.Context, conversationID, actorID int64, name, avatarURL *string) error
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}

// MessageService history and message lifecycle.
type MessageService interface {
	Send(ctx context.Context, in message.SendInput) (*respond.MessageInfo, error)
	LogCall(ctx context.Context, conversationID, callerID int64, typ model.MessageType, duration *int) (*respond.MessageInfo, error)
	Edit(ctx context.Context, messageID, requesterID int64, body string) (*respond.MessageInfo, error)
	SoftDelete(ctx context.Context, messageID, requesterID int64) (*respond.MessageInfo, error)
	MarkRead(ctx context.Context, conversationID, readerID int64) (int64, error)
	List(ctx context.Context, conversationID, userID int64, beforeID *int64, limit int) ([]respond.MessageInfo, error)
}

// ReactionService reaction toggles and aggregates.
type ReactionService interface {
	Toggle(ctx context.Context, messageID, userID int64, emoji string) (*respond.ReactionsRespond, error)
	Aggregate(ctx context.Context, messageIDs []int64) (map[int64][]respond.ReactionGroup, error)
	ReadCounts(ctx context.Context, messageIDs []int64) (map[int64]int64, error)
}

// RelationshipService friend requests, friendships and blocks.
type RelationshipService interface {
	SendFriendRequest(ctx context.Context, senderID int64, identifier string) (*respond.FriendRequestInfo, error)
	ListFriendRequests(ctx context.Context, userID int64) (*respond.FriendRequestsRespond, error)
	Respond(ctx context.Context, requestID, userID int64, status string) (*respond.FriendRequestInfo, error)
	ListFriends(ctx context.Context, userID int64) ([]respond.FriendInfo, error)
	RemoveFriend(ctx context.Context, userID, otherID int64) error
	Block(ctx context.Context, userID, targetID int64) error
	Unblock(ctx context.Context, userID, targetID int64) error
	ListBlocked(ctx context.Context, userID int64) ([]respond.BlockedInfo, error)
	CheckEligibility(ctx context.Context, a, b int64) error
}
