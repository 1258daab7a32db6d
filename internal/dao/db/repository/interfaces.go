// Package repository is the data access layer: one interface per table, implemented on gorm.
// Every method takes the request context and returns errors already wrapped in errorx codes.
package repository

import (
	"context"
	"time"

	"evo_chat_server/internal/model"
)

// UserRepository accounts, profiles and persisted presence.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByHandle looks a user up by lower-cased name and tag.
	FindByHandle(ctx context.Context, nameKey, tag string) (*model.User, error)
	HandleTaken(ctx context.Context, nameKey, tag string) (bool, error)
	// UpdateProfile applies column updates; display_name changes also rewrite name_key.
	UpdateProfile(ctx context.Context, id int64, updates map[string]any) error
	SetPresence(ctx context.Context, id int64, online bool, connectionRef string, at time.Time) error
	OnlineIDs(ctx context.Context) ([]int64, error)
}

// ConversationRepository conversation rows.
type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id int64) (*model.Conversation, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Conversation, error)
	FindByDirectKey(ctx context.Context, key string) (*model.Conversation, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

// ParticipantRepository membership rows and per-user clear markers.
type ParticipantRepository interface {
	// Add inserts memberships, skipping pairs that already exist; returns the rows actually added.
	Add(ctx context.Context, members []*model.Participant) (int64, error)
	Find(ctx context.Context, conversationID, userID int64) (*model.Participant, error)
	Exists(ctx context.Context, conversationID, userID int64) (bool, error)
	// ListByConversation ordered by join time.
	ListByConversation(ctx context.Context, conversationID int64) ([]model.Participant, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Participant, error)
	UserIDs(ctx context.Context, conversationID int64) ([]int64, error)
	// Counterparts maps each conversation to one participant other than userID; made for direct
	// conversations, where there is exactly one.
	Counterparts(ctx context.Context, userID int64, conversationIDs []int64) (map[int64]int64, error)
	CountByConversations(ctx context.Context, conversationIDs []int64) (map[int64]int64, error)
	SetClearedAt(ctx context.Context, conversationID, userID int64, at time.Time) error
	// ResetClearedAt nulls every participant's marker on the conversation.
	ResetClearedAt(ctx context.Context, conversationID int64) error
	SetRole(ctx context.Context, conversationID, userID int64, role model.ParticipantRole) error
	Remove(ctx context.Context, conversationID, userID int64) (int64, error)
	DeleteByConversation(ctx context.Context, conversationID int64) error
}

// MessageRepository conversation history.
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id int64) (*model.Message, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Message, error)
	// EditBody replaces the body of a live message; false means the message is gone or deleted.
	EditBody(ctx context.Context, id int64, body string, at time.Time) (bool, error)
	// MarkDeleted stamps deleted_at unless already set; false means it was deleted before.
	MarkDeleted(ctx context.Context, id int64, at time.Time) (bool, error)
	// Page returns up to limit messages older than cursor (all when nil) and newer than after
	// (no lower bound when nil), newest first.
	Page(ctx context.Context, conversationID int64, after *time.Time, cursor *model.Message, limit int) ([]model.Message, error)
	Latest(ctx context.Context, conversationID int64) (*model.Message, error)
	// LatestByConversations newest message per conversation in one query; conversations
	// without messages are absent from the map.
	LatestByConversations(ctx context.Context, conversationIDs []int64) (map[int64]*model.Message, error)
	// UnreadIDs ids of messages written by someone other than readerID without a read mark from readerID.
	UnreadIDs(ctx context.Context, conversationID, readerID int64) ([]int64, error)
	UnreadCounts(ctx context.Context, readerID int64, conversationIDs []int64) (map[int64]int64, error)
	CountByConversation(ctx context.Context, conversationID int64) (int64, error)
	DeleteByConversation(ctx context.Context, conversationID int64) error
}

// ReactionRepository (message, user, emoji) triples.
type ReactionRepository interface {
	// Insert reports false when the triple already existed.
	Insert(ctx context.Context, reaction *model.Reaction) (bool, error)
	Delete(ctx context.Context, messageID, userID int64, emoji string) (int64, error)
	// ListByMessages ordered by reaction time.
	ListByMessages(ctx context.Context, messageIDs []int64) ([]model.Reaction, error)
	DeleteByConversation(ctx context.Context, conversationID int64) error
}

// ReadMarkRepository per-user read state.
type ReadMarkRepository interface {
	// InsertBatch skips existing marks; returns the number of new marks.
	InsertBatch(ctx context.Context, marks []*model.ReadMark) (int64, error)
	// ReadCounts distinct readers per message, excluding the sender.
	ReadCounts(ctx context.Context, messageIDs []int64) (map[int64]int64, error)
	ListByReader(ctx context.Context, conversationID, readerID int64) ([]model.ReadMark, error)
	DeleteByConversation(ctx context.Context, conversationID int64) error
}

// FriendRequestRepository requests and friendships.
type FriendRequestRepository interface {
	Create(ctx context.Context, req *model.FriendRequest) error
	FindByID(ctx context.Context, id int64) (*model.FriendRequest, error)
	// FindActive the pending or accepted request between two users, either direction.
	FindActive(ctx context.Context, a, b int64) (*model.FriendRequest, error)
	SetStatus(ctx context.Context, id int64, status model.FriendRequestStatus) error
	ListPending(ctx context.Context, userID int64) ([]model.FriendRequest, error)
	ListAccepted(ctx context.Context, userID int64) ([]model.FriendRequest, error)
	AreFriends(ctx context.Context, a, b int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// BlockRepository directional blocks.
type BlockRepository interface {
	Insert(ctx context.Context, block *model.Block) (bool, error)
	Delete(ctx context.Context, blockerID, blockedID int64) (int64, error)
	// Between reports a block in either direction.
	Between(ctx context.Context, a, b int64) (bool, error)
	// BlockedAmong the subset of others that userID blocks or is blocked by.
	BlockedAmong(ctx context.Context, userID int64, others []int64) (map[int64]bool, error)
	ListByBlocker(ctx context.Context, blockerID int64) ([]model.Block, error)
}
