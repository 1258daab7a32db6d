package model

import (
	"time"

	"gorm.io/gorm"
)

// Conversation direct (two users) or group.
// DirectKey is the unordered pair key for direct conversations and NULL for groups; its unique
// index makes concurrent createDirect calls for the same pair collapse onto one row.
type Conversation struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name      string    `gorm:"column:name;type:varchar(64)"`
	IsGroup   bool      `gorm:"column:is_group;not null;default:false"`
	AvatarURL string    `gorm:"column:avatar_url;type:varchar(512)"`
	DirectKey *string   `gorm:"column:direct_key;type:varchar(64);uniqueIndex:uk_conversation_direct"`
	CreatedAt time.Time `gorm:"column:created_at;precision:6"`
	UpdatedAt time.Time `gorm:"column:updated_at;precision:6"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// ParticipantRole admin|member, meaningful for groups only.
type ParticipantRole string

const (
	RoleAdmin  ParticipantRole = "admin"
	RoleMember ParticipantRole = "member"
)

// Participant membership of a user in a conversation.
// ClearedAt is the per-user "locally cleared at" marker: while it is newer than the conversation's
// last activity the conversation is hidden from that user's list.
type Participant struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	ConversationID int64           `gorm:"column:conversation_id;not null;uniqueIndex:uk_participant,priority:1"`
	UserID         int64           `gorm:"column:user_id;not null;uniqueIndex:uk_participant,priority:2;index:idx_participant_user"`
	Role           ParticipantRole `gorm:"column:role;type:varchar(16);not null;default:member"`
	JoinedAt       time.Time       `gorm:"column:joined_at;precision:6"`
	ClearedAt      *time.Time      `gorm:"column:cleared_at;precision:6"`
}

func (Participant) TableName() string {
	return "participants"
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// HiddenAfter reports whether the participant's clear marker hides a conversation whose last
// activity happened at lastActivity. Equal timestamps keep the conversation visible.
func (p *Participant) HiddenAfter(lastActivity time.Time) bool {
	return p.ClearedAt != nil && p.ClearedAt.After(lastActivity)
}
