package model

import (
	"time"

	"gorm.io/gorm"
)

// Reaction one (message, user, emoji) triple. A user may hold several distinct emoji on the same
// message but each emoji only once.
type Reaction struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	MessageID int64     `gorm:"column:message_id;not null;uniqueIndex:uk_reaction,priority:1"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:uk_reaction,priority:2"`
	Emoji     string    `gorm:"column:emoji;type:varchar(32);not null;uniqueIndex:uk_reaction,priority:3"`
	CreatedAt time.Time `gorm:"column:created_at;precision:6"`
}

func (Reaction) TableName() string {
	return "reactions"
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// ReadMark presence means userID has read messageID.
type ReadMark struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	MessageID      int64     `gorm:"column:message_id;not null;uniqueIndex:uk_read_mark,priority:1"`
	UserID         int64     `gorm:"column:user_id;not null;uniqueIndex:uk_read_mark,priority:2"`
	ConversationID int64     `gorm:"column:conversation_id;not null;index:idx_read_mark_conversation"`
	ReadAt         time.Time `gorm:"column:read_at;precision:6"`
}

func (ReadMark) TableName() string {
	return "read_marks"
}

func (r *ReadMark) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
