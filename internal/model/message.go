package model

import (
	"time"

	"gorm.io/gorm"
)

// Message a conversation entry. Rows are never hard-deleted outside group destruction:
// a soft-deleted message keeps its row for reply previews and has its body suppressed on read.
type Message struct {
	ID             int64       `gorm:"column:id;primaryKey;autoIncrement:false"`
	ConversationID int64       `gorm:"column:conversation_id;not null;index:idx_message_conversation,priority:1"`
	SenderID       *int64      `gorm:"column:sender_id;index:idx_message_sender"` // NULL for system entries
	Body           string      `gorm:"column:body;type:text"`
	Type           MessageType `gorm:"column:type;type:varchar(20);not null;default:text"`
	AttachmentURL  string      `gorm:"column:attachment_url;type:varchar(512)"`
	CallDuration   *int        `gorm:"column:call_duration"` // seconds, call_ended only
	ReplyToID      *int64      `gorm:"column:reply_to_id;index:idx_message_reply"`
	CreatedAt      time.Time   `gorm:"column:created_at;precision:6;index:idx_message_conversation,priority:2"`
	EditedAt       *time.Time  `gorm:"column:edited_at;precision:6"`
	DeletedAt      *time.Time  `gorm:"column:deleted_at;precision:6"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// IsDeleted soft-delete tombstone check.
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// IsSentBy reports whether userID authored the message.
func (m *Message) IsSentBy(userID int64) bool {
	return m.SenderID != nil && *m.SenderID == userID
}
