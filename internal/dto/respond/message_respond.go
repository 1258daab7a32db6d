package respond

import (
	"time"

	"evo_chat_server/internal/model"
	"evo_chat_server/pkg/constants"
)

// MessageInfo fully hydrated message, the payload of new_message and message_update.
type MessageInfo struct {
	ID             int64           `json:"id,string"`
	ConversationID int64           `json:"conversationId,string"`
	SenderID       *int64          `json:"senderId,string,omitempty"`
	Sender         *UserInfo       `json:"sender"`
	Body           string          `json:"body"`
	Type           string          `json:"type"`
	AttachmentURL  string          `json:"attachmentUrl,omitempty"`
	CallDuration   *int            `json:"callDuration,omitempty"`
	ReplyToID      *int64          `json:"replyToId,string,omitempty"`
	ReplyTo        *ReplyPreview   `json:"replyTo,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	EditedAt       *time.Time      `json:"editedAt,omitempty"`
	IsDeleted      bool            `json:"isDeleted"`
	DeletedAt      *time.Time      `json:"deletedAt,omitempty"`
	Reactions      []ReactionGroup `json:"reactions"`
	ReadCount      int64           `json:"readCount"`
}

// ReplyPreview current state of a replied-to message.
type ReplyPreview struct {
	ID            int64     `json:"id,string"`
	Body          string    `json:"body"`
	Type          string    `json:"type"`
	AttachmentURL string    `json:"attachmentUrl,omitempty"`
	Sender        *UserInfo `json:"sender"`
	IsDeleted     bool      `json:"isDeleted"`
}

// ReactionGroup one emoji on a message with its voters in reaction order.
type ReactionGroup struct {
	Emoji string          `json:"emoji"`
	Count int             `json:"count"`
	Users []ReactionVoter `json:"users"`
}

// ReactionVoter identity of a reacting user.
type ReactionVoter struct {
	UserID      int64  `json:"userId,string"`
	DisplayName string `json:"displayName"`
}

// ReactionsRespond POST /messages/:id/react
type ReactionsRespond struct {
	MessageID int64           `json:"messageId,string"`
	Reactions []ReactionGroup `json:"reactions"`
}

// ReadRespond POST /conversations/:id/read
type ReadRespond struct {
	Count int64 `json:"count"`
}

// FromMessage builds the wire shape. A soft-deleted message carries the removal placeholder
// and no attachment, whatever its stored body.
func FromMessage(m *model.Message, sender *UserInfo, reply *ReplyPreview, reactions []ReactionGroup, readCount int64) MessageInfo {
	if reactions == nil {
		reactions = []ReactionGroup{}
	}
	info := MessageInfo{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Sender:         sender,
		Body:           m.Body,
		Type:           string(m.Type),
		AttachmentURL:  m.AttachmentURL,
		CallDuration:   m.CallDuration,
		ReplyToID:      m.ReplyToID,
		ReplyTo:        reply,
		CreatedAt:      m.CreatedAt,
		EditedAt:       m.EditedAt,
		IsDeleted:      m.IsDeleted(),
		DeletedAt:      m.DeletedAt,
		Reactions:      reactions,
		ReadCount:      readCount,
	}
	if m.IsDeleted() {
		info.Body = constants.MESSAGE_REMOVED_PLACEHOLDER
		info.AttachmentURL = ""
	}
	return info
}

// FromReplyTarget preview of target, suppressed when target is soft-deleted.
func FromReplyTarget(target *model.Message, sender *UserInfo) *ReplyPreview {
	p := &ReplyPreview{
		ID:            target.ID,
		Body:          target.Body,
		Type:          string(target.Type),
		AttachmentURL: target.AttachmentURL,
		Sender:        sender,
		IsDeleted:     target.IsDeleted(),
	}
	if p.IsDeleted {
		p.Body = constants.MESSAGE_REMOVED_PLACEHOLDER
		p.AttachmentURL = ""
	}
	return p
}
