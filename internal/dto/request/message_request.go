package request

// SendMessageRequest POST /messages, JSON or multipart form.
// A multipart "attachment" file replaces AttachmentURL.
type SendMessageRequest struct {
	ConversationID string `json:"conversationId" form:"conversationId" binding:"required,numeric"`
	Content        string `json:"content" form:"content"`
	Type           string `json:"type" form:"type" binding:"omitempty,oneof=text image audio sticker gif"`
	AttachmentURL  string `json:"attachmentUrl" form:"attachmentUrl" binding:"omitempty,max=512"`
	ReplyToID      string `json:"replyToId" form:"replyToId" binding:"omitempty,numeric"`
}

// EditMessageRequest PUT /messages/:id
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ReactRequest POST /messages/:id/react
type ReactRequest struct {
	Emoji string `json:"emoji" binding:"required,max=32"`
}
