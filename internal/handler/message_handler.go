package handler

import (
	"mime/multipart"
	"strings"

	"evo_chat_server/internal/dto/request"
	"evo_chat_server/internal/infrastructure/middleware"
	"evo_chat_server/internal/infrastructure/storage"
	"evo_chat_server/internal/model"
	"evo_chat_server/internal/service"
	"evo_chat_server/internal/service/message"
	"evo_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// MessageHandler sending, editing, deleting and reacting.
type MessageHandler struct {
	msgSvc      service.MessageService
	reactionSvc service.ReactionService
	blobs       storage.BlobStore
}

func NewMessageHandler(msgSvc service.MessageService, reactionSvc service.ReactionService, blobs storage.BlobStore) *MessageHandler {
	return &MessageHandler{msgSvc: msgSvc, reactionSvc: reactionSvc, blobs: blobs}
}

// Send POST /messages
// JSON body or multipart form (request.SendMessageRequest). A multipart "attachment" file is
// stored first and its URL becomes the message's attachment.
func (h *MessageHandler) Send(c *gin.Context) {
	var req request.SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	convID, err := parseID(req.ConversationID, "conversationId")
	if err != nil {
		HandleError(c, err)
		return
	}
	replyTo, err := optionalID(req.ReplyToID, "replyToId")
	if err != nil {
		HandleError(c, err)
		return
	}
	typ, _ := model.ParseMessageType(req.Type)
	attachment := req.AttachmentURL

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if file, ferr := c.FormFile("attachment"); ferr == nil {
			if req.Type == "" {
				if typ, err = typeOfUpload(file); err != nil {
					HandleError(c, err)
					return
				}
			}
			if attachment, err = h.blobs.Save(c.Request.Context(), storage.KindAttachment, file); err != nil {
				HandleError(c, err)
				return
			}
		}
	}

	data, err := h.msgSvc.Send(c.Request.Context(), message.SendInput{
		ConversationID: convID,
		SenderID:       middleware.UserID(c),
		Body:           req.Content,
		Type:           typ,
		AttachmentURL:  attachment,
		ReplyToID:      replyTo,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Edit PUT /messages/:id, sender only
func (h *MessageHandler) Edit(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req request.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.msgSvc.Edit(c.Request.Context(), id, middleware.UserID(c), req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Delete DELETE /messages/:id, soft and sender only
func (h *MessageHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	data, err := h.msgSvc.SoftDelete(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// React POST /messages/:id/react
// data: respond.ReactionsRespond with the full aggregate after the toggle
func (h *MessageHandler) React(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req request.ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.reactionSvc.Toggle(c.Request.Context(), id, middleware.UserID(c), req.Emoji)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// typeOfUpload picks the message variant from the declared content type of an upload.
func typeOfUpload(file *multipart.FileHeader) (model.MessageType, error) {
	ct := strings.ToLower(file.Header.Get("Content-Type"))
	switch {
	case ct == "image/gif":
		return model.TypeGif, nil
	case strings.HasPrefix(ct, "image/"):
		return model.TypeImage, nil
	case strings.HasPrefix(ct, "audio/"):
		return model.TypeAudio, nil
	}
	return "", errorx.New(errorx.CodeInvalidParam, "type is required for this attachment")
}
