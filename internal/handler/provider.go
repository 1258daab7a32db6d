package handler

import (
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/infrastructure/storage"
	"evo_chat_server/internal/service"
)

// Handlers aggregates every handler; the router reaches them through this struct.
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Conversation *ConversationHandler
	Message      *MessageHandler
	Relationship *RelationshipHandler
	WS           *WSHandler
}

// NewHandlers injects the services into each handler.
func NewHandlers(svc *service.Services, blobs storage.BlobStore, gw *ws.Gateway) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.User),
		User:         NewUserHandler(svc.User),
		Conversation: NewConversationHandler(svc.Conversation, svc.Message),
		Message:      NewMessageHandler(svc.Message, svc.Reaction, blobs),
		Relationship: NewRelationshipHandler(svc.Relationship),
		WS:           NewWSHandler(gw),
	}
}
