package service

import (
	"evo_chat_server/internal/dao/db/repository"
	myredis "evo_chat_server/internal/dao/redis"
	ws "evo_chat_server/internal/gateway/websocket"
	"evo_chat_server/internal/infrastructure/storage"
	"evo_chat_server/internal/service/auth"
	"evo_chat_server/internal/service/conversation"
	"evo_chat_server/internal/service/message"
	"evo_chat_server/internal/service/reaction"
	"evo_chat_server/internal/service/relationship"
	"evo_chat_server/internal/service/user"
)

// Deps collaborators shared by the services.
type Deps struct {
	Repos   *repository.Repositories
	Emitter ws.Emitter
	Cache   myredis.AsyncCacheService // nil when redis is disabled
	Blobs   storage.BlobStore
	Online  user.OnlineSource
}

// Services aggregates every service; handlers reach them through Svc.
type Services struct {
	User         UserService
	Conversation ConversationService
	Message      MessageService
	Reaction     ReactionService
	Relationship RelationshipService

	// Presence is the gateway's PresenceSink.
	Presence *user.PresenceRecorder
	Auth     *auth.Service
}

// NewServices wires the services bottom-up: reaction feeds message, conversation opens the
// direct conversations that relationship acceptance asks for.
func NewServices(d Deps) *Services {
	var cache myredis.CacheService
	if d.Cache != nil {
		cache = d.Cache
	}
	authSvc := auth.NewAuthService(cache)
	reactionSvc := reaction.NewReactionService(d.Repos, d.Emitter)
	conversationSvc := conversation.NewConversationService(d.Repos, d.Emitter)

	return &Services{
		User:         user.NewUserService(d.Repos, d.Emitter, authSvc, d.Blobs, cache, d.Online),
		Conversation: conversationSvc,
		Message:      message.NewMessageService(d.Repos, d.Emitter, reactionSvc),
		Reaction:     reactionSvc,
		Relationship: relationship.NewRelationshipService(d.Repos, d.Emitter, conversationSvc),
		Presence:     user.NewPresenceRecorder(d.Repos, d.Cache),
		Auth:         authSvc,
	}
}

// Svc global services, set by InitServices in main.
var Svc *Services

// InitServices builds Svc; call it after the store, cache and gateway are up.
func InitServices(d Deps) {
	Svc = NewServices(d)
}
