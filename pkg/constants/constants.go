package constants

import "time"

const (
	CHANNEL_SIZE      = 256               // per-connection send queue and bus buffer
	FILE_MAX_SIZE     = 20 << 20          // max attachment / avatar upload (bytes)
	REDIS_TIMEOUT     = 2 * time.Second   // per-call redis deadline for background tasks
	MESSAGE_PAGE_SIZE = 50                // default message page
	MESSAGE_PAGE_MAX  = 100               // max message page
	EMOJI_MAX_BYTES   = 32                // reaction emoji length limit
	TAG_DIGITS        = 4                 // discriminator tag length
	TAG_MAX_ATTEMPTS  = 20                // attempts to draw a free discriminator
	REFRESH_TOKEN_KEY = "user_tokens:"    // redis set of valid refresh token ids, per user
	PRESENCE_SET_KEY  = "presence:online" // redis set of online user ids
	PRESENCE_CONN_KEY = "presence:conns:" // redis set of node/conn refs, per user
	PRESENCE_NODE_KEY = "presence:node:"  // redis set of user/conn refs held by one node
)

// User-facing copy.
const (
	MESSAGE_REMOVED_PLACEHOLDER = "Message supprimé"
	ANONYMOUS_DISPLAY_NAME      = "Utilisateur Evo"
	WELCOME_MESSAGE             = "👋 Ami accepté !"
	GROUP_CREATED_FORMAT        = "Groupe « %s » créé"
	MEMBERS_ADDED_FORMAT        = "%s a ajouté %s"
	MEMBER_REMOVED_FORMAT       = "%s a retiré %s"
	MEMBER_LEFT_FORMAT          = "%s a quitté le groupe"
)
