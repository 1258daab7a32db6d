package respond

import (
	"time"

	"evo_chat_server/internal/model"
	"evo_chat_server/pkg/constants"
)

// UserInfo public profile, also the USER_PROFILE_UPDATE payload.
type UserInfo struct {
	ID          int64      `json:"id,string"`
	DisplayName string     `json:"displayName"`
	Tag         string     `json:"tag"`
	Handle      string     `json:"handle"`
	AvatarURL   string     `json:"avatarUrl"`
	IsOnline    bool       `json:"isOnline"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
}

// MeInfo own profile
type MeInfo struct {
	UserInfo
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthRespond register / login / refresh result
type AuthRespond struct {
	User         MeInfo `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// OnlineUsersRespond GET /users/online
type OnlineUsersRespond struct {
	UserIDs []string `json:"userIds"`
}

// FromUser public view of u.
func FromUser(u *model.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Tag:         u.Tag,
		Handle:      u.Handle(),
		AvatarURL:   u.AvatarURL,
		IsOnline:    u.IsOnline,
		LastSeenAt:  u.LastSeenAt,
	}
}

// FromMe private view of u.
func FromMe(u *model.User) MeInfo {
	return MeInfo{UserInfo: FromUser(u), Email: u.Email, CreatedAt: u.CreatedAt}
}

// Anonymized placeholder shown when a block exists between viewer and user.
func Anonymized(id int64) UserInfo {
	return UserInfo{
		ID:          id,
		DisplayName: constants.ANONYMOUS_DISPLAY_NAME,
		Handle:      constants.ANONYMOUS_DISPLAY_NAME,
	}
}
