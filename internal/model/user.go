package model

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User account and public profile.
// DisplayName + Tag ("Bob#4412") is the human identifier; NameKey is the lower-cased name used for
// case-insensitive lookup and the (name, tag) uniqueness guard.
type User struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	DisplayName string `gorm:"column:display_name;type:varchar(64);not null"`
	NameKey     string `gorm:"column:name_key;type:varchar(64);not null;uniqueIndex:uk_user_name_tag,priority:1"`
	Tag         string `gorm:"column:tag;type:varchar(8);not null;uniqueIndex:uk_user_name_tag,priority:2"`
	Email       string `gorm:"column:email;type:varchar(255);not null;uniqueIndex:uk_user_email"`
	Password    string `gorm:"column:password;type:varchar(100);not null"` // bcrypt hash
	AvatarURL   string `gorm:"column:avatar_url;type:varchar(512)"`

	// presence, written by the gateway's presence sink
	IsOnline      bool       `gorm:"column:is_online;not null;default:false"`
	ConnectionRef string     `gorm:"column:connection_ref;type:varchar(128)"`
	LastSeenAt    *time.Time `gorm:"column:last_seen_at;precision:6"`

	CreatedAt time.Time `gorm:"column:created_at;precision:6"`
	UpdatedAt time.Time `gorm:"column:updated_at;precision:6"`

	// RawPassword plaintext from the request, hashed into Password by BeforeSave
	RawPassword string `gorm:"-" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// NameKeyOf normalises a display name for lookups.
func NameKeyOf(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BeforeSave hashes RawPassword and keeps NameKey in sync with DisplayName.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.RawPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.RawPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u.Password = string(hash)
		u.RawPassword = ""
	}
	if u.DisplayName != "" {
		u.NameKey = NameKeyOf(u.DisplayName)
	}
	return nil
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// CheckPassword compares plaintext with the stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plaintext)) == nil
}

// Handle renders "Name#1234".
func (u *User) Handle() string {
	return u.DisplayName + "#" + u.Tag
}
