package model

import (
	"time"

	"gorm.io/gorm"
)

// FriendRequestStatus pending|accepted|rejected
type FriendRequestStatus string

const (
	FriendPending  FriendRequestStatus = "pending"
	FriendAccepted FriendRequestStatus = "accepted"
	FriendRejected FriendRequestStatus = "rejected"
)

// FriendRequest a request between two users; an accepted request is the friendship record.
// ActivePair holds PairKey(sender, receiver) while the request is pending or accepted and NULL
// once rejected, so the unique index forbids two live requests between the same users while
// still allowing a new request after a rejection.
type FriendRequest struct {
	ID         int64               `gorm:"column:id;primaryKey;autoIncrement:false"`
	SenderID   int64               `gorm:"column:sender_id;not null;index:idx_friend_request_sender"`
	ReceiverID int64               `gorm:"column:receiver_id;not null;index:idx_friend_request_receiver"`
	Status     FriendRequestStatus `gorm:"column:status;type:varchar(16);not null;default:pending"`
	ActivePair *string             `gorm:"column:active_pair;type:varchar(64);uniqueIndex:uk_friend_request_pair"`
	CreatedAt  time.Time           `gorm:"column:created_at;precision:6"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;precision:6"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

func (f *FriendRequest) BeforeCreate(tx *gorm.DB) error {
	assignID(&f.ID)
	return nil
}

// Counterpart returns the other user of the request.
func (f *FriendRequest) Counterpart(userID int64) int64 {
	if f.SenderID == userID {
		return f.ReceiverID
	}
	return f.SenderID
}

// Block blocker no longer exchanges messages with blocked; applies in both directions.
type Block struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	BlockerID int64     `gorm:"column:blocker_id;not null;uniqueIndex:uk_block,priority:1"`
	BlockedID int64     `gorm:"column:blocked_id;not null;uniqueIndex:uk_block,priority:2;index:idx_block_blocked"`
	CreatedAt time.Time `gorm:"column:created_at;precision:6"`
}

func (Block) TableName() string {
	return "blocks"
}

func (b *Block) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}
