package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repositories aggregates every repository over one gorm handle, which may be a transaction.
type Repositories struct {
	db            *gorm.DB
	User          UserRepository
	Conversation  ConversationRepository
	Participant   ParticipantRepository
	Message       MessageRepository
	Reaction      ReactionRepository
	ReadMark      ReadMarkRepository
	FriendRequest FriendRequestRepository
	Block         BlockRepository
}

// NewRepositories builds all repositories on db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:            db,
		User:          NewUserRepository(db),
		Conversation:  NewConversationRepository(db),
		Participant:   NewParticipantRepository(db),
		Message:       NewMessageRepository(db),
		Reaction:      NewReactionRepository(db),
		ReadMark:      NewReadMarkRepository(db),
		FriendRequest: NewFriendRequestRepository(db),
		Block:         NewBlockRepository(db),
	}
}

// Transaction runs fn inside a database transaction; a returned error rolls everything back.
// fn must only use txRepos: on a single-connection pool the outer handle would deadlock.
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Now reads the store clock, UTC with microsecond precision.
// Message creation and clear markers both take their timestamp from here so that the
// visibility comparison never mixes clocks from different application nodes.
func (r *Repositories) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	switch r.db.Dialector.Name() {
	case "mysql":
		if err := r.db.WithContext(ctx).Raw("SELECT UTC_TIMESTAMP(6)").Scan(&now).Error; err != nil {
			return time.Time{}, wrapDBError(err, "read store clock")
		}
	case "postgres":
		if err := r.db.WithContext(ctx).Raw("SELECT now()").Scan(&now).Error; err != nil {
			return time.Time{}, wrapDBError(err, "read store clock")
		}
	default:
		// embedded store: single process, the process clock is the store clock
		now = time.Now()
	}
	return now.UTC().Truncate(time.Microsecond), nil
}

// DB exposes the underlying handle for migrations and health checks.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}
