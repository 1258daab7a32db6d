package user

import (
	"context"
	"time"

	"go.uber.org/zap"

	"evo_chat_server/internal/dao/db/repository"
	myredis "evo_chat_server/internal/dao/redis"
	"evo_chat_server/pkg/constants"
)

// PresenceRecorder persists gateway presence transitions: the users row synchronously, the
// redis online set through the cache worker pool.
type PresenceRecorder struct {
	repos  *repository.Repositories
	cache  myredis.AsyncCacheService
	mirror *myredis.PresenceMirror
}

// NewPresenceRecorder cache may be nil.
func NewPresenceRecorder(repos *repository.Repositories, cache myredis.AsyncCacheService) *PresenceRecorder {
	p := &PresenceRecorder{repos: repos, cache: cache}
	if cache != nil {
		p.mirror = myredis.NewPresenceMirror(cache)
	}
	return p
}

func (p *PresenceRecorder) SetOnline(ctx context.Context, userID int64, online bool, connectionRef string) error {
	if err := p.repos.User.SetPresence(ctx, userID, online, connectionRef, time.Now().UTC()); err != nil {
		return err
	}
	if p.cache == nil {
		return nil
	}
	// Workers may run these tasks out of order, so each one copies the row's current state
	// instead of the transition it was queued for.
	p.cache.SubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.REDIS_TIMEOUT)
		defer cancel()
		u, err := p.repos.User.FindByID(ctx, userID)
		if err != nil {
			zap.L().Warn("reload presence for mirror", zap.Int64("user_id", userID), zap.Error(err))
			return
		}
		if err := p.mirror.Set(ctx, userID, u.IsOnline); err != nil {
			zap.L().Warn("mirror presence", zap.Int64("user_id", userID), zap.Error(err))
		}
	})
	return nil
}
