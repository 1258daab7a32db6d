package redis

import (
	"context"
	"sort"
	"strconv"
	"time"

	"evo_chat_server/pkg/constants"
)

// PresenceMirror online user set for readers on any node. It is written on the cluster-wide
// edges PresenceLedger reports, so a user leaves it only once no node holds a connection.
type PresenceMirror struct {
	cache CacheService
}

func NewPresenceMirror(cache CacheService) *PresenceMirror {
	return &PresenceMirror{cache: cache}
}

func (p *PresenceMirror) Set(ctx context.Context, userID int64, online bool) error {
	ctx, cancel := context.WithTimeout(ctx, constants.REDIS_TIMEOUT)
	defer cancel()
	member := strconv.FormatInt(userID, 10)
	if online {
		return p.cache.AddToSet(ctx, constants.PRESENCE_SET_KEY, member)
	}
	return p.cache.RemoveFromSet(ctx, constants.PRESENCE_SET_KEY, member)
}

// OnlineIDs ascending ids currently marked online.
func (p *PresenceMirror) OnlineIDs(ctx context.Context) ([]int64, error) {
	members, err := p.cache.GetSetMembers(ctx, constants.PRESENCE_SET_KEY)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// TokenRegistry live refresh-token ids per user; logout and rotation revoke them.
type TokenRegistry struct {
	cache CacheService
}

func NewTokenRegistry(cache CacheService) *TokenRegistry {
	return &TokenRegistry{cache: cache}
}

func tokenKey(userID int64) string {
	return constants.REFRESH_TOKEN_KEY + strconv.FormatInt(userID, 10)
}

func (t *TokenRegistry) Register(ctx context.Context, userID int64, tokenID string, ttl time.Duration) error {
	key := tokenKey(userID)
	if err := t.cache.AddToSet(ctx, key, tokenID); err != nil {
		return err
	}
	return t.cache.Expire(ctx, key, ttl)
}

func (t *TokenRegistry) Valid(ctx context.Context, userID int64, tokenID string) (bool, error) {
	return t.cache.IsSetMember(ctx, tokenKey(userID), tokenID)
}

func (t *TokenRegistry) Revoke(ctx context.Context, userID int64, tokenID string) error {
	return t.cache.RemoveFromSet(ctx, tokenKey(userID), tokenID)
}
