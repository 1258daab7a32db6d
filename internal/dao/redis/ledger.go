package redis

import (
	"context"
	"strconv"
	"strings"

	"evo_chat_server/pkg/constants"
	"evo_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// attach and detach run as scripts: the SADD/SREM and the SCARD that decides the edge must not
// interleave with another node's call for the same user.
//
// KEYS[1] per-user ref set, KEYS[2] per-node ref set
// ARGV[1] "node/conn" member of KEYS[1], ARGV[2] "user/conn" member of KEYS[2]
var (
	attachScript = redis.NewScript(`
local added = redis.call('SADD', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[2], ARGV[2])
if added == 1 and redis.call('SCARD', KEYS[1]) == 1 then
  return 1
end
return 0
`)
	detachScript = redis.NewScript(`
local removed = redis.call('SREM', KEYS[1], ARGV[1])
redis.call('SREM', KEYS[2], ARGV[2])
if removed == 1 and redis.call('SCARD', KEYS[1]) == 0 then
  return 1
end
return 0
`)
)

// PresenceLedger cluster-wide connection refs kept in redis; the gateways of every node share it.
//
//	presence:conns:<user>  {"n1/<conn>", "n2/<conn>"}
//	presence:node:<node>   {"<user>/<conn>", ...}
//
// The node set lets a restarted node drop what its previous run left behind.
type PresenceLedger struct {
	client *redis.Client
}

func NewPresenceLedger(rc *RedisCache) *PresenceLedger {
	return &PresenceLedger{client: rc.client}
}

func connKey(userID int64) string {
	return constants.PRESENCE_CONN_KEY + strconv.FormatInt(userID, 10)
}

func nodeKey(node string) string {
	return constants.PRESENCE_NODE_KEY + node
}

func (l *PresenceLedger) Attach(ctx context.Context, node string, userID int64, connID string) (bool, error) {
	return l.run(ctx, attachScript, node, userID, connID)
}

func (l *PresenceLedger) Detach(ctx context.Context, node string, userID int64, connID string) (bool, error) {
	return l.run(ctx, detachScript, node, userID, connID)
}

func (l *PresenceLedger) run(ctx context.Context, script *redis.Script, node string, userID int64, connID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.REDIS_TIMEOUT)
	defer cancel()
	keys := []string{connKey(userID), nodeKey(node)}
	edge, err := script.Run(ctx, l.client, keys,
		node+"/"+connID, strconv.FormatInt(userID, 10)+"/"+connID).Int()
	if err != nil {
		return false, errorx.Wrapf(err, errorx.CodeCacheError, "presence ledger user %d", userID)
	}
	return edge == 1, nil
}

func (l *PresenceLedger) Online(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.REDIS_TIMEOUT)
	defer cancel()
	n, err := l.client.SCard(ctx, connKey(userID)).Result()
	if err != nil {
		return false, errorx.Wrapf(err, errorx.CodeCacheError, "redis scard key %s", connKey(userID))
	}
	return n > 0, nil
}

// Sweep detaches every ref node still owns. Users whose last ref went with it are returned.
func (l *PresenceLedger) Sweep(ctx context.Context, node string) ([]int64, error) {
	members, err := l.client.SMembers(ctx, nodeKey(node)).Result()
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis smembers key %s", nodeKey(node))
	}
	var gone []int64
	for _, m := range members {
		uidPart, connID, ok := strings.Cut(m, "/")
		if !ok {
			continue
		}
		uid, err := strconv.ParseInt(uidPart, 10, 64)
		if err != nil {
			zap.L().Warn("presence ledger: bad node member", zap.String("node", node), zap.String("member", m))
			continue
		}
		last, err := l.Detach(ctx, node, uid, connID)
		if err != nil {
			return gone, err
		}
		if last {
			gone = append(gone, uid)
		}
	}
	if err := l.client.Del(ctx, nodeKey(node)).Err(); err != nil {
		return gone, errorx.Wrap(err, errorx.CodeCacheError, "redis del node refs")
	}
	return gone, nil
}
