// Package redis wraps go-redis for the shared state that spans nodes: the presence ledger,
// the online-user mirror and the refresh-token registry.
package redis

import (
	"context"
	"strconv"
	"time"

	"evo_chat_server/internal/config"
	"evo_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
)

// Init connects to redis, checks the connection and starts the async worker pool.
func Init(conf config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Host + ":" + strconv.Itoa(conf.Port),
		Password:     conf.Password,
		DB:           conf.Db,
		PoolSize:     50,
		MinIdleConns: conf.Workers,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errorx.Wrap(err, errorx.CodeCacheError, "redis ping")
	}
	return NewRedisCache(client, conf.Workers, conf.Buffer), nil
}
