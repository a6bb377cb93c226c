package cache

import (
	"context"
	"errors"
	"time"

	"chatboard/pkg/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const delBatchSize = 100

// Redis caches post lists in protobuf wire format.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

func New(client *redis.Client, log *zap.Logger) *Redis {
	return &Redis{client: client, log: log.Named("cache")}
}

// GetPosts reports a miss for absent keys, redis failures and
// undecodable values alike.
func (r *Redis) GetPosts(ctx context.Context, key string) ([]models.Post, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	posts, err := models.UnmarshalPosts(val)
	if err != nil {
		r.log.Warn("dropping undecodable entry", zap.String("key", key), zap.Error(err))
		r.client.Del(ctx, key)
		return nil, false
	}
	return posts, true
}

func (r *Redis) SetPosts(ctx context.Context, key string, posts []models.Post, ttl time.Duration) {
	if err := r.client.Set(ctx, key, models.MarshalPosts(posts), ttl).Err(); err != nil {
		r.log.Warn("set failed", zap.String("key", key), zap.Error(err))
	}
}

// DelPattern deletes keys matching pattern, scanning and deleting in batches.
func (r *Redis) DelPattern(ctx context.Context, pattern string) {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	pipe := r.client.Pipeline()
	count := 0

	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= delBatchSize {
			if _, err := pipe.Exec(ctx); err != nil {
				r.log.Warn("batch delete failed", zap.String("pattern", pattern), zap.Error(err))
			}
			count = 0
		}
	}
	if err := iter.Err(); err != nil {
		r.log.Warn("scan failed", zap.String("pattern", pattern), zap.Error(err))
	}
	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			r.log.Warn("batch delete failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
