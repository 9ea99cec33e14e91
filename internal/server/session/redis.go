package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "inkwell:flash:"

// RedisStore keeps flash values in Redis so they survive restarts and are
// shared between server instances. Take uses GETDEL, so concurrent readers
// cannot both observe a value.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(sid, key string) string {
	return redisKeyPrefix + sid + ":" + key
}

func (s *RedisStore) Set(ctx context.Context, sid, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, redisKey(sid, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", common.ErrDependency, err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, sid, key string) (string, bool, error) {
	v, err := s.rdb.GetDel(ctx, redisKey(sid, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis getdel: %w", common.ErrDependency, err)
	}
	return v, true, nil
}
