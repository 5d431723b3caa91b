package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const retryInterval = 25 * time.Millisecond

// releaseScript deletes the key only while it still carries our token, so an
// expired lease never frees a lock someone else obtained since.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker holds keys with SET NX PX so replicas sharing one Redis
// serialise on the same key.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl, wait time.Duration) (Lease, error) {
	key = l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &redisLease{rdb: l.rdb, key: key, token: token}, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, ErrNotObtained
		}
		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type redisLease struct {
	rdb   *redis.Client
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
