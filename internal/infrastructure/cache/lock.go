package cache

import (
	"context"
	"log/slog"
	"time"

	"assetloan-backend/pkg/id"

	"github.com/redis/go-redis/v9"
)

const SweepLockKey = "reminder:sweep:lock"

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken over is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// SweepLock is a SETNX lock that keeps reminder sweeps single-flight across
// instances. The TTL bounds how long a crashed holder blocks others.
type SweepLock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewSweepLock(rdb *redis.Client, ttl time.Duration) *SweepLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SweepLock{rdb: rdb, key: SweepLockKey, ttl: ttl}
}

func (l *SweepLock) TryLock(ctx context.Context) (func(), bool, error) {
	token := id.NewUUID()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func() {
		if err := releaseScript.Run(context.Background(), l.rdb, []string{l.key}, token).Err(); err != nil {
			slog.Warn("release sweep lock failed", "key", l.key, "error", err)
		}
	}
	return unlock, true, nil
}
