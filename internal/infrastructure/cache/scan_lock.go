package cache

import (
	"context"
	"time"

	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
)

// ================================================
// SCAN LOCK (REDIS)
// ================================================
// Grounded on RedisCache's existing SetNX helper; a bare SET NX EX is the
// whole cross-instance coordination the Scanner needs for its health-check
// run.

type redisScanLock struct {
	cache *RedisCache
}

func NewRedisScanLock(cache *RedisCache) service.ScanLock {
	return &redisScanLock{cache: cache}
}

func (l *redisScanLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.cache.SetNX(ctx, key, "1", ttl)
}
