// Package ratelimit provides best-effort request rate limiting. It is an
// auxiliary guard only: replay and double-spend protection live in the durable
// session state machine, never here.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Limiter answers whether one more request under key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Nop allows everything. Used when no Redis is configured.
type Nop struct{}

func (Nop) Allow(ctx context.Context, key string) bool { return true }

// Redis is a fixed-window counter over a shared Redis. Fails open: if Redis is
// unreachable the request is allowed, since the limiter is best-effort.
type Redis struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	log    *logrus.Entry
}

// NewRedis returns a limiter allowing limit requests per window per key.
func NewRedis(rdb *redis.Client, limit int, window time.Duration, log *logrus.Entry) *Redis {
	return &Redis{rdb: rdb, limit: limit, window: window, log: log}
}

func (r *Redis) Allow(ctx context.Context, key string) bool {
	if r.rdb == nil || r.limit <= 0 {
		return true
	}
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(r.window.Seconds()))
	n, err := r.rdb.Incr(ctx, bucket).Result()
	if err != nil {
		r.log.WithError(err).Warn("rate limiter redis error, allowing")
		return true
	}
	if n == 1 {
		r.rdb.Expire(ctx, bucket, r.window)
	}
	return n <= int64(r.limit)
}
