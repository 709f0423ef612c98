package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter : compteur par fenêtre fixe (INCR + EXPIRE dans une transaction).
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow incrémente le compteur de key et indique si la requête passe.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	k := "rl:" + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("redis: rate limit: %w", err)
	}
	n := incr.Val()
	return n <= l.limit, n, nil
}

func (l *RateLimiter) Limit() int64 { return l.limit }

func (l *RateLimiter) Window() time.Duration { return l.window }
