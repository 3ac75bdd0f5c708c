package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ai-linebot-go/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimiter interface for per-sender admission control
type RateLimiter interface {
	Allow(senderID string) bool
	Reset(senderID string)
}

// NewRateLimiter creates a rate limiter from configuration. The memory
// backend is the default; the redis backend shares the window across
// instances.
func NewRateLimiter(cfg *config.Config, logger *logrus.Logger) (RateLimiter, error) {
	if !cfg.RateLimit.Enabled {
		return &noopLimiter{}, nil
	}

	switch cfg.RateLimit.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return NewRedisWindowLimiter(client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger), nil
	case "memory":
		return NewSlidingWindowLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.RateLimit.Backend)
	}
}

type noopLimiter struct{}

func (noopLimiter) Allow(string) bool { return true }
func (noopLimiter) Reset(string)      {}

// SlidingWindowLimiter admits at most maxRequests per sender within a
// trailing window. Every check first discards timestamps that aged out, then
// compares the retained count to the cap; on admission the current time is
// recorded. The check and the record happen under one lock, so two events
// from the same sender cannot both slip past the cap.
type SlidingWindowLimiter struct {
	mu          sync.Mutex
	windows     map[string][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
	logger      *logrus.Logger
}

// NewSlidingWindowLimiter creates an in-memory sliding window limiter.
func NewSlidingWindowLimiter(maxRequests int, window time.Duration, logger *logrus.Logger) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:     make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		logger:      logger,
	}
}

// Allow checks whether a sender may make a request and records it if so.
func (r *SlidingWindowLimiter) Allow(senderID string) bool {
	now := r.now()
	cutoff := now.Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	recent := r.windows[senderID][:0]
	for _, ts := range r.windows[senderID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= r.maxRequests {
		r.windows[senderID] = recent
		r.logger.WithField("sender_id", senderID).Warn("Rate limit exceeded")
		return false
	}

	r.windows[senderID] = append(recent, now)
	return true
}

// Reset clears a sender's window.
func (r *SlidingWindowLimiter) Reset(senderID string) {
	r.mu.Lock()
	delete(r.windows, senderID)
	r.mu.Unlock()
}

// SetClock overrides the time source. Tests only.
func (r *SlidingWindowLimiter) SetClock(now func() time.Time) {
	r.now = now
}

// RedisWindowLimiter keeps each sender's window in a redis sorted set scored
// by unix nanoseconds. Entries older than the window are trimmed on every
// check, mirroring the memory backend's semantics.
type RedisWindowLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
	logger      *logrus.Logger
}

// NewRedisWindowLimiter creates a redis-backed sliding window limiter.
func NewRedisWindowLimiter(client *redis.Client, maxRequests int, window time.Duration, logger *logrus.Logger) *RedisWindowLimiter {
	return &RedisWindowLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		logger:      logger,
	}
}

// Allow checks whether a sender may make a request and records it if so.
// Redis failures fail open: denial must never come from infrastructure.
func (r *RedisWindowLimiter) Allow(senderID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := "ratelimit:" + senderID
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-r.window).UnixNano(), 10)

	if err := r.client.ZRemRangeByScore(ctx, key, "-inf", cutoff).Err(); err != nil {
		r.logger.WithError(err).Warn("Rate limit trim failed, allowing request")
		return true
	}

	count, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		r.logger.WithError(err).Warn("Rate limit count failed, allowing request")
		return true
	}
	if count >= int64(r.maxRequests) {
		r.logger.WithField("sender_id", senderID).Warn("Rate limit exceeded")
		return false
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WithError(err).Warn("Rate limit record failed")
	}
	return true
}

// Reset clears a sender's window.
func (r *RedisWindowLimiter) Reset(senderID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Del(ctx, "ratelimit:"+senderID).Err(); err != nil {
		r.logger.WithError(err).Warn("Rate limit reset failed")
	}
}
