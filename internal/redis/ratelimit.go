package redis

import (
	"context"
	"fmt"
	"time"

	"convolab/config"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{ip}:ask  - prompts relayed per window
// - ratelimit:{ip}:auth - signup/login attempts per window

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool          // Whether the action is allowed
	Remaining int           // Remaining actions in the window
	ResetIn   time.Duration // Time until the window resets
	Limit     int           // The limit for this action
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client goredis.Scripter
	config config.RateLimitConfig
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client goredis.Scripter, cfg config.RateLimitConfig) *RateLimiter {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = time.Minute
	}
	return &RateLimiter{
		client: client,
		config: cfg,
	}
}

// AllowAsk checks if an IP can relay another prompt
func (r *RateLimiter) AllowAsk(ctx context.Context, ip string) (*RateLimitResult, error) {
	return r.checkLimit(ctx, AskKey(ip), r.config.AskLimit, r.config.WindowSize)
}

// AllowAuth checks if an IP can make an auth attempt
func (r *RateLimiter) AllowAuth(ctx context.Context, ip string) (*RateLimitResult, error) {
	return r.checkLimit(ctx, AuthKey(ip), r.config.AuthLimit, r.config.WindowSize)
}

func AskKey(ip string) string  { return fmt.Sprintf("ratelimit:%s:ask", ip) }
func AuthKey(ip string) string { return fmt.Sprintf("ratelimit:%s:auth", ip) }

// fixedWindow increments the counter while it is under the limit and starts
// the expiry on the first hit. Returns {allowed, remaining, ttl}.
var fixedWindow = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := fixedWindow.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	return parseLimitResult(result, limit)
}

func parseLimitResult(result interface{}, limit int) (*RateLimitResult, error) {
	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	allowed, ok1 := resultSlice[0].(int64)
	remaining, ok2 := resultSlice[1].(int64)
	resetIn, ok3 := resultSlice[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("unexpected rate limit result types")
	}

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetIn:   time.Duration(resetIn) * time.Second,
		Limit:     limit,
	}, nil
}
