package repository

import (
	"context"
	"fmt"
	"time"

	"backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// LeaderboardCachePrefix prefixes the per-period cached leaderboard payloads
	LeaderboardCachePrefix = "leaderboard:cache:"

	// VersionKey tracks the global leaderboard version for efficient change detection
	VersionKey = "leaderboard:version"
)

// ErrCacheMiss is returned when no cached leaderboard exists for a period
var ErrCacheMiss = fmt.Errorf("leaderboard cache miss")

// RedisRepository caches rendered leaderboards per period and maintains the
// version counter the WebSocket hub polls for change detection. The database
// remains the source of truth; everything here is best-effort.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

func cacheKey(period models.PeriodType) string {
	return LeaderboardCachePrefix + string(period)
}

// GetLeaderboard returns the cached leaderboard payload for a period,
// or ErrCacheMiss if absent/expired
func (r *RedisRepository) GetLeaderboard(ctx context.Context, period models.PeriodType) ([]byte, error) {
	payload, err := r.client.Get(ctx, cacheKey(period)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return payload, nil
}

// StoreLeaderboard caches a rendered leaderboard payload with a TTL
func (r *RedisRepository) StoreLeaderboard(ctx context.Context, period models.PeriodType, payload []byte, ttl time.Duration) error {
	return r.client.Set(ctx, cacheKey(period), payload, ttl).Err()
}

// Invalidate drops all cached leaderboards and bumps the version counter.
// Called after every scoring mutation so clients learn something changed.
func (r *RedisRepository) Invalidate(ctx context.Context) error {
	pipe := r.client.Pipeline()

	pipe.Del(ctx,
		cacheKey(models.PeriodAllTime),
		cacheKey(models.PeriodWeekly),
		cacheKey(models.PeriodMonthly),
	)
	pipe.Incr(ctx, VersionKey)

	_, err := pipe.Exec(ctx)
	return err
}

// GetVersion returns the current global version number
func (r *RedisRepository) GetVersion(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, VersionKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // Version not set yet, return 0
		}
		return 0, err
	}
	return version, nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
