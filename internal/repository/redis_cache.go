package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	accountKeyPrefix = "account:"

	// Short TTL: entitlement can change asynchronously via settlement,
	// so stale reads must age out quickly even if an invalidation is
	// missed.
	accountCacheTTL = 1 * time.Minute
)

// RedisCacheRepository caches account snapshots in Redis.
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository creates a Redis cache repository.
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{client: client, log: log}, nil
}

// Close closes the Redis connection.
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

func accountKey(id uuid.UUID) string {
	return accountKeyPrefix + id.String()
}

// CacheAccount stores an account snapshot.
func (r *RedisCacheRepository) CacheAccount(ctx context.Context, acc *domain.Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	if err := r.client.Set(ctx, accountKey(acc.ID), data, accountCacheTTL).Err(); err != nil {
		r.log.Errorw("Failed to cache account", "error", err, "accountID", acc.ID)
		return fmt.Errorf("failed to cache account: %w", err)
	}
	return nil
}

// GetCachedAccount returns a cached account, or nil on a miss.
func (r *RedisCacheRepository) GetCachedAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	data, err := r.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached account: %w", err)
	}

	var acc domain.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached account: %w", err)
	}
	return &acc, nil
}

// InvalidateAccount drops the cached snapshot after a mutation.
func (r *RedisCacheRepository) InvalidateAccount(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, accountKey(id)).Err(); err != nil {
		r.log.Errorw("Failed to invalidate account cache", "error", err, "accountID", id)
		return fmt.Errorf("failed to invalidate account cache: %w", err)
	}
	return nil
}
