package repository

import (
	"context"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/google/uuid"
)

// CachedAccountRepository wraps an AccountRepository with cache-aside
// reads. Every entitlement mutation writes through to the database and
// invalidates the cached snapshot, so the access gate never sees a
// stale entitlement for longer than one missed invalidation TTL.
type CachedAccountRepository struct {
	repo  AccountRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedAccountRepository creates an account repository with caching.
func NewCachedAccountRepository(repo AccountRepository, cache *RedisCacheRepository, log *logger.Logger) AccountRepository {
	return &CachedAccountRepository{repo: repo, cache: cache, log: log}
}

// GetByID reads from cache first, falling back to the database.
func (r *CachedAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	cached, err := r.cache.GetCachedAccount(ctx, id)
	if err != nil {
		// Cache trouble is never a reason to fail the read.
		r.log.Warnw("Error reading account from cache", "error", err, "accountID", id)
	}
	if cached != nil {
		r.log.Debugw("Account found in cache", "accountID", id)
		return cached, nil
	}

	acc, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheAccount(ctx, acc); err != nil {
		r.log.Warnw("Failed to cache account after fetch", "error", err, "accountID", id)
	}
	return acc, nil
}

// GetByEmail is not cached; it only serves signup and admin lookups.
func (r *CachedAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.repo.GetByEmail(ctx, email)
}

// Create inserts the account and primes the cache.
func (r *CachedAccountRepository) Create(ctx context.Context, acc *domain.Account) error {
	if err := r.repo.Create(ctx, acc); err != nil {
		return err
	}
	if err := r.cache.CacheAccount(ctx, acc); err != nil {
		r.log.Warnw("Failed to cache account after creation", "error", err, "accountID", acc.ID)
	}
	return nil
}

func (r *CachedAccountRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if err := r.cache.InvalidateAccount(ctx, id); err != nil {
		r.log.Warnw("Failed to invalidate account cache after mutation", "error", err, "accountID", id)
	}
}

// GrantEntitlement writes through and invalidates.
func (r *CachedAccountRepository) GrantEntitlement(ctx context.Context, id uuid.UUID, tag string, expiresAt, now time.Time) (*domain.Account, error) {
	acc, err := r.repo.GrantEntitlement(ctx, id, tag, expiresAt, now)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return acc, nil
}

// ExtendEntitlement writes through and invalidates.
func (r *CachedAccountRepository) ExtendEntitlement(ctx context.Context, id uuid.UUID, days int, now time.Time) (*domain.Account, error) {
	acc, err := r.repo.ExtendEntitlement(ctx, id, days, now)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return acc, nil
}

// CreditEntitlement writes through and invalidates.
func (r *CachedAccountRepository) CreditEntitlement(ctx context.Context, id uuid.UUID, tag string, days int, now time.Time) (*domain.Account, error) {
	acc, err := r.repo.CreditEntitlement(ctx, id, tag, days, now)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return acc, nil
}

// RevokeEntitlement writes through and invalidates.
func (r *CachedAccountRepository) RevokeEntitlement(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := r.repo.RevokeEntitlement(ctx, id)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return acc, nil
}
