package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, email, entitlement_tag, entitlement_granted_at, entitlement_expires_at, created_at, updated_at`

// postgresAccountRepo implements AccountRepository for PostgreSQL.
type postgresAccountRepo struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresAccountRepository creates a PostgreSQL account repository.
func NewPostgresAccountRepository(pool *pgxpool.Pool, log *logger.Logger) AccountRepository {
	return &postgresAccountRepo{pool: pool, log: log}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.EntitlementTag,
		&acc.EntitlementGrantedAt,
		&acc.EntitlementExpiresAt,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetByID returns an account by its id.
func (r *postgresAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("account", id.String())
		}
		r.log.Errorw("Failed to get account by ID", "error", err, "accountID", id)
		return nil, fmt.Errorf("repository: failed to get account: %w", err)
	}
	return acc, nil
}

// GetByEmail returns an account by its email.
func (r *postgresAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("account", email)
		}
		r.log.Errorw("Failed to get account by email", "error", err, "email", email)
		return nil, fmt.Errorf("repository: failed to get account by email: %w", err)
	}
	return acc, nil
}

// Create inserts a new account with empty entitlement.
func (r *postgresAccountRepo) Create(ctx context.Context, acc *domain.Account) error {
	now := time.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}

	query := `
        INSERT INTO accounts (id, email, entitlement_tag, created_at, updated_at)
        VALUES ($1, $2, '', $3, $4)`

	_, err := r.pool.Exec(ctx, query, acc.ID, acc.Email, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		r.log.Errorw("Failed to create account", "error", err, "email", acc.Email)
		return fmt.Errorf("repository: failed to create account: %w", err)
	}
	return nil
}

// GrantEntitlement sets the tag and an absolute expiry in one statement.
func (r *postgresAccountRepo) GrantEntitlement(ctx context.Context, id uuid.UUID, tag string, expiresAt, now time.Time) (*domain.Account, error) {
	query := `
        UPDATE accounts
        SET entitlement_tag = $2,
            entitlement_granted_at = COALESCE(entitlement_granted_at, $4),
            entitlement_expires_at = $3,
            updated_at = $4
        WHERE id = $1
        RETURNING ` + accountColumns

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, id, tag, expiresAt, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("account", id.String())
		}
		r.log.Errorw("Failed to grant entitlement", "error", err, "accountID", id)
		return nil, fmt.Errorf("repository: failed to grant entitlement: %w", err)
	}

	r.log.Infow("Entitlement granted", "accountID", id, "tag", tag, "expiresAt", expiresAt)
	return acc, nil
}

// ExtendEntitlement adds days on top of the stored expiry atomically;
// the addition happens in the database so a concurrent settlement
// commit cannot be lost.
func (r *postgresAccountRepo) ExtendEntitlement(ctx context.Context, id uuid.UUID, days int, now time.Time) (*domain.Account, error) {
	query := `
        UPDATE accounts
        SET entitlement_expires_at = entitlement_expires_at + make_interval(days => $2),
            updated_at = $3
        WHERE id = $1 AND entitlement_expires_at IS NOT NULL
        RETURNING ` + accountColumns

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, id, days, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing account from one with no expiry.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, domain.ErrNoActiveEntitlement
		}
		r.log.Errorw("Failed to extend entitlement", "error", err, "accountID", id)
		return nil, fmt.Errorf("repository: failed to extend entitlement: %w", err)
	}

	r.log.Infow("Entitlement extended", "accountID", id, "days", days)
	return acc, nil
}

// CreditEntitlement applies a settlement: expiry becomes
// max(now, current expiry) + days in a single statement.
func (r *postgresAccountRepo) CreditEntitlement(ctx context.Context, id uuid.UUID, tag string, days int, now time.Time) (*domain.Account, error) {
	query := `
        UPDATE accounts
        SET entitlement_tag = $2,
            entitlement_granted_at = COALESCE(entitlement_granted_at, $4),
            entitlement_expires_at = GREATEST(COALESCE(entitlement_expires_at, $4), $4) + make_interval(days => $3),
            updated_at = $4
        WHERE id = $1
        RETURNING ` + accountColumns

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, id, tag, days, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("account", id.String())
		}
		r.log.Errorw("Failed to credit entitlement", "error", err, "accountID", id)
		return nil, fmt.Errorf("repository: failed to credit entitlement: %w", err)
	}

	r.log.Infow("Entitlement credited", "accountID", id, "days", days, "newExpiry", acc.EntitlementExpiresAt)
	return acc, nil
}

// RevokeEntitlement clears the tag and unsets the expiry. The
// first-joined timestamp is kept as a historical marker.
func (r *postgresAccountRepo) RevokeEntitlement(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
        UPDATE accounts
        SET entitlement_tag = '',
            entitlement_expires_at = NULL,
            updated_at = now()
        WHERE id = $1
        RETURNING ` + accountColumns

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("account", id.String())
		}
		r.log.Errorw("Failed to revoke entitlement", "error", err, "accountID", id)
		return nil, fmt.Errorf("repository: failed to revoke entitlement: %w", err)
	}

	r.log.Infow("Entitlement revoked", "accountID", id)
	return acc, nil
}
