package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresContentRepo implements ContentRepository for PostgreSQL.
type postgresContentRepo struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresContentRepository creates a PostgreSQL content repository.
func NewPostgresContentRepository(pool *pgxpool.Pool, log *logger.Logger) ContentRepository {
	return &postgresContentRepo{pool: pool, log: log}
}

// GetByID returns a content item regardless of tier; the access gate
// decides whether the caller may see it.
func (r *postgresContentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	query := `SELECT id, title, body, tier, created_at FROM content WHERE id = $1`

	var item domain.ContentItem
	err := r.pool.QueryRow(ctx, query, id).Scan(&item.ID, &item.Title, &item.Body, &item.Tier, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("content", id.String())
		}
		r.log.Errorw("Failed to get content item", "error", err, "contentID", id)
		return nil, fmt.Errorf("repository: failed to get content item: %w", err)
	}
	return &item, nil
}

// List returns content visible at the given tier, newest first. Bodies
// of members-only items are withheld from the listing query entirely
// when includeMembers is false.
func (r *postgresContentRepo) List(ctx context.Context, includeMembers bool) ([]domain.ContentItem, error) {
	query := `
        SELECT id, title, body, tier, created_at
        FROM content
        WHERE tier = $1 OR $2
        ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, domain.ContentTierOpen, includeMembers)
	if err != nil {
		r.log.Errorw("Failed to list content", "error", err)
		return nil, fmt.Errorf("repository: failed to list content: %w", err)
	}
	defer rows.Close()

	var items []domain.ContentItem
	for rows.Next() {
		var item domain.ContentItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Body, &item.Tier, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan content item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed to iterate content: %w", err)
	}
	return items, nil
}
