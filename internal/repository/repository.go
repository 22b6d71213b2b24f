package repository

import (
	"context"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository persists accounts and their entitlement state.
// Every entitlement mutation is a single atomic statement and returns
// the updated row, so concurrent writers never lose an update to a
// read-modify-write interleaving.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, acc *domain.Account) error

	// GrantEntitlement sets the tag and an absolute expiry, stamping
	// the first-joined timestamp only if absent.
	GrantEntitlement(ctx context.Context, id uuid.UUID, tag string, expiresAt, now time.Time) (*domain.Account, error)

	// ExtendEntitlement adds days on top of the stored expiry. Returns
	// ErrNoActiveEntitlement when no expiry is set.
	ExtendEntitlement(ctx context.Context, id uuid.UUID, days int, now time.Time) (*domain.Account, error)

	// CreditEntitlement is the settlement commit: expiry becomes
	// max(now, current expiry) + days, tag is set, first-joined is
	// stamped if absent.
	CreditEntitlement(ctx context.Context, id uuid.UUID, tag string, days int, now time.Time) (*domain.Account, error)

	// RevokeEntitlement clears the tag and unsets the expiry.
	RevokeEntitlement(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// PaymentRepository persists purchase attempts keyed by invoice id.
type PaymentRepository interface {
	Create(ctx context.Context, rec *domain.PaymentRecord) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.PaymentRecord, error)

	// MarkPaid flips a pending record to paid and stamps the
	// settlement time. Returns false when the record was not pending,
	// so exactly one concurrent caller wins the transition.
	MarkPaid(ctx context.Context, invoiceID string, settledAt time.Time) (bool, error)

	MarkFailed(ctx context.Context, invoiceID string) error

	// ListPendingSince returns pending records created after cutoff,
	// oldest first, for the background reconciler.
	ListPendingSince(ctx context.Context, cutoff time.Time) ([]domain.PaymentRecord, error)
}

// ContentRepository reads gated content for the access gate.
type ContentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error)

	// List returns content visible at the given tier: open items
	// always, members items only when includeMembers is set.
	List(ctx context.Context, includeMembers bool) ([]domain.ContentItem, error)
}
