package service

import (
	"context"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/internal/entitlement"
	"github.com/ankhbayar/entitlement-service/internal/kafka"
	"github.com/ankhbayar/entitlement-service/internal/metrics"
	"github.com/ankhbayar/entitlement-service/internal/repository"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/google/uuid"
)

// EntitlementService exposes the entitlement snapshot and the
// privileged admin mutations that bypass payment entirely. The admin
// capability check itself lives in the transport middleware; these
// methods assume the caller is already authorized.
type EntitlementService interface {
	// Status returns the entitlement snapshot for an account.
	Status(ctx context.Context, accountID uuid.UUID) (domain.EntitlementStatus, error)

	// Grant entitles an account that is not currently entitled for the
	// given number of days from now. A currently entitled account is
	// rejected with ErrAlreadyEntitled; the server decides the verb
	// rather than trusting the caller's view of current status.
	Grant(ctx context.Context, accountID uuid.UUID, days int) (domain.EntitlementStatus, error)

	// Extend adds days on top of the existing expiry. An account that
	// has never had an expiry is rejected with ErrNoActiveEntitlement.
	Extend(ctx context.Context, accountID uuid.UUID, days int) (domain.EntitlementStatus, error)

	// Revoke clears the tag and unsets the expiry, immediately and
	// unconditionally.
	Revoke(ctx context.Context, accountID uuid.UUID) (domain.EntitlementStatus, error)
}

type entitlementService struct {
	accountRepo repository.AccountRepository
	producer    kafka.Producer
	metrics     metrics.BillingMetrics
	tag         string
	log         *logger.Logger
	now         func() time.Time
}

// NewEntitlementService creates the entitlement service.
func NewEntitlementService(
	accountRepo repository.AccountRepository,
	producer kafka.Producer,
	billingMetrics metrics.BillingMetrics,
	tag string,
	log *logger.Logger,
) EntitlementService {
	return &entitlementService{
		accountRepo: accountRepo,
		producer:    producer,
		metrics:     billingMetrics,
		tag:         tag,
		log:         log,
		now:         time.Now,
	}
}

// Status returns the entitlement snapshot for an account.
func (s *entitlementService) Status(ctx context.Context, accountID uuid.UUID) (domain.EntitlementStatus, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.EntitlementStatus{}, err
	}
	return entitlement.Snapshot(acc, s.now()), nil
}

// Grant entitles a not-currently-entitled account for days from now.
func (s *entitlementService) Grant(ctx context.Context, accountID uuid.UUID, days int) (domain.EntitlementStatus, error) {
	if days <= 0 {
		return domain.EntitlementStatus{}, domain.ErrInvalidInput
	}

	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.EntitlementStatus{}, err
	}

	now := s.now()
	if entitlement.IsEntitled(acc, now) {
		s.log.Warnw("Grant rejected for currently entitled account", "accountID", accountID)
		return domain.EntitlementStatus{}, domain.ErrAlreadyEntitled
	}

	updated, err := s.accountRepo.GrantEntitlement(ctx, accountID, s.tag, now.AddDate(0, 0, days), now)
	if err != nil {
		return domain.EntitlementStatus{}, err
	}

	s.afterMutation(ctx, updated, "grant", now)
	return entitlement.Snapshot(updated, now), nil
}

// Extend adds days on top of the existing expiry.
func (s *entitlementService) Extend(ctx context.Context, accountID uuid.UUID, days int) (domain.EntitlementStatus, error) {
	if days <= 0 {
		return domain.EntitlementStatus{}, domain.ErrInvalidInput
	}

	now := s.now()
	updated, err := s.accountRepo.ExtendEntitlement(ctx, accountID, days, now)
	if err != nil {
		return domain.EntitlementStatus{}, err
	}

	s.afterMutation(ctx, updated, "extend", now)
	return entitlement.Snapshot(updated, now), nil
}

// Revoke clears the entitlement immediately.
func (s *entitlementService) Revoke(ctx context.Context, accountID uuid.UUID) (domain.EntitlementStatus, error) {
	now := s.now()
	updated, err := s.accountRepo.RevokeEntitlement(ctx, accountID)
	if err != nil {
		return domain.EntitlementStatus{}, err
	}

	s.afterMutation(ctx, updated, "revoke", now)
	return entitlement.Snapshot(updated, now), nil
}

func (s *entitlementService) afterMutation(ctx context.Context, acc *domain.Account, action string, at time.Time) {
	s.metrics.IncEntitlementMutation(action)
	s.log.Infow("Admin entitlement mutation applied",
		"accountID", acc.ID, "action", action, "tag", acc.EntitlementTag, "expiresAt", acc.EntitlementExpiresAt)

	if err := s.producer.PublishEvent(ctx, kafka.TopicEntitlementChanged, acc.ID.String(), kafka.EntitlementChangedEvent{
		AccountID: acc.ID.String(),
		Action:    action,
		Tag:       acc.EntitlementTag,
		ExpiresAt: acc.EntitlementExpiresAt,
		At:        at,
	}); err != nil {
		s.log.Warnw("Failed to publish entitlement changed event", "error", err, "accountID", acc.ID)
	}
}
