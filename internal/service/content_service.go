package service

import (
	"context"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/internal/entitlement"
	"github.com/ankhbayar/entitlement-service/internal/repository"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/google/uuid"
)

// Routes the gate sends ineligible callers to.
const (
	RedirectSignIn   = "/signin"
	RedirectPurchase = "/purchase"
)

// ContentService is the access gate: it enforces visibility tiers at
// the read boundary and routes non-entitled callers. The viewer id is
// uuid.Nil for anonymous callers. Entitlement is re-resolved on every
// call; nothing is cached across requests beyond the account
// repository's own short-lived cache.
type ContentService interface {
	// List returns the content visible to the viewer. Members-only
	// items are silently filtered out for ineligible viewers, never
	// surfaced as errors.
	List(ctx context.Context, viewerID uuid.UUID) ([]domain.ContentItem, error)

	// Get returns a single item. Members-only content read by an
	// ineligible viewer is denied with ErrForbidden.
	Get(ctx context.Context, viewerID uuid.UUID, contentID uuid.UUID) (*domain.ContentItem, error)

	// Gate decides whether the viewer may enter the members-only area
	// and where to route them otherwise.
	Gate(ctx context.Context, viewerID uuid.UUID) (domain.GateDecision, error)
}

type contentService struct {
	contentRepo repository.ContentRepository
	accountRepo repository.AccountRepository
	log         *logger.Logger
	now         func() time.Time
}

// NewContentService creates the access gate service.
func NewContentService(contentRepo repository.ContentRepository, accountRepo repository.AccountRepository, log *logger.Logger) ContentService {
	return &contentService{
		contentRepo: contentRepo,
		accountRepo: accountRepo,
		log:         log,
		now:         time.Now,
	}
}

// viewerEntitled resolves the viewer's entitlement fresh for this
// request. An unknown viewer id degrades to anonymous rather than
// failing the read.
func (s *contentService) viewerEntitled(ctx context.Context, viewerID uuid.UUID) (bool, error) {
	if viewerID == uuid.Nil {
		return false, nil
	}
	acc, err := s.accountRepo.GetByID(ctx, viewerID)
	if err != nil {
		return false, err
	}
	return entitlement.IsEntitled(acc, s.now()), nil
}

// List returns the content visible to the viewer.
func (s *contentService) List(ctx context.Context, viewerID uuid.UUID) ([]domain.ContentItem, error) {
	entitled, err := s.viewerEntitled(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.contentRepo.List(ctx, entitled)
}

// Get returns a single content item, enforcing its tier.
func (s *contentService) Get(ctx context.Context, viewerID uuid.UUID, contentID uuid.UUID) (*domain.ContentItem, error) {
	item, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}

	if item.Tier == domain.ContentTierMembers {
		entitled, err := s.viewerEntitled(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		if !entitled {
			s.log.Debugw("Members content denied", "contentID", contentID, "viewerID", viewerID)
			return nil, domain.ErrForbidden
		}
	}
	return item, nil
}

// Gate decides whether the viewer may enter the members-only area.
func (s *contentService) Gate(ctx context.Context, viewerID uuid.UUID) (domain.GateDecision, error) {
	if viewerID == uuid.Nil {
		return domain.GateDecision{Redirect: RedirectSignIn}, nil
	}

	entitled, err := s.viewerEntitled(ctx, viewerID)
	if err != nil {
		return domain.GateDecision{}, err
	}
	if !entitled {
		return domain.GateDecision{Redirect: RedirectPurchase}, nil
	}
	return domain.GateDecision{Allow: true}, nil
}
