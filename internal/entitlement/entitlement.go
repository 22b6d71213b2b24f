// Package entitlement derives entitlement state from an account
// snapshot and a point in time. It is the only place the expiry
// comparison is written; every other component asks here.
package entitlement

import (
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
)

// IsEntitled reports whether the account may access gated content at
// the given instant. A non-empty tag with a past expiry counts as not
// entitled; the stored tag is not consulted as a source of truth on
// its own.
func IsEntitled(acc *domain.Account, now time.Time) bool {
	if acc == nil || acc.EntitlementTag == "" {
		return false
	}
	if acc.EntitlementExpiresAt == nil {
		return true
	}
	return !acc.EntitlementExpiresAt.Before(now)
}

// RemainingDays returns the number of whole-or-partial days until the
// entitlement lapses, or nil when no expiry is set.
func RemainingDays(acc *domain.Account, now time.Time) *int {
	if acc == nil || acc.EntitlementExpiresAt == nil {
		return nil
	}
	d := acc.EntitlementExpiresAt.Sub(now)
	days := int((d + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	return &days
}

// ExtendFrom computes the expiry after purchasing days more. The new
// window starts from the later of now and the current expiry, so an
// early renewal never costs the purchaser entitled days.
func ExtendFrom(current *time.Time, now time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}

// Snapshot builds the status view served by GET /entitlement/status.
func Snapshot(acc *domain.Account, now time.Time) domain.EntitlementStatus {
	if acc == nil {
		return domain.EntitlementStatus{}
	}
	return domain.EntitlementStatus{
		Entitled:      IsEntitled(acc, now),
		Tag:           acc.EntitlementTag,
		JoinedAt:      acc.EntitlementGrantedAt,
		ExpiresAt:     acc.EntitlementExpiresAt,
		RemainingDays: RemainingDays(acc, now),
	}
}
