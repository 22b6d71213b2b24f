package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a platform account together with its entitlement state.
// An empty EntitlementTag means the account has never been entitled (or
// was revoked); a non-empty tag with a past expiry is treated as not
// entitled without clearing the tag, which stays as a historical marker.
type Account struct {
	ID                   uuid.UUID  `json:"id"`
	Email                string     `json:"email"`
	EntitlementTag       string     `json:"entitlement_tag,omitempty"`
	EntitlementGrantedAt *time.Time `json:"entitlement_granted_at,omitempty"`
	EntitlementExpiresAt *time.Time `json:"entitlement_expires_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// EntitlementStatus is the snapshot returned by the status endpoint and
// by admin mutations.
type EntitlementStatus struct {
	Entitled      bool       `json:"entitled"`
	Tag           string     `json:"tag,omitempty"`
	JoinedAt      *time.Time `json:"joined_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	RemainingDays *int       `json:"remaining_days,omitempty"`
}

// AdminAction is the verb of an admin entitlement mutation.
type AdminAction string

const (
	AdminActionGrant  AdminAction = "grant"
	AdminActionExtend AdminAction = "extend"
	AdminActionRevoke AdminAction = "revoke"
)

// AdminActionRequest is the body of PATCH /admin/accounts/:id.
type AdminActionRequest struct {
	Action AdminAction `json:"action" binding:"required,oneof=grant extend revoke"`
	Days   int         `json:"days" binding:"omitempty,gt=0"`
}
