package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContentTier is the visibility tier of a piece of content.
type ContentTier string

const (
	// ContentTierOpen is visible to anyone, including anonymous callers.
	ContentTierOpen ContentTier = "open"
	// ContentTierMembers is visible only to entitled accounts.
	ContentTierMembers ContentTier = "members"
)

// ContentItem is a gated piece of content. Authoring and the wider feed
// live elsewhere; this subsystem only enforces the tier at read time.
type ContentItem struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	Body      string      `json:"body,omitempty"`
	Tier      ContentTier `json:"tier"`
	CreatedAt time.Time   `json:"created_at"`
}

// GateDecision tells the caller whether a gated feature is reachable
// and, if not, where to route the user.
type GateDecision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
}
