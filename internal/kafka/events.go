package kafka

import "time"

// PaymentSettledEvent is published when an invoice settles.
type PaymentSettledEvent struct {
	InvoiceID string    `json:"invoice_id"`
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"`
	SettledAt time.Time `json:"settled_at"`
}

// EntitlementChangedEvent is published after any entitlement mutation,
// whether from a settlement or an admin override.
type EntitlementChangedEvent struct {
	AccountID string     `json:"account_id"`
	Action    string     `json:"action"`
	Tag       string     `json:"tag,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	At        time.Time  `json:"at"`
}
