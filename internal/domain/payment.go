package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the settlement state of a purchase attempt.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentRecord is the durable record of one purchase attempt, keyed by
// the gateway-assigned invoice id. Status transitions are one-way:
// pending -> paid or pending -> failed; paid is terminal.
type PaymentRecord struct {
	InvoiceID   string        `json:"invoice_id"`
	AccountID   uuid.UUID     `json:"account_id"`
	SenderCode  string        `json:"sender_code"`
	Amount      int64         `json:"amount"`
	Description string        `json:"description,omitempty"`
	Status      PaymentStatus `json:"status"`
	QRText      string        `json:"qr_text,omitempty"`
	QRImage     string        `json:"qr_image,omitempty"`
	SettledAt   *time.Time    `json:"settled_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// SettleResult is the outcome of one settlement check.
type SettleResult struct {
	Status PaymentStatus `json:"status"`
	// AlreadySettled is true when the record was paid before this call;
	// the caller must not credit entitlement again.
	AlreadySettled bool `json:"already_settled"`
}

// CheckPurchaseRequest is the body of POST /purchase/check.
type CheckPurchaseRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
}
