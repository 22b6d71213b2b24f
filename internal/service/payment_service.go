package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/internal/integration/qpay"
	"github.com/ankhbayar/entitlement-service/internal/kafka"
	"github.com/ankhbayar/entitlement-service/internal/metrics"
	"github.com/ankhbayar/entitlement-service/internal/repository"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/google/uuid"
)

// BillingPlan is the single membership product sold by the platform.
type BillingPlan struct {
	Amount       int64
	DurationDays int
	Tag          string
	Description  string
}

// OpenResult is a freshly opened purchase: the persisted record plus
// the payer-app deep links, which are returned to the caller but not
// stored.
type OpenResult struct {
	Record    *domain.PaymentRecord
	PayerApps []qpay.DeepLink
}

// PaymentService is the payment ledger: it opens purchase attempts
// against the gateway and settles them idempotently.
type PaymentService interface {
	// Open mints a gateway invoice for the account and persists a
	// pending payment record. Nothing is persisted when the gateway
	// call fails.
	Open(ctx context.Context, accountID uuid.UUID) (*OpenResult, error)

	// Settle checks one invoice against the gateway and, on confirmed
	// settlement, commits the entitlement. A record that is already
	// paid short-circuits without a gateway call; this is the primary
	// defense against double-crediting. All settlement sources (client
	// polls, the gateway callback, the background reconciler) funnel
	// through here.
	Settle(ctx context.Context, invoiceID string) (domain.SettleResult, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	accountRepo repository.AccountRepository
	gateway     qpay.Client
	producer    kafka.Producer
	metrics     metrics.BillingMetrics
	plan        BillingPlan
	log         *logger.Logger
	now         func() time.Time
}

// NewPaymentService creates the payment ledger service.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	accountRepo repository.AccountRepository,
	gateway qpay.Client,
	producer kafka.Producer,
	billingMetrics metrics.BillingMetrics,
	plan BillingPlan,
	log *logger.Logger,
) PaymentService {
	if plan.Description == "" {
		plan.Description = fmt.Sprintf("Membership, %d days", plan.DurationDays)
	}
	return &paymentService{
		paymentRepo: paymentRepo,
		accountRepo: accountRepo,
		gateway:     gateway,
		producer:    producer,
		metrics:     billingMetrics,
		plan:        plan,
		log:         log,
		now:         time.Now,
	}
}

// senderCode builds the idempotency code correlating this purchase
// attempt: account-scoped and timestamped, independent of invoice id.
func (s *paymentService) senderCode(accountID uuid.UUID) string {
	return fmt.Sprintf("%.8s-%d", accountID.String(), s.now().Unix())
}

// Open mints an invoice and records the pending purchase.
func (s *paymentService) Open(ctx context.Context, accountID uuid.UUID) (*OpenResult, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	code := s.senderCode(acc.ID)
	inv, err := s.gateway.CreateInvoice(ctx, qpay.CreateInvoiceParams{
		SenderInvoiceNo: code,
		Description:     s.plan.Description,
		Amount:          s.plan.Amount,
	})
	if err != nil {
		s.log.Errorw("Invoice creation failed, no record persisted", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("open purchase: %w", err)
	}

	rec := &domain.PaymentRecord{
		InvoiceID:   inv.InvoiceID,
		AccountID:   acc.ID,
		SenderCode:  code,
		Amount:      s.plan.Amount,
		Description: s.plan.Description,
		Status:      domain.PaymentStatusPending,
		QRText:      inv.QRText,
		QRImage:     inv.QRImage,
	}
	if err := s.paymentRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.metrics.IncInvoiceCreated()
	s.log.Infow("Purchase opened", "invoiceID", rec.InvoiceID, "accountID", acc.ID, "amount", rec.Amount)
	return &OpenResult{Record: rec, PayerApps: inv.URLs}, nil
}

// Settle performs one settlement check for the invoice.
func (s *paymentService) Settle(ctx context.Context, invoiceID string) (domain.SettleResult, error) {
	rec, err := s.paymentRepo.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return domain.SettleResult{}, err
	}

	// Idempotency short-circuit: a paid record is terminal and is
	// never re-processed, no matter how many pollers observe it.
	if rec.Status == domain.PaymentStatusPaid {
		return domain.SettleResult{Status: domain.PaymentStatusPaid, AlreadySettled: true}, nil
	}

	check, err := s.gateway.CheckPayment(ctx, invoiceID)
	if err != nil {
		s.metrics.IncCheckFailed()
		return domain.SettleResult{}, fmt.Errorf("settle %s: %w", invoiceID, err)
	}

	if !check.Settled() {
		s.log.Debugw("Invoice still pending", "invoiceID", invoiceID)
		return domain.SettleResult{Status: domain.PaymentStatusPending}, nil
	}

	now := s.now()
	won, err := s.paymentRepo.MarkPaid(ctx, invoiceID, now)
	if err != nil {
		return domain.SettleResult{}, err
	}
	if !won {
		// A concurrent settle got there first; its commit stands.
		s.log.Debugw("Settlement already claimed by a concurrent check", "invoiceID", invoiceID)
		return domain.SettleResult{Status: domain.PaymentStatusPaid, AlreadySettled: true}, nil
	}

	acc, err := s.accountRepo.CreditEntitlement(ctx, rec.AccountID, s.plan.Tag, s.plan.DurationDays, now)
	if err != nil {
		// The payment is recorded paid; the entitlement commit must be
		// retried out of band rather than re-charging the account.
		s.log.Errorw("Entitlement commit failed after settlement", "error", err, "invoiceID", invoiceID, "accountID", rec.AccountID)
		return domain.SettleResult{}, err
	}

	s.metrics.IncInvoiceSettled()
	s.metrics.ObserveSettlementLag(rec.CreatedAt, now)
	s.publishSettlement(ctx, rec, acc, now)

	s.log.Infow("Invoice settled and entitlement credited",
		"invoiceID", invoiceID, "accountID", acc.ID, "newExpiry", acc.EntitlementExpiresAt)
	return domain.SettleResult{Status: domain.PaymentStatusPaid}, nil
}

func (s *paymentService) publishSettlement(ctx context.Context, rec *domain.PaymentRecord, acc *domain.Account, at time.Time) {
	key := acc.ID.String()

	if err := s.producer.PublishEvent(ctx, kafka.TopicPaymentSettled, key, kafka.PaymentSettledEvent{
		InvoiceID: rec.InvoiceID,
		AccountID: key,
		Amount:    rec.Amount,
		SettledAt: at,
	}); err != nil {
		s.log.Warnw("Failed to publish payment settled event", "error", err, "invoiceID", rec.InvoiceID)
	}

	if err := s.producer.PublishEvent(ctx, kafka.TopicEntitlementChanged, key, kafka.EntitlementChangedEvent{
		AccountID: key,
		Action:    "settlement",
		Tag:       acc.EntitlementTag,
		ExpiresAt: acc.EntitlementExpiresAt,
		At:        at,
	}); err != nil {
		s.log.Warnw("Failed to publish entitlement changed event", "error", err, "accountID", key)
	}
}
