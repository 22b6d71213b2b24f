package service

import (
	"context"
	"sync"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/internal/entitlement"
	"github.com/ankhbayar/entitlement-service/internal/integration/qpay"
	"github.com/google/uuid"
)

// fakeAccountRepo is an in-memory AccountRepository mirroring the
// atomic semantics of the PostgreSQL implementation.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
}

func newFakeAccountRepo(accounts ...*domain.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
	for _, acc := range accounts {
		r.accounts[acc.ID] = acc
	}
	return r
}

func (r *fakeAccountRepo) get(id uuid.UUID) (*domain.Account, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return nil, domain.NewNotFoundError("account", id.String())
	}
	return acc, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, err := r.get(id)
	if err != nil {
		return nil, err
	}
	clone := *acc
	return &clone, nil
}

func (r *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acc := range r.accounts {
		if acc.Email == email {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, domain.NewNotFoundError("account", email)
}

func (r *fakeAccountRepo) Create(ctx context.Context, acc *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	r.accounts[acc.ID] = acc
	return nil
}

func (r *fakeAccountRepo) GrantEntitlement(ctx context.Context, id uuid.UUID, tag string, expiresAt, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, err := r.get(id)
	if err != nil {
		return nil, err
	}
	acc.EntitlementTag = tag
	if acc.EntitlementGrantedAt == nil {
		granted := now
		acc.EntitlementGrantedAt = &granted
	}
	expiry := expiresAt
	acc.EntitlementExpiresAt = &expiry
	acc.UpdatedAt = now
	clone := *acc
	return &clone, nil
}

func (r *fakeAccountRepo) ExtendEntitlement(ctx context.Context, id uuid.UUID, days int, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if acc.EntitlementExpiresAt == nil {
		return nil, domain.ErrNoActiveEntitlement
	}
	expiry := acc.EntitlementExpiresAt.AddDate(0, 0, days)
	acc.EntitlementExpiresAt = &expiry
	acc.UpdatedAt = now
	clone := *acc
	return &clone, nil
}

func (r *fakeAccountRepo) CreditEntitlement(ctx context.Context, id uuid.UUID, tag string, days int, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, err := r.get(id)
	if err != nil {
		return nil, err
	}
	acc.EntitlementTag = tag
	if acc.EntitlementGrantedAt == nil {
		granted := now
		acc.EntitlementGrantedAt = &granted
	}
	expiry := entitlement.ExtendFrom(acc.EntitlementExpiresAt, now, days)
	acc.EntitlementExpiresAt = &expiry
	acc.UpdatedAt = now
	clone := *acc
	return &clone, nil
}

func (r *fakeAccountRepo) RevokeEntitlement(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, err := r.get(id)
	if err != nil {
		return nil, err
	}
	acc.EntitlementTag = ""
	acc.EntitlementExpiresAt = nil
	clone := *acc
	return &clone, nil
}

// fakePaymentRepo is an in-memory PaymentRepository with the same
// single-winner MarkPaid semantics as the PostgreSQL implementation.
type fakePaymentRepo struct {
	mu      sync.Mutex
	records map[string]*domain.PaymentRecord
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{records: make(map[string]*domain.PaymentRecord)}
}

func (r *fakePaymentRepo) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.InvoiceID]; ok {
		return domain.ErrDuplicate
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	clone := *rec
	r.records[rec.InvoiceID] = &clone
	return nil
}

func (r *fakePaymentRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[invoiceID]
	if !ok {
		return nil, domain.NewNotFoundError("payment", invoiceID)
	}
	clone := *rec
	return &clone, nil
}

func (r *fakePaymentRepo) MarkPaid(ctx context.Context, invoiceID string, settledAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[invoiceID]
	if !ok || rec.Status != domain.PaymentStatusPending {
		return false, nil
	}
	rec.Status = domain.PaymentStatusPaid
	settled := settledAt
	rec.SettledAt = &settled
	return true, nil
}

func (r *fakePaymentRepo) MarkFailed(ctx context.Context, invoiceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[invoiceID]; ok && rec.Status == domain.PaymentStatusPending {
		rec.Status = domain.PaymentStatusFailed
	}
	return nil
}

func (r *fakePaymentRepo) ListPendingSince(ctx context.Context, cutoff time.Time) ([]domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PaymentRecord
	for _, rec := range r.records {
		if rec.Status == domain.PaymentStatusPending && !rec.CreatedAt.Before(cutoff) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// fakeContentRepo is an in-memory ContentRepository.
type fakeContentRepo struct {
	items []domain.ContentItem
}

func (r *fakeContentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	for _, item := range r.items {
		if item.ID == id {
			clone := item
			return &clone, nil
		}
	}
	return nil, domain.NewNotFoundError("content", id.String())
}

func (r *fakeContentRepo) List(ctx context.Context, includeMembers bool) ([]domain.ContentItem, error) {
	var out []domain.ContentItem
	for _, item := range r.items {
		if item.Tier == domain.ContentTierOpen || includeMembers {
			out = append(out, item)
		}
	}
	return out, nil
}

// fakeGateway scripts gateway behavior per call.
type fakeGateway struct {
	mu          sync.Mutex
	invoiceSeq  int
	createErr   error
	checkErr    error
	checkScript []bool // settled answer per CheckPayment call, last repeats
	createCalls int
	checkCalls  int
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, params qpay.CreateInvoiceParams) (*qpay.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.invoiceSeq++
	return &qpay.Invoice{
		InvoiceID: uuid.NewString(),
		QRText:    "qr-text",
		QRImage:   "qr-image",
		URLs:      []qpay.DeepLink{{Name: "Bank", Link: "bank://pay"}},
	}, nil
}

func (g *fakeGateway) CheckPayment(ctx context.Context, invoiceID string) (*qpay.PaymentCheck, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkCalls++
	if g.checkErr != nil {
		return nil, g.checkErr
	}

	settled := false
	if n := len(g.checkScript); n > 0 {
		idx := g.checkCalls - 1
		if idx >= n {
			idx = n - 1
		}
		settled = g.checkScript[idx]
	}
	if !settled {
		return &qpay.PaymentCheck{}, nil
	}
	return &qpay.PaymentCheck{Count: 1, Rows: []qpay.PaymentRow{{PaymentStatus: "PAID"}}}, nil
}
