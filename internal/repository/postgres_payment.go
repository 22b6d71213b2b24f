package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `invoice_id, account_id, sender_code, amount, description, status, qr_text, qr_image, settled_at, created_at`

// postgresPaymentRepo implements PaymentRepository for PostgreSQL.
type postgresPaymentRepo struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresPaymentRepository creates a PostgreSQL payment repository.
func NewPostgresPaymentRepository(pool *pgxpool.Pool, log *logger.Logger) PaymentRepository {
	return &postgresPaymentRepo{pool: pool, log: log}
}

func scanPayment(row pgx.Row) (*domain.PaymentRecord, error) {
	var rec domain.PaymentRecord
	err := row.Scan(
		&rec.InvoiceID,
		&rec.AccountID,
		&rec.SenderCode,
		&rec.Amount,
		&rec.Description,
		&rec.Status,
		&rec.QRText,
		&rec.QRImage,
		&rec.SettledAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a pending payment record. Invoice ids are unique; a
// duplicate means the gateway returned an id the ledger already holds.
func (r *postgresPaymentRepo) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	rec.CreatedAt = time.Now()
	if rec.Status == "" {
		rec.Status = domain.PaymentStatusPending
	}

	query := `
        INSERT INTO payments (invoice_id, account_id, sender_code, amount, description, status, qr_text, qr_image, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rec.InvoiceID, rec.AccountID, rec.SenderCode, rec.Amount,
		rec.Description, rec.Status, rec.QRText, rec.QRImage, rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		r.log.Errorw("Failed to create payment record", "error", err, "invoiceID", rec.InvoiceID)
		return fmt.Errorf("repository: failed to create payment record: %w", err)
	}

	r.log.Debugw("Payment record created", "invoiceID", rec.InvoiceID, "accountID", rec.AccountID, "amount", rec.Amount)
	return nil
}

// GetByInvoiceID returns a payment record by its invoice id.
func (r *postgresPaymentRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1`

	rec, err := scanPayment(r.pool.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("payment", invoiceID)
		}
		r.log.Errorw("Failed to get payment record", "error", err, "invoiceID", invoiceID)
		return nil, fmt.Errorf("repository: failed to get payment record: %w", err)
	}
	return rec, nil
}

// MarkPaid flips pending -> paid. The status guard in the WHERE clause
// makes the transition single-winner under concurrent settles.
func (r *postgresPaymentRepo) MarkPaid(ctx context.Context, invoiceID string, settledAt time.Time) (bool, error) {
	query := `
        UPDATE payments
        SET status = $2, settled_at = $3
        WHERE invoice_id = $1 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, invoiceID, domain.PaymentStatusPaid, settledAt, domain.PaymentStatusPending)
	if err != nil {
		r.log.Errorw("Failed to mark payment paid", "error", err, "invoiceID", invoiceID)
		return false, fmt.Errorf("repository: failed to mark payment paid: %w", err)
	}

	won := tag.RowsAffected() == 1
	if won {
		r.log.Infow("Payment marked paid", "invoiceID", invoiceID, "settledAt", settledAt)
	}
	return won, nil
}

// MarkFailed flips pending -> failed.
func (r *postgresPaymentRepo) MarkFailed(ctx context.Context, invoiceID string) error {
	query := `
        UPDATE payments
        SET status = $2
        WHERE invoice_id = $1 AND status = $3`

	_, err := r.pool.Exec(ctx, query, invoiceID, domain.PaymentStatusFailed, domain.PaymentStatusPending)
	if err != nil {
		r.log.Errorw("Failed to mark payment failed", "error", err, "invoiceID", invoiceID)
		return fmt.Errorf("repository: failed to mark payment failed: %w", err)
	}
	return nil
}

// ListPendingSince returns pending records created after cutoff.
func (r *postgresPaymentRepo) ListPendingSince(ctx context.Context, cutoff time.Time) ([]domain.PaymentRecord, error) {
	query := `
        SELECT ` + paymentColumns + `
        FROM payments
        WHERE status = $1 AND created_at >= $2
        ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, domain.PaymentStatusPending, cutoff)
	if err != nil {
		r.log.Errorw("Failed to list pending payments", "error", err)
		return nil, fmt.Errorf("repository: failed to list pending payments: %w", err)
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan payment record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed to iterate pending payments: %w", err)
	}
	return records, nil
}
