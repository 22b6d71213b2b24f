package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/internal/repository"
	"github.com/ankhbayar/entitlement-service/internal/service"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
)

// Reconciler periodically re-checks recent pending invoices against
// the gateway, catching settlements whose client poll session ended
// (closed tab, dropped callback). It is a second settlement source
// feeding the same idempotent Settle entry point, so overlapping with
// a client poll is harmless. The sweep is bounded both in cadence and
// in how old a pending record it still considers.
type Reconciler struct {
	payments repository.PaymentRepository
	settler  service.PaymentService
	interval time.Duration
	maxAge   time.Duration
	log      *logger.Logger
}

// NewReconciler creates a reconciliation worker.
func NewReconciler(
	payments repository.PaymentRepository,
	settler service.PaymentService,
	interval, maxAge time.Duration,
	log *logger.Logger,
) *Reconciler {
	return &Reconciler{
		payments: payments,
		settler:  settler,
		interval: interval,
		maxAge:   maxAge,
		log:      log,
	}
}

// Run sweeps until the context is cancelled. Intended to be started as
// a goroutine from main.
func (r *Reconciler) Run(ctx context.Context) {
	r.log.Infow("Reconciler started", "interval", r.interval, "maxPendingAge", r.maxAge)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Infow("Reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one pass over recent pending invoices. Transport
// errors on individual invoices are logged and skipped; the next tick
// retries them.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.maxAge)
	pending, err := r.payments.ListPendingSince(ctx, cutoff)
	if err != nil {
		r.log.Errorw("Reconciler failed to list pending payments", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	r.log.Debugw("Reconciler sweeping pending invoices", "count", len(pending))
	settled := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return
		}
		res, err := r.settler.Settle(ctx, rec.InvoiceID)
		if err != nil {
			if !errors.Is(err, domain.ErrGatewayUnavailable) {
				r.log.Errorw("Reconciler settle failed", "error", err, "invoiceID", rec.InvoiceID)
			}
			continue
		}
		if res.Status == domain.PaymentStatusPaid && !res.AlreadySettled {
			settled++
		}
	}

	if settled > 0 {
		r.log.Infow("Reconciler settled invoices", "settled", settled, "checked", len(pending))
	}
}
