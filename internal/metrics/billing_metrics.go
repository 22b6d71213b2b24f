package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics records the purchase and settlement flow.
type BillingMetrics interface {
	IncInvoiceCreated()
	IncInvoiceSettled()
	IncCheckFailed()
	IncEntitlementMutation(action string)
	ObserveSettlementLag(created time.Time, settled time.Time)
}

type billingMetrics struct {
	invoicesCreated      prometheus.Counter
	invoicesSettled      prometheus.Counter
	checksFailed         prometheus.Counter
	entitlementMutations *prometheus.CounterVec
	settlementLag        prometheus.Histogram
}

// NewBillingMetrics registers the billing metrics on the registry.
func NewBillingMetrics(registry *prometheus.Registry) BillingMetrics {
	return &billingMetrics{
		invoicesCreated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "billing_invoices_created_total",
			Help: "The total number of gateway invoices created",
		}),
		invoicesSettled: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "billing_invoices_settled_total",
			Help: "The total number of invoices confirmed as paid",
		}),
		checksFailed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "billing_gateway_check_failures_total",
			Help: "The total number of settlement checks that failed at the gateway",
		}),
		entitlementMutations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "entitlement_mutations_total",
			Help: "The total number of entitlement mutations by action",
		}, []string{"action"}),
		settlementLag: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "billing_settlement_lag_seconds",
			Help:    "Seconds between invoice creation and confirmed settlement",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10), // 5s .. ~42m
		}),
	}
}

func (m *billingMetrics) IncInvoiceCreated() { m.invoicesCreated.Inc() }
func (m *billingMetrics) IncInvoiceSettled() { m.invoicesSettled.Inc() }
func (m *billingMetrics) IncCheckFailed()    { m.checksFailed.Inc() }

func (m *billingMetrics) IncEntitlementMutation(action string) {
	m.entitlementMutations.WithLabelValues(action).Inc()
}

func (m *billingMetrics) ObserveSettlementLag(created, settled time.Time) {
	m.settlementLag.Observe(settled.Sub(created).Seconds())
}

// NoOpMetrics satisfies BillingMetrics for tests.
type NoOpMetrics struct{}

func (NoOpMetrics) IncInvoiceCreated()                              {}
func (NoOpMetrics) IncInvoiceSettled()                              {}
func (NoOpMetrics) IncCheckFailed()                                 {}
func (NoOpMetrics) IncEntitlementMutation(string)                   {}
func (NoOpMetrics) ObserveSettlementLag(created, settled time.Time) {}
