package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pawmed/billing-service/pkg/logger"
)

// BillingMetrics records reconciliation and checkout outcomes
type BillingMetrics interface {
	IncIntentCreated(kind string)
	IncReconcileCompleted(kind string)
	IncReconcileDuplicate()
	IncReconcileRejected(reason string)
	ObserveChargedAmount(amount float64, currency string)
	AddMinutesGranted(minutes int)
}

type billingMetrics struct {
	log                *logger.Logger
	intentsCreated     *prometheus.CounterVec
	reconcileOutcomes  *prometheus.CounterVec
	chargedAmounts     *prometheus.HistogramVec
	minutesGranted     prometheus.Counter
}

// NewBillingMetrics creates the billing metric set on the given registry
func NewBillingMetrics(registry *prometheus.Registry, log *logger.Logger) BillingMetrics {
	intentsCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payment_intents_created_total",
			Help: "The total number of payment intents opened",
		},
		[]string{"kind"},
	)

	reconcileOutcomes := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_reconciliations_total",
			Help: "The total number of reconciliation calls by outcome",
		},
		[]string{"outcome", "kind"},
	)

	chargedAmounts := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_charged_amount",
			Help:    "Charged amounts distribution in minor currency units",
			Buckets: prometheus.ExponentialBuckets(100, 10, 5),
		},
		[]string{"currency"},
	)

	minutesGranted := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "billing_minutes_granted_total",
			Help: "The total number of chat minutes credited",
		},
	)

	return &billingMetrics{
		log:                log,
		intentsCreated:     intentsCreated,
		reconcileOutcomes:  reconcileOutcomes,
		chargedAmounts:     chargedAmounts,
		minutesGranted:     minutesGranted,
	}
}

// IncIntentCreated counts an opened payment intent
func (m *billingMetrics) IncIntentCreated(kind string) {
	m.intentsCreated.WithLabelValues(kind).Inc()
}

// IncReconcileCompleted counts a reconciliation that granted credit
func (m *billingMetrics) IncReconcileCompleted(kind string) {
	m.reconcileOutcomes.WithLabelValues("completed", kind).Inc()
}

// IncReconcileDuplicate counts a reconciliation answered from the existing transaction
func (m *billingMetrics) IncReconcileDuplicate() {
	m.reconcileOutcomes.WithLabelValues("duplicate", "any").Inc()
}

// IncReconcileRejected counts a reconciliation that granted nothing
func (m *billingMetrics) IncReconcileRejected(reason string) {
	m.reconcileOutcomes.WithLabelValues(reason, "any").Inc()
}

// ObserveChargedAmount records a successfully charged amount
func (m *billingMetrics) ObserveChargedAmount(amount float64, currency string) {
	m.chargedAmounts.WithLabelValues(currency).Observe(amount)
}

// AddMinutesGranted records credited minutes
func (m *billingMetrics) AddMinutesGranted(minutes int) {
	m.minutesGranted.Add(float64(minutes))
}

// NopMetrics is a no-op BillingMetrics for tests
type NopMetrics struct{}

func (NopMetrics) IncIntentCreated(string)              {}
func (NopMetrics) IncReconcileCompleted(string)         {}
func (NopMetrics) IncReconcileDuplicate()               {}
func (NopMetrics) IncReconcileRejected(string)          {}
func (NopMetrics) ObserveChargedAmount(float64, string) {}
func (NopMetrics) AddMinutesGranted(int)                {}
