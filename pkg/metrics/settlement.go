package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Settlement counts money movements through the marketplace. A nil
// *Settlement is valid and records nothing.
type Settlement struct {
	ordersCreated    *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	payoutBatches    *prometheus.CounterVec
	payoutPaidPaise  *prometheus.CounterVec
	withdrawals      *prometheus.CounterVec
	outboxPublish    *prometheus.HistogramVec
}

// NewSettlement registers the settlement metrics on the provided registerer.
func NewSettlement(reg prometheus.Registerer) *Settlement {
	if reg == nil {
		return &Settlement{}
	}
	m := &Settlement{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by payment method.",
		}, []string{"payment_method"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status changes, by target status.",
		}, []string{"status"}),
		payoutBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_batches_total",
			Help: "Payout batch status changes, by recipient type and status.",
		}, []string{"recipient_type", "status"}),
		payoutPaidPaise: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_paid_paise_total",
			Help: "Paise paid out through batches, by recipient type.",
		}, []string{"recipient_type"}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "withdrawals_total",
			Help: "Driver withdrawal status changes, by status.",
		}, []string{"status"}),
		outboxPublish: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outbox_publish_duration_seconds",
			Help:    "Duration of outbox publish attempts in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
	}
	reg.MustRegister(m.ordersCreated, m.orderTransitions, m.payoutBatches, m.payoutPaidPaise, m.withdrawals, m.outboxPublish)
	return m
}

func (m *Settlement) OrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *Settlement) OrderTransition(status string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Settlement) PayoutBatch(recipientType, status string) {
	if m == nil || m.payoutBatches == nil {
		return
	}
	m.payoutBatches.WithLabelValues(normalizeLabel(recipientType), normalizeLabel(status)).Inc()
}

// PayoutPaid adds a paid batch total. Non-positive amounts are ignored
// because counters only go up.
func (m *Settlement) PayoutPaid(recipientType string, paise int64) {
	if m == nil || m.payoutPaidPaise == nil || paise <= 0 {
		return
	}
	m.payoutPaidPaise.WithLabelValues(normalizeLabel(recipientType)).Add(float64(paise))
}

func (m *Settlement) Withdrawal(status string) {
	if m == nil || m.withdrawals == nil {
		return
	}
	m.withdrawals.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveOutboxPublish records one publish attempt; result is "ok" or "error".
func (m *Settlement) ObserveOutboxPublish(result string, duration time.Duration) {
	if m == nil || m.outboxPublish == nil {
		return
	}
	m.outboxPublish.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
