package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the notification drainer.
type OutboxMetrics struct {
	delivered    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	recipients   prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecobridge_outbox_delivered_total",
		Help: "Outbox events handled successfully.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecobridge_outbox_failed_total",
		Help: "Outbox delivery attempts that failed and will be retried.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecobridge_outbox_dead_lettered_total",
		Help: "Outbox events moved to the DLQ.",
	}, []string{"event_type", "reason"})
	recipients := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ecobridge_notification_fanout_recipients",
		Help:    "Recipients written per notification event.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(delivered, failed, deadLettered, recipients)
	return &OutboxMetrics{
		delivered:    delivered,
		failed:       failed,
		deadLettered: deadLettered,
		recipients:   recipients,
	}
}

func (m *OutboxMetrics) IncDelivered(eventType string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(eventType, reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}

// ObserveRecipients records the size of one fan-out.
func (m *OutboxMetrics) ObserveRecipients(count int) {
	if m == nil || m.recipients == nil {
		return
	}
	m.recipients.Observe(float64(count))
}
