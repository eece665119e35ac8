package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncDelivered("notification_requested")
	m.IncDelivered("notification_requested")
	m.IncFailed("notification_requested")
	m.IncDeadLettered("notification_requested", "max_attempts")
	m.ObserveRecipients(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ecobridge_outbox_delivered_total", "event_type", "notification_requested"); err != nil {
		t.Fatalf("fetch delivered: %v", err)
	} else if got != 2 {
		t.Fatalf("expected delivered=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "ecobridge_outbox_dead_lettered_total", "reason", "max_attempts"); err != nil {
		t.Fatalf("fetch dlq: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dlq=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "ecobridge_notification_fanout_recipients")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected fan-out histogram")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum != 3 {
		t.Fatalf("expected recipient sum 3, got %f", sum)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var outbox *OutboxMetrics
	outbox.IncDelivered("x")
	outbox.ObserveRecipients(1)

	var cron *CronJobMetrics
	cron.IncFailure("x")

	NewHTTPMetrics(nil).Observe("GET", "/home", 200, time.Millisecond)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/uploads/{id}", 200, 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "ecobridge_http_requests_total", "route", "/uploads/{id}"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 request, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "ecobridge_http_request_duration_seconds", "route", "/uploads/{id}"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected positive duration, got %f", got)
	}
}
