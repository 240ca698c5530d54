package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPaymentMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newPaymentMetrics(registry, Config{ServiceName: "tabpay", Environment: "test"})

	m.IncSettlement("webhook", "settled")
	m.IncSettlement("webhook", "settled")
	m.IncSettlement("polling", "already_settled")
	m.IncWebhookRequest("accepted")
	m.IncProviderRetry("server_error")
	m.IncStatusCache("hit")

	if got := testutil.ToFloat64(m.settlements.WithLabelValues("webhook", "settled")); got != 2 {
		t.Fatalf("expected 2 webhook settlements, got %v", got)
	}
	if got := testutil.ToFloat64(m.settlements.WithLabelValues("polling", "already_settled")); got != 1 {
		t.Fatalf("expected 1 polling replay, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhookRequests.WithLabelValues("accepted")); got != 1 {
		t.Fatalf("expected 1 accepted webhook, got %v", got)
	}
	if got := testutil.ToFloat64(m.providerRetries.WithLabelValues("server_error")); got != 1 {
		t.Fatalf("expected 1 provider retry, got %v", got)
	}
	if got := testutil.ToFloat64(m.statusCache.WithLabelValues("hit")); got != 1 {
		t.Fatalf("expected 1 cache hit, got %v", got)
	}
}

func TestNilPaymentMetricsSafe(t *testing.T) {
	var m *PaymentMetrics
	m.IncSettlement("webhook", "settled")
	m.IncWebhookRequest("rejected")
	m.IncProviderRetry("network")
	m.IncStatusCache("miss")
}
