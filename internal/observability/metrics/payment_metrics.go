package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels stamped on every metric.
type Config struct {
	ServiceName string
	Environment string
}

// PaymentMetrics captures reconciliation health signals.
type PaymentMetrics struct {
	settlements     *prometheus.CounterVec
	webhookRequests *prometheus.CounterVec
	providerRetries *prometheus.CounterVec
	statusCache     *prometheus.CounterVec
}

var (
	paymentMetricsOnce sync.Once
	paymentMetrics     *PaymentMetrics
)

// Payment returns the singleton payment metrics registry.
func Payment() *PaymentMetrics {
	return PaymentWithConfig(Config{})
}

// PaymentWithConfig returns the singleton payment metrics registry using config labels.
func PaymentWithConfig(cfg Config) *PaymentMetrics {
	paymentMetricsOnce.Do(func() {
		paymentMetrics = newPaymentMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return paymentMetrics
}

// ResetPaymentMetricsForTest resets the payment metrics singleton for tests.
func ResetPaymentMetricsForTest() {
	paymentMetricsOnce = sync.Once{}
	paymentMetrics = nil
}

func newPaymentMetrics(registerer prometheus.Registerer, cfg Config) *PaymentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "tabpay"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tabpay_payment_settlements_total",
		Help:        "Settlement attempts by source and outcome.",
		ConstLabels: constLabels,
	}, []string{"source", "outcome"})
	webhookRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tabpay_webhook_requests_total",
		Help:        "Webhook deliveries by processing result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	providerRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tabpay_provider_retries_total",
		Help:        "Provider API retries by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	statusCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tabpay_status_cache_total",
		Help:        "Payment status cache lookups by result.",
		ConstLabels: constLabels,
	}, []string{"result"})

	registerer.MustRegister(
		settlements,
		webhookRequests,
		providerRetries,
		statusCache,
	)

	return &PaymentMetrics{
		settlements:     settlements,
		webhookRequests: webhookRequests,
		providerRetries: providerRetries,
		statusCache:     statusCache,
	}
}

// IncSettlement increments the settlement counter for a source and outcome.
func (m *PaymentMetrics) IncSettlement(source, outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(source, outcome).Inc()
}

// IncWebhookRequest increments the webhook counter for a processing result.
func (m *PaymentMetrics) IncWebhookRequest(result string) {
	if m == nil || m.webhookRequests == nil {
		return
	}
	m.webhookRequests.WithLabelValues(result).Inc()
}

// IncProviderRetry increments the provider retry counter for a reason.
func (m *PaymentMetrics) IncProviderRetry(reason string) {
	if m == nil || m.providerRetries == nil {
		return
	}
	m.providerRetries.WithLabelValues(reason).Inc()
}

// IncStatusCache increments the status cache counter with hit or miss.
func (m *PaymentMetrics) IncStatusCache(result string) {
	if m == nil || m.statusCache == nil {
		return
	}
	m.statusCache.WithLabelValues(result).Inc()
}
