package metrics

import (
	"go.uber.org/fx"

	"github.com/tabpay/tabpay/internal/config"
)

func providePaymentMetrics(cfg config.Config) *PaymentMetrics {
	return PaymentWithConfig(Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})
}

// Module wires the payment metrics singleton with config labels.
var Module = fx.Module("observability.metrics",
	fx.Provide(providePaymentMetrics),
)
