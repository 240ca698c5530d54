package gateway

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tabpay/tabpay/internal/config"
	"github.com/tabpay/tabpay/internal/observability/metrics"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Tuning     *config.TuningHolder
	Log        *zap.Logger
	ObsMetrics *metrics.PaymentMetrics `optional:"true"`
}

func provideSource(p Params) TransactionSource {
	return NewClient(
		p.Cfg.Provider.BaseURL,
		p.Cfg.Provider.APIKey,
		p.Tuning.Current().ProviderTimeout(),
		p.Log,
	).WithMetrics(p.ObsMetrics)
}

var Module = fx.Module("provider.gateway",
	fx.Provide(provideSource),
)
