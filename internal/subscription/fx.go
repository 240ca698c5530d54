package subscription

import (
	"go.uber.org/fx"

	"github.com/tabpay/tabpay/internal/subscription/repository"
	"github.com/tabpay/tabpay/internal/subscription/service"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
