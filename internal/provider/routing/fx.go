package routing

import (
	"go.uber.org/fx"

	"github.com/tabpay/tabpay/internal/provider/routing/repository"
	"github.com/tabpay/tabpay/internal/provider/routing/service"
)

var Module = fx.Module("routing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
