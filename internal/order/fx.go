package order

import (
	"go.uber.org/fx"

	"github.com/tabpay/tabpay/internal/order/repository"
)

var Module = fx.Module("order.repository",
	fx.Provide(repository.Provide),
)
