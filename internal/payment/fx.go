package payment

import (
	"go.uber.org/fx"

	"github.com/tabpay/tabpay/internal/payment/reconcile"
	"github.com/tabpay/tabpay/internal/payment/repository"
	"github.com/tabpay/tabpay/internal/payment/service"
	"github.com/tabpay/tabpay/internal/payment/webhook"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(webhook.NewService),
	fx.Provide(reconcile.NewService),
)
