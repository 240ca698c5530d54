package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/subscription/domain"
)

const (
	defaultPlan  = "standard"
	periodLength = 30 * 24 * time.Hour
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) paymentdomain.CompletionHook {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

// OnPaymentCompleted activates or extends the tenant's subscription after a
// subscription payment settles. The settlement itself is already committed;
// errors here are reported to the caller for logging only.
func (s *Service) OnPaymentCompleted(ctx context.Context, payment *paymentdomain.Payment) error {
	now := time.Now().UTC()

	return s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByTenant(ctx, tx, payment.TenantID)
		if err != nil {
			return err
		}

		if existing != nil {
			start := now
			if existing.CurrentPeriodEnd.After(now) {
				start = existing.CurrentPeriodEnd
			}
			if err := s.repo.ExtendPeriod(ctx, tx, existing.ID, payment.ID, start.Add(periodLength), now); err != nil {
				return err
			}
			s.log.Info("subscription extended",
				zap.String("tenant_id", payment.TenantID.String()),
				zap.String("payment_id", payment.ID.String()),
			)
			return nil
		}

		plan := defaultPlan
		if v, ok := payment.ProviderMetadata["plan"].(string); ok && v != "" {
			plan = v
		}
		sub := &domain.Subscription{
			ID:                 s.genID.Generate(),
			TenantID:           payment.TenantID,
			Plan:               plan,
			Status:             domain.StatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   now.Add(periodLength),
			LastPaymentID:      &payment.ID,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.repo.Insert(ctx, tx, sub); err != nil {
			return err
		}
		s.log.Info("subscription activated",
			zap.String("tenant_id", payment.TenantID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.String("plan", plan),
		)
		return nil
	})
}
