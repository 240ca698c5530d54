package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tabpay/tabpay/internal/subscription/domain"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

const subscriptionColumns = `id, tenant_id, plan, status, current_period_start, current_period_end, last_payment_id, created_at, updated_at`

func (r *repo) FindByTenant(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := tx.WithContext(ctx).
		Raw(`SELECT `+subscriptionColumns+` FROM tenant_subscriptions WHERE tenant_id = ? ORDER BY current_period_end DESC LIMIT 1`, tenantID).
		Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, sub *domain.Subscription) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO tenant_subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.TenantID, sub.Plan, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.LastPaymentID,
		sub.CreatedAt, sub.UpdatedAt,
	).Error
}

func (r *repo) ExtendPeriod(ctx context.Context, tx *gorm.DB, id, paymentID snowflake.ID, periodEnd, now time.Time) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE tenant_subscriptions SET status = ?, current_period_end = ?, last_payment_id = ?, updated_at = ? WHERE id = ?`,
		domain.StatusActive, periodEnd, paymentID, now, id,
	).Error
}
