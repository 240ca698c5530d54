package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusExpired  Status = "EXPIRED"
	StatusCanceled Status = "CANCELED"
)

// Subscription is a tenant's paid plan period. Settling a non-order payment
// extends or activates the tenant's subscription.
type Subscription struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID           snowflake.ID `json:"tenant_id" gorm:"not null;index"`
	Plan               string       `json:"plan" gorm:"not null"`
	Status             Status       `json:"status" gorm:"not null"`
	CurrentPeriodStart time.Time    `json:"current_period_start" gorm:"not null"`
	CurrentPeriodEnd   time.Time    `json:"current_period_end" gorm:"not null"`
	LastPaymentID      *snowflake.ID `json:"last_payment_id"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "tenant_subscriptions" }

type Repository interface {
	FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Subscription, error)
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	ExtendPeriod(ctx context.Context, db *gorm.DB, id, paymentID snowflake.ID, periodEnd, now time.Time) error
}
