package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindActiveByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*BankConfigRecord, error)
	Upsert(ctx context.Context, db *gorm.DB, record *BankConfigRecord) error
}

// Service resolves the bank routing for a tenant. Resolve falls back to the
// platform-level routing from env config when the tenant has none.
type Service interface {
	Resolve(ctx context.Context, tenantID snowflake.ID) (*RoutingConfig, error)
	Save(ctx context.Context, tenantID snowflake.ID, cfg RoutingConfig) error
}
