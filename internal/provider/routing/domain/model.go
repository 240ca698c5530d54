package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BankConfigRecord is the stored, encrypted per-tenant bank routing config.
type BankConfigRecord struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	TenantID  snowflake.ID   `json:"tenant_id" gorm:"not null;uniqueIndex"`
	Config    datatypes.JSON `json:"config" gorm:"type:jsonb;not null"`
	IsActive  bool           `json:"is_active" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
}

func (BankConfigRecord) TableName() string { return "tenant_bank_configs" }

// RoutingConfig is the decrypted routing a tenant's payments settle into.
// APIKey is optional; when present the polling path queries the provider with
// the tenant's own credentials.
type RoutingConfig struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
	APIKey        string `json:"api_key,omitempty"`
}

var (
	ErrEncryptionKeyMissing = errors.New("bank_config_encryption_key_missing")
	ErrInvalidConfig        = errors.New("invalid_bank_config")
)
