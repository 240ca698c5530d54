package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tabpay/tabpay/internal/provider/routing/domain"
	"github.com/tabpay/tabpay/pkg/db"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

const bankConfigColumns = `id, tenant_id, config, is_active, created_at, updated_at`

func (r *repo) FindActiveByTenant(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (*domain.BankConfigRecord, error) {
	var record domain.BankConfigRecord
	err := tx.WithContext(ctx).
		Raw(`SELECT `+bankConfigColumns+` FROM tenant_bank_configs WHERE tenant_id = ? AND is_active = ?`, tenantID, true).
		Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) Upsert(ctx context.Context, tx *gorm.DB, record *domain.BankConfigRecord) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE tenant_bank_configs SET config = ?, is_active = ?, updated_at = ? WHERE tenant_id = ?`,
		record.Config, record.IsActive, record.UpdatedAt, record.TenantID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO tenant_bank_configs (`+bankConfigColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.TenantID, record.Config, record.IsActive, record.CreatedAt, record.UpdatedAt,
	).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		// lost a concurrent insert race, retry as update
		return tx.WithContext(ctx).Exec(
			`UPDATE tenant_bank_configs SET config = ?, is_active = ?, updated_at = ? WHERE tenant_id = ?`,
			record.Config, record.IsActive, record.UpdatedAt, record.TenantID,
		).Error
	}
	return err
}
