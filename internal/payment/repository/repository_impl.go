package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tabpay/tabpay/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const paymentColumns = `id, subject_id, tenant_id, method, status, amount, currency,
	transfer_reference, provider_transaction_id, expires_at, paid_at,
	failure_reason, provider_metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, subject_id, tenant_id, method, status, amount, currency,
			transfer_reference, provider_transaction_id, expires_at, paid_at,
			failure_reason, provider_metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.SubjectID,
		payment.TenantID,
		payment.Method,
		payment.Status,
		payment.Amount,
		payment.Currency,
		payment.TransferReference,
		payment.ProviderTransactionID,
		payment.ExpiresAt,
		payment.PaidAt,
		payment.FailureReason,
		payment.ProviderMetadata,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ? LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindActiveBySubject(ctx context.Context, db *gorm.DB, subjectID snowflake.ID) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE subject_id = ? AND status IN (?, ?, ?)
		 ORDER BY created_at DESC
		 LIMIT 1`,
		subjectID,
		domain.StatusPending,
		domain.StatusProcessing,
		domain.StatusCompleted,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindOpenByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE transfer_reference = ? AND status IN (?, ?)
		 LIMIT 1`,
		reference,
		domain.StatusPending,
		domain.StatusProcessing,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE transfer_reference = ? LIMIT 1`,
		reference,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListOpen(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []*domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE status IN (?, ?)
		 ORDER BY created_at ASC
		 LIMIT ?`,
		domain.StatusPending,
		domain.StatusProcessing,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SettleConditional is the optimistic write that makes settlement safe under
// concurrent webhook and polling attempts: the guard re-checks status and the
// unset idempotency anchor inside the UPDATE itself.
func (r *repo) SettleConditional(ctx context.Context, db *gorm.DB, id snowflake.ID, providerTxnID string, paidAt time.Time, metadata datatypes.JSONMap, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, provider_transaction_id = ?, paid_at = ?,
			 provider_metadata = ?, updated_at = ?
		 WHERE id = ?
		   AND status IN (?, ?)
		   AND provider_transaction_id IS NULL`,
		domain.StatusCompleted,
		providerTxnID,
		paidAt,
		metadata,
		now,
		id,
		domain.StatusPending,
		domain.StatusProcessing,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFailedConditional(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		domain.StatusFailed,
		reason,
		now,
		id,
		domain.StatusPending,
		domain.StatusProcessing,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
