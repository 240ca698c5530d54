package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tabpay/tabpay/internal/order/domain"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

const orderColumns = `id, tenant_id, table_code, status, payment_status, total_amount, currency, metadata, created_at, updated_at`

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := tx.WithContext(ctx).
		Raw(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id).
		Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

func (r *repo) FindPayableOrder(ctx context.Context, tx *gorm.DB, id, tenantID snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := tx.WithContext(ctx).
		Raw(`SELECT `+orderColumns+` FROM orders WHERE id = ? AND tenant_id = ?`, id, tenantID).
		Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, domain.ErrOrderNotFound
	}
	if order.Status == domain.StatusCancelled || order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, domain.ErrOrderNotPayable
	}
	return &order, nil
}

func (r *repo) MarkPaidIfUnpaid(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ? AND payment_status = ?`,
		domain.PaymentStatusPaid, now, id, domain.PaymentStatusUnpaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) AdvanceStatusIfPending(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.StatusReceived, now, id, domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) AppendStatusHistory(ctx context.Context, tx *gorm.DB, entry *domain.StatusHistory) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO order_status_history (id, order_id, from_status, to_status, reason, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.OrderID, entry.FromStatus, entry.ToStatus, entry.Reason, entry.CreatedAt,
	).Error
}
