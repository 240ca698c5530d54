package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)

	// FindPayableOrder returns the order only when it is still awaiting
	// payment. Cancelled or already paid orders yield ErrOrderNotPayable.
	FindPayableOrder(ctx context.Context, db *gorm.DB, id, tenantID snowflake.ID) (*Order, error)

	// MarkPaidIfUnpaid flips payment_status UNPAID -> PAID and reports
	// whether this call performed the transition.
	MarkPaidIfUnpaid(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	// AdvanceStatusIfPending moves status PENDING -> RECEIVED and reports
	// whether this call performed the transition.
	AdvanceStatusIfPending(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	AppendStatusHistory(ctx context.Context, db *gorm.DB, entry *StatusHistory) error
}
