package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// FindActiveBySubject returns the subject's payment in PENDING,
	// PROCESSING or COMPLETED state, if any. At most one such row exists per
	// subject.
	FindActiveBySubject(ctx context.Context, db *gorm.DB, subjectID snowflake.ID) (*Payment, error)
	// FindOpenByReference looks up a PENDING or PROCESSING payment by its
	// transfer reference.
	FindOpenByReference(ctx context.Context, db *gorm.DB, reference string) (*Payment, error)
	// FindByReference looks up a payment in any state by its transfer
	// reference. Used to classify webhook replays for already settled rows.
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Payment, error)
	ListOpen(ctx context.Context, db *gorm.DB, limit int) ([]*Payment, error)
	// SettleConditional commits the terminal COMPLETED transition guarded by
	// status and an unset provider transaction id. It reports whether this
	// call won the transition.
	SettleConditional(ctx context.Context, db *gorm.DB, id snowflake.ID, providerTxnID string, paidAt time.Time, metadata datatypes.JSONMap, now time.Time) (bool, error)
	// MarkFailedConditional moves a non-terminal payment to FAILED. It
	// reports whether the transition happened.
	MarkFailedConditional(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (bool, error)
}
