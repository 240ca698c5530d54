package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateIntentRequest struct {
	SubjectID *snowflake.ID
	TenantID  snowflake.ID
	Amount    int64
	Currency  string
	Metadata  map[string]any
}

type SettleRequest struct {
	PaymentID             snowflake.ID
	ProviderTransactionID string
	PaidAmount            float64
	PaidAt                time.Time
	// Source tags the audit metadata with the channel that observed the
	// transaction: SourceWebhook or SourcePolling.
	Source string
	// AuditMetadata is merged into the payment's provider metadata bag under
	// a source-specific sub-key.
	AuditMetadata map[string]any
}

// Service is the reconciliation core: idempotent intent creation and the
// single idempotent settlement primitive shared by the webhook and polling
// paths.
type Service interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*PaymentView, error)
	Settle(ctx context.Context, req SettleRequest) (*SettlementResult, error)
	MarkFailed(ctx context.Context, paymentID snowflake.ID, reason string) error
	GetStatus(ctx context.Context, paymentID snowflake.ID) (*PaymentView, error)
}

// WebhookService ingests provider-pushed transfer notifications.
type WebhookService interface {
	Handle(ctx context.Context, payload []byte, authHeader string) (*WebhookResult, error)
}

// ReconcileService is the polling fallback when webhooks are unavailable.
type ReconcileService interface {
	CheckPayment(ctx context.Context, paymentID snowflake.ID) (*CheckResult, error)
	PollAndReconcile(ctx context.Context, targetReference string, limit int) (*PollResult, error)
}

// CompletionHook runs after a non-order payment settles. Failures are logged
// and never revert the settlement.
type CompletionHook interface {
	OnPaymentCompleted(ctx context.Context, payment *Payment) error
}
