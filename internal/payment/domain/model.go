package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

const (
	MethodBankTransfer = "bank_transfer"

	SourceWebhook = "webhook"
	SourcePolling = "polling"
)

// Payment is the durable record of a single payment attempt. It is never
// deleted; once settled it is the audit trail for the money that moved.
type Payment struct {
	ID                    snowflake.ID      `json:"id" gorm:"primaryKey"`
	SubjectID             *snowflake.ID     `json:"subject_id" gorm:"index"`
	TenantID              snowflake.ID      `json:"tenant_id" gorm:"not null;index"`
	Method                string            `json:"method" gorm:"type:text;not null"`
	Status                Status            `json:"status" gorm:"type:text;not null;index"`
	Amount                int64             `json:"amount" gorm:"not null"`
	Currency              string            `json:"currency" gorm:"type:text;not null"`
	TransferReference     string            `json:"transfer_reference" gorm:"type:text;not null;uniqueIndex"`
	ProviderTransactionID *string           `json:"provider_transaction_id" gorm:"type:text"`
	ExpiresAt             time.Time         `json:"expires_at" gorm:"not null"`
	PaidAt                *time.Time        `json:"paid_at"`
	FailureReason         *string           `json:"failure_reason" gorm:"type:text"`
	ProviderMetadata      datatypes.JSONMap `json:"provider_metadata" gorm:"type:jsonb"`
	CreatedAt             time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time         `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// ProviderTransaction is a single row from the provider's recent-transactions
// API. It is external data and never stored verbatim beyond audit metadata.
type ProviderTransaction struct {
	ID                  string    `json:"id"`
	Amount              float64   `json:"amount"`
	AccountNumber       string    `json:"account_number"`
	TransferContent     string    `json:"transfer_content"`
	TransactionTime     time.Time `json:"transaction_time"`
	BankCode            string    `json:"bank_code"`
	SenderAccountNumber string    `json:"sender_account_number"`
	SenderName          string    `json:"sender_name"`
	ReferenceCode       string    `json:"reference_code"`
}

// PaymentIntent is the provider-facing payload handed to the customer. It is
// ephemeral; only its fields feed the persisted Payment.
type PaymentIntent struct {
	SubjectID         *snowflake.ID `json:"subject_id"`
	Amount            int64         `json:"amount"`
	Currency          string        `json:"currency"`
	TransferReference string        `json:"transfer_reference"`
	QRPayload         string        `json:"qr_payload"`
	DeepLink          string        `json:"deep_link"`
	AccountNumber     string        `json:"account_number"`
	BankCode          string        `json:"bank_code"`
	ExpiresAt         time.Time     `json:"expires_at"`
}

// PaymentView is the caller-facing projection of a Payment plus the intent
// payload when one was freshly built.
type PaymentView struct {
	PaymentID         snowflake.ID  `json:"payment_id"`
	SubjectID         *snowflake.ID `json:"subject_id"`
	Status            Status        `json:"status"`
	Amount            int64         `json:"amount"`
	Currency          string        `json:"currency"`
	TransferReference string        `json:"transfer_reference"`
	QRPayload         string        `json:"qr_payload,omitempty"`
	DeepLink          string        `json:"deep_link,omitempty"`
	AccountNumber     string        `json:"account_number,omitempty"`
	BankCode          string        `json:"bank_code,omitempty"`
	ExpiresAt         time.Time     `json:"expires_at"`
	PaidAt            *time.Time    `json:"paid_at,omitempty"`
}

// SettlementOutcome classifies what a settlement attempt did.
type SettlementOutcome string

const (
	OutcomeSettled        SettlementOutcome = "settled"
	OutcomeAlreadySettled SettlementOutcome = "already_settled"
	OutcomeAmountMismatch SettlementOutcome = "amount_mismatch"
	OutcomeNotSettlable   SettlementOutcome = "not_settlable"
)

// SettlementResult is returned by the single idempotent commit path.
type SettlementResult struct {
	Outcome   SettlementOutcome `json:"outcome"`
	PaymentID snowflake.ID      `json:"payment_id"`
	Status    Status            `json:"status"`
	PaidAt    *time.Time        `json:"paid_at,omitempty"`
}

// CheckState is the structured answer of the polling check path.
type CheckState string

const (
	CheckCompleted      CheckState = "completed"
	CheckPending        CheckState = "pending"
	CheckExpired        CheckState = "expired"
	CheckAmountMismatch CheckState = "amount_mismatch"
)

type CheckResult struct {
	State     CheckState   `json:"state"`
	PaymentID snowflake.ID `json:"payment_id"`
	// Matched carries the provider transaction that matched the transfer
	// reference, when one was found.
	Matched *ProviderTransaction `json:"matched,omitempty"`
	Message string               `json:"message,omitempty"`
}

// PollResult summarizes one batch reconcile pass.
type PollResult struct {
	Fetched int            `json:"fetched"`
	Settled []snowflake.ID `json:"settled"`
	Skipped int            `json:"skipped"`
}

// WebhookPayload is the wire format pushed by the provider.
type WebhookPayload struct {
	TransferReference     string         `json:"transferReference"`
	ProviderTransactionID string         `json:"providerTransactionId"`
	Amount                float64        `json:"amount"`
	Status                string         `json:"status"`
	TransactionTime       time.Time      `json:"transactionTime"`
	BankCode              string         `json:"bankCode,omitempty"`
	AccountNumber         string         `json:"accountNumber,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
}

// WebhookResult is always delivered with HTTP 200 except on auth failure, so
// the provider never amplifies retries on business-logic rejections.
type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
