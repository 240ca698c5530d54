package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tabpay/tabpay/internal/config"
	"github.com/tabpay/tabpay/internal/observability/metrics"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/provider/gateway"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	Repo       paymentdomain.Repository
	Cfg        config.Config
	ObsMetrics *metrics.PaymentMetrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	paymentSvc paymentdomain.Service
	repo       paymentdomain.Repository
	secret     string
	obsMetrics *metrics.PaymentMetrics
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		repo:       p.Repo,
		secret:     p.Cfg.Provider.WebhookSecret,
		obsMetrics: p.ObsMetrics,
	}
}

// Handle processes one provider delivery. Business-logic rejections resolve
// to success so the provider never retries them; only an auth failure or a
// malformed payload surfaces as an error.
func (s *Service) Handle(ctx context.Context, payload []byte, authHeader string) (*paymentdomain.WebhookResult, error) {
	if !gateway.VerifyWebhookToken(authHeader, s.secret) {
		s.obsMetrics.IncWebhookRequest("unauthorized")
		return nil, paymentdomain.ErrInvalidSignature
	}

	var body paymentdomain.WebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		s.obsMetrics.IncWebhookRequest("malformed")
		return nil, paymentdomain.ErrInvalidPayload
	}
	body.TransferReference = strings.TrimSpace(body.TransferReference)
	body.ProviderTransactionID = strings.TrimSpace(body.ProviderTransactionID)
	if body.TransferReference == "" || body.ProviderTransactionID == "" {
		s.obsMetrics.IncWebhookRequest("malformed")
		return nil, paymentdomain.ErrMissingReference
	}

	payment, err := s.repo.FindOpenByReference(ctx, s.db, body.TransferReference)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		// late or duplicate delivery for a settled or unknown payment
		message := "no open payment for reference"
		if existing, err := s.repo.FindByReference(ctx, s.db, body.TransferReference); err == nil && existing != nil {
			if existing.ProviderTransactionID != nil && *existing.ProviderTransactionID == body.ProviderTransactionID {
				message = "transaction already processed"
			}
		}
		s.obsMetrics.IncWebhookRequest("noop")
		s.log.Info("webhook ignored",
			zap.String("transfer_reference", body.TransferReference),
			zap.String("reason", message),
		)
		return &paymentdomain.WebhookResult{Success: true, Message: message}, nil
	}

	if payment.ExpiresAt.Before(time.Now().UTC()) {
		// a transfer landing after expiry must not revive the intent; the
		// customer gets a fresh reference on re-scan
		if err := s.paymentSvc.MarkFailed(ctx, payment.ID, "expired"); err != nil {
			return nil, err
		}
		s.obsMetrics.IncWebhookRequest("expired")
		return nil, paymentdomain.ErrPaymentExpired
	}

	if payment.ProviderTransactionID != nil && *payment.ProviderTransactionID == body.ProviderTransactionID {
		s.obsMetrics.IncWebhookRequest("duplicate")
		return &paymentdomain.WebhookResult{Success: true, Message: "duplicate delivery"}, nil
	}

	if !strings.EqualFold(body.Status, "success") {
		if err := s.paymentSvc.MarkFailed(ctx, payment.ID, "provider_reported_"+strings.ToLower(body.Status)); err != nil {
			return nil, err
		}
		s.obsMetrics.IncWebhookRequest("failed_status")
		return &paymentdomain.WebhookResult{Success: true, Message: "payment marked failed"}, nil
	}

	audit := map[string]any{
		"delivery_id": uuid.NewString(),
		"received_at": time.Now().UTC().Format(time.RFC3339),
	}
	if body.BankCode != "" {
		audit["bank_code"] = body.BankCode
	}
	if body.AccountNumber != "" {
		audit["account_number"] = body.AccountNumber
	}
	for k, v := range body.Metadata {
		audit[k] = v
	}

	result, err := s.paymentSvc.Settle(ctx, paymentdomain.SettleRequest{
		PaymentID:             payment.ID,
		ProviderTransactionID: body.ProviderTransactionID,
		PaidAmount:            body.Amount,
		PaidAt:                body.TransactionTime,
		Source:                paymentdomain.SourceWebhook,
		AuditMetadata:         audit,
	})
	if err != nil {
		if err == paymentdomain.ErrAmountMismatch {
			s.obsMetrics.IncWebhookRequest("amount_mismatch")
			return &paymentdomain.WebhookResult{Success: true, Message: "amount mismatch, payment left open"}, nil
		}
		return nil, err
	}

	s.obsMetrics.IncWebhookRequest("accepted")
	return &paymentdomain.WebhookResult{
		Success: true,
		Message: string(result.Outcome),
	}, nil
}
