package reconcile

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tabpay/tabpay/internal/config"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/payment/matcher"
	"github.com/tabpay/tabpay/internal/provider/gateway"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	Repo       paymentdomain.Repository
	Gateway    gateway.TransactionSource
	Tuning     *config.TuningHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	paymentSvc paymentdomain.Service
	repo       paymentdomain.Repository
	gateway    gateway.TransactionSource
	tuning     *config.TuningHolder
}

func NewService(p Params) paymentdomain.ReconcileService {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.reconcile"),
		paymentSvc: p.PaymentSvc,
		repo:       p.Repo,
		gateway:    p.Gateway,
		tuning:     p.Tuning,
	}
}

// CheckPayment resolves one payment against the provider's recent
// transactions. Terminal and expired payments never reach the provider API.
func (s *Service) CheckPayment(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.CheckResult, error) {
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}

	if payment.Status == paymentdomain.StatusCompleted {
		return &paymentdomain.CheckResult{
			State:     paymentdomain.CheckCompleted,
			PaymentID: payment.ID,
		}, nil
	}
	if payment.Status == paymentdomain.StatusFailed {
		return &paymentdomain.CheckResult{
			State:     paymentdomain.CheckExpired,
			PaymentID: payment.ID,
			Message:   "payment already failed",
		}, nil
	}

	now := time.Now().UTC()
	if payment.ExpiresAt.Before(now) {
		if err := s.paymentSvc.MarkFailed(ctx, payment.ID, "expired"); err != nil {
			return nil, err
		}
		return &paymentdomain.CheckResult{
			State:     paymentdomain.CheckExpired,
			PaymentID: payment.ID,
			Message:   "intent expired before a matching transfer arrived",
		}, nil
	}

	if payment.TransferReference == "" {
		return &paymentdomain.CheckResult{
			State:     paymentdomain.CheckPending,
			PaymentID: payment.ID,
			Message:   "payment has no transfer reference to match",
		}, nil
	}

	tuning := s.tuning.Current()
	matched, err := s.gateway.FindByReference(ctx, payment.TransferReference, tuning.PollLimit)
	if err != nil {
		return nil, err
	}
	if matched == nil {
		return &paymentdomain.CheckResult{
			State:     paymentdomain.CheckPending,
			PaymentID: payment.ID,
		}, nil
	}

	if math.Abs(matched.Amount-float64(payment.Amount)) > tuning.AmountEpsilon {
		s.log.Warn("matched transaction amount diverges",
			zap.String("payment_id", payment.ID.String()),
			zap.Int64("expected", payment.Amount),
			zap.Float64("received", matched.Amount),
		)
		return &paymentdomain.CheckResult{
			State:     paymentdomain.CheckAmountMismatch,
			PaymentID: payment.ID,
			Matched:   matched,
			Message:   "transfer found but amount does not match",
		}, nil
	}

	if _, err := s.settleFromTransaction(ctx, payment, matched); err != nil {
		return nil, err
	}
	return &paymentdomain.CheckResult{
		State:     paymentdomain.CheckCompleted,
		PaymentID: payment.ID,
		Matched:   matched,
	}, nil
}

// PollAndReconcile fetches one transaction page and settles every open
// payment it can match. With a target reference only that payment is
// considered.
func (s *Service) PollAndReconcile(ctx context.Context, targetReference string, limit int) (*paymentdomain.PollResult, error) {
	tuning := s.tuning.Current()
	if limit <= 0 {
		limit = tuning.PollLimit
	}

	transactions, err := s.gateway.PollTransactions(ctx, limit)
	if err != nil {
		return nil, err
	}

	open, err := s.repo.ListOpen(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	result := &paymentdomain.PollResult{Fetched: len(transactions)}
	now := time.Now().UTC()

	for _, payment := range open {
		if targetReference != "" && payment.TransferReference != targetReference {
			continue
		}
		if payment.ExpiresAt.Before(now) {
			if err := s.paymentSvc.MarkFailed(ctx, payment.ID, "expired"); err != nil {
				s.log.Error("mark expired failed",
					zap.String("payment_id", payment.ID.String()),
					zap.Error(err),
				)
			}
			result.Skipped++
			continue
		}

		matched, tier := matcher.Match(payment.TransferReference, transactions)
		if matched == nil {
			result.Skipped++
			continue
		}
		if math.Abs(matched.Amount-float64(payment.Amount)) > tuning.AmountEpsilon {
			s.log.Warn("batch match amount diverges",
				zap.String("payment_id", payment.ID.String()),
				zap.String("tier", tier),
				zap.Float64("received", matched.Amount),
			)
			result.Skipped++
			continue
		}

		settleResult, err := s.settleFromTransaction(ctx, payment, matched)
		if err != nil {
			s.log.Error("batch settle failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}
		if settleResult.Outcome == paymentdomain.OutcomeSettled {
			result.Settled = append(result.Settled, payment.ID)
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

func (s *Service) settleFromTransaction(ctx context.Context, payment *paymentdomain.Payment, txn *paymentdomain.ProviderTransaction) (*paymentdomain.SettlementResult, error) {
	audit := map[string]any{
		"transfer_content": txn.TransferContent,
		"bank_code":        txn.BankCode,
	}
	if txn.SenderName != "" {
		audit["sender_name"] = txn.SenderName
	}

	return s.paymentSvc.Settle(ctx, paymentdomain.SettleRequest{
		PaymentID:             payment.ID,
		ProviderTransactionID: txn.ID,
		PaidAmount:            txn.Amount,
		PaidAt:                txn.TransactionTime,
		Source:                paymentdomain.SourcePolling,
		AuditMetadata:         audit,
	})
}
